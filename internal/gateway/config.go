package gateway

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Config holds HTTP gateway configuration.
type Config struct {
	Bind            string        `yaml:"bind"`
	Auth            AuthConfig    `yaml:"auth"`
	WebhookPath     string        `yaml:"webhook_path"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// EventBuffer is the number of events queued per live-feed subscriber
	// before further events are dropped for it.
	EventBuffer int `yaml:"event_buffer"`
}

// Defaults fills zero values with sensible defaults.
func (c *Config) Defaults() {
	if c.Bind == "" {
		c.Bind = "127.0.0.1:8080"
	}
	if c.WebhookPath == "" {
		c.WebhookPath = "/telegram/webhook"
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = 64
	}
}

// Validate checks the configuration after Defaults.
func (c *Config) Validate() error {
	if _, err := net.ResolveTCPAddr("tcp", c.Bind); err != nil {
		return fmt.Errorf("gateway: invalid bind address %q", c.Bind)
	}
	if !strings.HasPrefix(c.WebhookPath, "/") {
		return fmt.Errorf("gateway: webhook_path %q must start with /", c.WebhookPath)
	}
	if (c.Auth.BasicUser == "") != (c.Auth.BasicPass == "") {
		return errors.New("gateway: basic auth needs both basic_user and basic_pass")
	}
	return nil
}

// AuthConfig configures authentication for admin endpoints.
type AuthConfig struct {
	BearerToken string `yaml:"bearer_token"`
	BasicUser   string `yaml:"basic_user"`
	BasicPass   string `yaml:"basic_pass"`
}

// IsConfigured returns true if any auth method is configured.
func (a AuthConfig) IsConfigured() bool {
	return a.BearerToken != "" || (a.BasicUser != "" && a.BasicPass != "")
}
