package telegram

import (
	"fmt"
	"net/url"
	"regexp"
)

// tokenPattern matches the Telegram bot token format: <digits>:<alphanum+dash>.
var tokenPattern = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)

// Update modes.
const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

// DefaultAllowedUpdates lists the update kinds the bot subscribes to.
var DefaultAllowedUpdates = []string{
	"message",
	"callback_query",
	"pre_checkout_query",
	"business_connection",
	"business_message",
	"edited_business_message",
	"deleted_business_messages",
}

// Config holds the Bot API configuration.
type Config struct {
	Token          string   `yaml:"token"`
	Mode           string   `yaml:"mode"`
	PollingTimeout int      `yaml:"polling_timeout"`
	WebhookURL     string   `yaml:"webhook_url"`
	WebhookSecret  string   `yaml:"webhook_secret"`
	AllowedUpdates []string `yaml:"allowed_updates"`
	APIURL         string   `yaml:"api_url"`
	// RateLimit caps outbound calls per second; 0 disables throttling.
	RateLimit int `yaml:"rate_limit"`
	// InstructionsURL is opened by the "instructions" button of the main menu.
	InstructionsURL string `yaml:"instructions_url"`
}

// Defaults applies default values to unset fields.
func (c *Config) Defaults() {
	if c.Mode == "" {
		c.Mode = ModePolling
	}
	if c.PollingTimeout == 0 {
		c.PollingTimeout = 30
	}
	if c.AllowedUpdates == nil {
		c.AllowedUpdates = append([]string(nil), DefaultAllowedUpdates...)
	}
	if c.APIURL == "" {
		c.APIURL = "https://api.telegram.org"
	}
	if c.RateLimit == 0 {
		c.RateLimit = 25
	}
}

// Validate checks field constraints after Defaults has been applied.
func (c *Config) Validate() error {
	if c.Token == "" {
		return fmt.Errorf("telegram: token is required")
	}
	if !tokenPattern.MatchString(c.Token) {
		return fmt.Errorf("telegram: token format invalid (expected <bot_id>:<hash>)")
	}

	if c.Mode != ModePolling && c.Mode != ModeWebhook {
		return fmt.Errorf("telegram: mode must be %q or %q, got %q", ModePolling, ModeWebhook, c.Mode)
	}
	if c.Mode == ModeWebhook {
		u, err := url.Parse(c.WebhookURL)
		if c.WebhookURL == "" || err != nil || u.Scheme != "https" {
			return fmt.Errorf("telegram: webhook mode requires an https webhook_url, got %q", c.WebhookURL)
		}
	}

	u, err := url.Parse(c.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("telegram: api_url must be a valid http/https URL, got %q", c.APIURL)
	}

	if c.PollingTimeout < 0 || c.PollingTimeout > 50 {
		return fmt.Errorf("telegram: polling_timeout must be 0-50, got %d", c.PollingTimeout)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("telegram: rate_limit must not be negative, got %d", c.RateLimit)
	}
	return nil
}
