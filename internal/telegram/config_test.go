package telegram

import (
	"strings"
	"testing"
)

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.Defaults()

	if cfg.Mode != ModePolling {
		t.Errorf("Mode = %q, want %q", cfg.Mode, ModePolling)
	}
	if cfg.PollingTimeout != 30 {
		t.Errorf("PollingTimeout = %d, want 30", cfg.PollingTimeout)
	}
	if len(cfg.AllowedUpdates) != len(DefaultAllowedUpdates) {
		t.Errorf("AllowedUpdates = %v, want %v", cfg.AllowedUpdates, DefaultAllowedUpdates)
	}
	if cfg.APIURL != "https://api.telegram.org" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.RateLimit != 25 {
		t.Errorf("RateLimit = %d, want 25", cfg.RateLimit)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing token", mutate: func(c *Config) { c.Token = "" }, wantErr: "token is required"},
		{name: "bad token", mutate: func(c *Config) { c.Token = "nope" }, wantErr: "token format"},
		{name: "bad mode", mutate: func(c *Config) { c.Mode = "push" }, wantErr: "mode must be"},
		{name: "webhook without url", mutate: func(c *Config) { c.Mode = ModeWebhook }, wantErr: "https webhook_url"},
		{
			name: "webhook with url",
			mutate: func(c *Config) {
				c.Mode = ModeWebhook
				c.WebhookURL = "https://bot.example.com/webhook/telegram"
			},
		},
		{name: "bad timeout", mutate: func(c *Config) { c.PollingTimeout = 90 }, wantErr: "polling_timeout"},
		{name: "bad api url", mutate: func(c *Config) { c.APIURL = "ftp://x" }, wantErr: "api_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Token: "123456:ABC-def_ghi"}
			cfg.Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
