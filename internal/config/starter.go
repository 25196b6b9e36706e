package config

import (
	"github.com/delixor/shadowbot/internal/gateway"
	"github.com/delixor/shadowbot/internal/telegram"
)

// TokenEnv is the variable the starter file reads the bot token from.
const TokenEnv = "SHADOWBOT_TOKEN"

// StarterOptions are the answers collected by `shadowbot config init`.
type StarterOptions struct {
	// Token is written verbatim when set, otherwise the file references
	// ${SHADOWBOT_TOKEN}.
	Token         string
	Mode          string
	WebhookURL    string
	WebhookSecret string
	Admins        []int64
	RedisAddr     string
}

// Starter builds a minimal configuration from opts. Unset sections are left
// for Defaults.
func Starter(opts StarterOptions) *Config {
	cfg := &Config{
		Version: "1",
		Log:     LogConfig{Level: "info"},
		Admins:  opts.Admins,
	}

	cfg.Telegram.Token = opts.Token
	if cfg.Telegram.Token == "" {
		cfg.Telegram.Token = "${" + TokenEnv + "}"
	}
	cfg.Telegram.Mode = opts.Mode
	if opts.Mode == telegram.ModeWebhook {
		cfg.Telegram.WebhookURL = opts.WebhookURL
		cfg.Telegram.WebhookSecret = opts.WebhookSecret
		cfg.Gateway = &gateway.Config{}
		cfg.Gateway.Defaults()
	}

	cfg.Cache.RedisAddr = opts.RedisAddr
	return cfg
}
