// Package config handles YAML configuration loading, environment variable
// expansion, and validation for shadowbot.
package config

import (
	"time"

	"github.com/delixor/shadowbot/internal/bizconn"
	"github.com/delixor/shadowbot/internal/gateway"
	"github.com/delixor/shadowbot/internal/store/sqlite"
	"github.com/delixor/shadowbot/internal/subscription"
	"github.com/delixor/shadowbot/internal/telegram"
	"github.com/delixor/shadowbot/internal/telemetry"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// DataDir holds the database when storage.path is relative or empty.
	DataDir string `yaml:"data_dir,omitempty"`

	Log          LogConfig          `yaml:"log"`
	Telegram     telegram.Config    `yaml:"telegram"`
	Storage      sqlite.Config      `yaml:"storage"`
	Shadow       ShadowConfig       `yaml:"shadow"`
	Subscription SubscriptionConfig `yaml:"subscription"`

	// Admins may use /gift and /dump.
	Admins []int64 `yaml:"admins,omitempty"`

	// Gateway enables the HTTP surface when set. Webhook mode requires it.
	Gateway *gateway.Config `yaml:"gateway,omitempty"`

	Cache     bizconn.Config   `yaml:"cache"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string `yaml:"level"`
}

// ShadowConfig controls how long shadow copies live and how they are shown.
type ShadowConfig struct {
	Retention     time.Duration `yaml:"retention"`
	SweepSchedule string        `yaml:"sweep_schedule"`
	PageSize      int           `yaml:"page_size"`
}

// SubscriptionConfig overrides the built-in plan table.
type SubscriptionConfig struct {
	Plans subscription.Plans `yaml:"plans,omitempty"`
}
