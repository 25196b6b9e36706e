package config

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/delixor/shadowbot/internal/cron"
	"github.com/delixor/shadowbot/internal/subscription"
	"github.com/delixor/shadowbot/internal/telegram"
	"github.com/delixor/shadowbot/internal/transcript"
)

// Defaults fills every unset field. dataDir is used when data_dir is empty.
func (c *Config) Defaults(dataDir string) {
	if c.DataDir == "" {
		c.DataDir = dataDir
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	c.Telegram.Defaults()
	c.Storage.Defaults()
	if c.Storage.Path != "" && !filepath.IsAbs(c.Storage.Path) && c.DataDir != "" {
		c.Storage.Path = filepath.Join(c.DataDir, c.Storage.Path)
	}
	if c.Shadow.Retention == 0 {
		c.Shadow.Retention = cron.DefaultRetention
	}
	if c.Shadow.SweepSchedule == "" {
		c.Shadow.SweepSchedule = cron.DefaultSweepSchedule
	}
	if c.Shadow.PageSize == 0 {
		c.Shadow.PageSize = transcript.DefaultPageSize
	}
	if len(c.Subscription.Plans) == 0 {
		c.Subscription.Plans = subscription.DefaultPlans()
	}
	if c.Gateway != nil {
		c.Gateway.Defaults()
	}
	c.Cache.Defaults()
	c.Telemetry.Defaults()
}

// Validate checks a Config after Defaults has been applied. Every section is
// checked and all problems are reported together.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != "1" {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: \"1\")", cfg.Version))
	}

	if _, err := ParseLevel(cfg.Log.Level); err != nil {
		errs = append(errs, err)
	}

	errs = appendErr(errs, cfg.Telegram.Validate())
	errs = appendErr(errs, cfg.Storage.Validate())
	errs = append(errs, validateShadow(cfg.Shadow)...)
	errs = appendErr(errs, cfg.Subscription.Plans.Validate())

	for i, id := range cfg.Admins {
		if id <= 0 {
			errs = append(errs, fmt.Errorf("config: admins[%d]: user id must be positive, got %d", i, id))
		}
	}

	if cfg.Gateway != nil {
		errs = appendErr(errs, cfg.Gateway.Validate())
	} else if cfg.Telegram.Mode == telegram.ModeWebhook {
		errs = append(errs, errors.New("config: webhook mode requires a gateway section"))
	}

	errs = appendErr(errs, cfg.Cache.Validate())
	errs = appendErr(errs, cfg.Telemetry.Validate())

	return errors.Join(errs...)
}

func validateShadow(s ShadowConfig) []error {
	var errs []error
	if s.Retention < time.Hour {
		errs = append(errs, fmt.Errorf("config: shadow.retention must be at least 1h, got %s", s.Retention))
	}
	if err := cron.ValidateSchedule(s.SweepSchedule); err != nil {
		errs = append(errs, fmt.Errorf("config: shadow.sweep_schedule: %w", err))
	}
	if s.PageSize < 1 || s.PageSize > transcript.MaxPageSize {
		errs = append(errs, fmt.Errorf("config: shadow.page_size must be 1-%d, got %d", transcript.MaxPageSize, s.PageSize))
	}
	return errs
}

func appendErr(errs []error, err error) []error {
	if err != nil {
		return append(errs, err)
	}
	return errs
}

// ParseLevel maps a log.level value to a slog level.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("config: log.level must be debug, info, warn or error, got %q", level)
	}
}
