// Package app provides the shadowbot entry point shared by the foreground
// command and the system service.
package app

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/delixor/shadowbot/internal/config"
	"github.com/delixor/shadowbot/internal/core"
	"github.com/delixor/shadowbot/internal/security"
)

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, ResolveConfigPath is called automatically.
	ConfigPath string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// DataDir overrides the default persistent data directory.
	DataDir string
}

// Instance is a wired but not yet started application.
type Instance struct {
	app    *core.App
	logger *slog.Logger
}

// Prepare loads configuration, authenticates the bot token with getMe and
// wires every component. Polling, listeners and jobs wait for Start.
func Prepare(params RunParams) (*Instance, error) {
	cfgPath := params.ConfigPath
	if cfgPath == "" {
		resolved, err := ResolveConfigPath()
		if err != nil {
			return nil, err
		}
		cfgPath = resolved
	}

	dataDir := params.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir()
	}

	cfg, err := LoadConfig(cfgPath, dataDir)
	if err != nil {
		return nil, err
	}

	logger := NewLogger(cfg)
	logger.Info("configuration loaded", "path", cfgPath, "mode", cfg.Telegram.Mode, "version", params.Version)

	appCtx := core.NewAppContext(logger, cfg.DataDir)
	appCtx.RegisterService("config.path", cfgPath)

	application, err := wire(cfg, appCtx, params.Version)
	if err != nil {
		return nil, err
	}
	return &Instance{app: application, logger: logger}, nil
}

// Start starts every module. On failure the modules already started are
// stopped again.
func (i *Instance) Start() error {
	return i.app.Start()
}

// Stop stops every module in reverse order.
func (i *Instance) Stop() {
	i.app.Stop()
	i.logger.Info("shutdown complete")
}

// Run loads configuration, starts all modules, and blocks until a shutdown
// signal is received.
func Run(params RunParams) error {
	inst, err := Prepare(params)
	if err != nil {
		return err
	}
	if err := inst.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	sig := <-sigCh
	inst.logger.Info("shutdown signal received", "signal", sig.String())
	inst.Stop()
	return nil
}

// LoadConfig loads .env files next to the config file and in the working
// directory, then reads, defaults and validates the configuration.
func LoadConfig(path, dataDir string) (*config.Config, error) {
	for _, dir := range []string{filepath.Dir(path), "."} {
		if _, err := config.LoadDotEnv(dir); err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	cfg.Defaults(dataDir)
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewLogger builds the process logger. Output goes to stderr as text, with
// the configured secrets and known credential formats redacted.
func NewLogger(cfg *config.Config) *slog.Logger {
	level, _ := config.ParseLevel(cfg.Log.Level)
	inner := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(security.NewRedactingHandler(inner, NewRedactor(cfg)))
}

// NewRedactor returns a redactor that knows every secret in cfg.
func NewRedactor(cfg *config.Config) *security.Redactor {
	r := security.NewRedactor()
	r.AddLiteral(cfg.Telegram.Token)
	r.AddLiteral(cfg.Telegram.WebhookSecret)
	r.AddLiteral(cfg.Cache.RedisPassword)
	if cfg.Gateway != nil {
		r.AddLiteral(cfg.Gateway.Auth.BearerToken)
		r.AddLiteral(cfg.Gateway.Auth.BasicPass)
	}
	return r
}

// ResolveConfigPath searches for a config file in standard locations.
// Search order: $XDG_CONFIG_HOME/shadowbot/shadowbot.yaml → ~/.config/shadowbot/shadowbot.yaml → ./shadowbot.yaml
func ResolveConfigPath() (string, error) {
	candidates := ConfigCandidates()
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no configuration file found (searched: %v)", candidates)
}

// ConfigCandidates lists the config locations in search order. The first
// entry is where `config init` writes by default.
func ConfigCandidates() []string {
	var candidates []string

	if xdg, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok && xdg != "" {
		candidates = append(candidates, filepath.Join(xdg, "shadowbot", "shadowbot.yaml"))
	} else if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".config", "shadowbot", "shadowbot.yaml"))
	}

	return append(candidates, "shadowbot.yaml")
}

// DefaultDataDir returns the default persistent data directory.
// Uses $XDG_DATA_HOME/shadowbot if set, otherwise ~/.local/share/shadowbot per the XDG spec.
func DefaultDataDir() string {
	if dir, ok := os.LookupEnv("XDG_DATA_HOME"); ok && dir != "" {
		return filepath.Join(dir, "shadowbot")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "shadowbot")
}
