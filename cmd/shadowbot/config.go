package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/delixor/shadowbot/internal/config"
	"github.com/delixor/shadowbot/internal/telegram"
	"github.com/delixor/shadowbot/pkg/app"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	cmd.AddCommand(configCheckCmd(), configInitCmd())
	return cmd
}

func configCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check [path]",
		Short: "Validate configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := runParams(cmd)
			path := params.ConfigPath
			if len(args) == 1 {
				path = args[0]
			}
			if path == "" {
				resolved, err := app.ResolveConfigPath()
				if err != nil {
					return err
				}
				path = resolved
			}
			dataDir := params.DataDir
			if dataDir == "" {
				dataDir = app.DefaultDataDir()
			}

			cfg, err := app.LoadConfig(path, dataDir)
			if err != nil {
				return err
			}

			fmt.Printf("Configuration OK: %s\n", path)
			fmt.Printf("  mode:      %s\n", cfg.Telegram.Mode)
			fmt.Printf("  database:  %s\n", databasePath(cfg))
			fmt.Printf("  retention: %s (sweep %q)\n", cfg.Shadow.Retention, cfg.Shadow.SweepSchedule)
			fmt.Printf("  plans:     %d, admins: %d\n", len(cfg.Subscription.Plans), len(cfg.Admins))
			if cfg.Gateway != nil {
				fmt.Printf("  gateway:   %s\n", cfg.Gateway.Bind)
			}

			if printCfg, _ := cmd.Flags().GetBool("print"); printCfg {
				out, err := redactedYAML(cfg)
				if err != nil {
					return err
				}
				fmt.Print("\n" + string(out))
			}
			return nil
		},
	}
	cmd.Flags().Bool("print", false, "Print the effective configuration with secrets redacted")
	return cmd
}

func databasePath(cfg *config.Config) string {
	if cfg.Storage.Path != "" {
		return cfg.Storage.Path
	}
	return filepath.Join(cfg.DataDir, "shadowbot.db")
}

// redactedYAML renders cfg with every secret replaced.
func redactedYAML(cfg *config.Config) ([]byte, error) {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("config: encoding: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}
	app.NewRedactor(cfg).RedactMap(tree)
	return yaml.Marshal(tree)
}

func configInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			if path == "" {
				path = app.ConfigCandidates()[0]
			}

			opts, err := askStarterOptions()
			if err != nil {
				return err
			}
			if err := config.Write(path, config.Starter(opts)); err != nil {
				return err
			}

			fmt.Printf("Configuration written to %s\n", path)
			if opts.Token == "" {
				fmt.Printf("Set %s before starting the bot.\n", config.TokenEnv)
			}
			return nil
		},
	}
	return cmd
}

func askStarterOptions() (config.StarterOptions, error) {
	var (
		opts      config.StarterOptions
		storeHere bool
		admins    string
	)
	opts.Mode = telegram.ModePolling

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Store the bot token in the file?").
				Description("Otherwise the file reads it from $"+config.TokenEnv+".").
				Value(&storeHere),
			huh.NewSelect[string]().
				Title("How should the bot receive updates?").
				Options(
					huh.NewOption("Long polling", telegram.ModePolling),
					huh.NewOption("Webhook (needs a public HTTPS URL)", telegram.ModeWebhook),
				).
				Value(&opts.Mode),
			huh.NewInput().
				Title("Admin user ids").
				Description("Comma separated. Admins may use /gift and /dump.").
				Value(&admins).
				Validate(func(s string) error {
					_, err := parseAdmins(s)
					return err
				}),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Bot token").
				EchoMode(huh.EchoModePassword).
				Value(&opts.Token).
				Validate(validateToken),
		).WithHideFunc(func() bool { return !storeHere }),
		huh.NewGroup(
			huh.NewInput().
				Title("Public webhook URL").
				Placeholder("https://bot.example.com/telegram/webhook").
				Value(&opts.WebhookURL).
				Validate(func(s string) error {
					if !strings.HasPrefix(s, "https://") {
						return errors.New("must start with https://")
					}
					return nil
				}),
			huh.NewInput().
				Title("Webhook secret token").
				EchoMode(huh.EchoModePassword).
				Value(&opts.WebhookSecret),
		).WithHideFunc(func() bool { return opts.Mode != telegram.ModeWebhook }),
		huh.NewGroup(
			huh.NewInput().
				Title("Redis address for the connection cache").
				Description("Leave empty to cache in memory.").
				Placeholder("127.0.0.1:6379").
				Value(&opts.RedisAddr),
		),
	)
	if err := form.Run(); err != nil {
		return opts, err
	}

	ids, err := parseAdmins(admins)
	if err != nil {
		return opts, err
	}
	opts.Admins = ids
	return opts, nil
}

func validateToken(s string) error {
	cfg := telegram.Config{Token: s}
	cfg.Defaults()
	return cfg.Validate()
}

// parseAdmins reads a comma separated list of positive user ids.
func parseAdmins(s string) ([]int64, error) {
	var ids []int64
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		id, err := strconv.ParseInt(field, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid user id %q", field)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
