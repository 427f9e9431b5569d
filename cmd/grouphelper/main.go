package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"grouphelper/internal/config"
	"grouphelper/internal/provider"
)

var (
	version    = "1.0.0"
	logger     *slog.Logger
	configPath string // overridable via --config flag
	envFile    string
)

func main() {
	logger = newLogger("info")

	root := &cobra.Command{
		Use:   "grouphelper",
		Short: "grouphelper: Telegram group helper bot",
		Long: `grouphelper replaces shared Reddit links with the media they point to,
converts currency mentions, mentions registered members with /all and reads
text aloud with /tts.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadEnvFile()
		},
	}

	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml (default: ~/.grouphelper/config.yaml)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")

	root.AddCommand(initCmd())
	root.AddCommand(runCmd())
	root.AddCommand(resolveCmd())
	root.AddCommand(configCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(backupCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadEnvFile exports the dotenv file into the process environment. Values
// already set in the environment win. A missing default file is fine.
func loadEnvFile() error {
	if envFile == "" {
		return nil
	}
	err := godotenv.Load(envFile)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", envFile, err)
	}
	logger.Debug("env file loaded", "path", envFile)
	return nil
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// resolveConfigPath returns the config path from --config flag or default.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath()
}

// loadConfig loads the config, resolves Secret Manager references and, when
// validate is set, rejects invalid values.
func loadConfig(ctx context.Context, validate bool) (*config.Config, error) {
	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if config.HasSecretRefs(cfg) {
		sm, err := provider.NewSecretManager(ctx, provider.SecretsConfig{
			Endpoint: cfg.Secrets.Endpoint,
			Logger:   logger,
		})
		if err != nil {
			return nil, err
		}
		if err := config.ResolveSecrets(ctx, cfg, sm); err != nil {
			return nil, err
		}
	}

	if validate {
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
	}
	logger = newLogger(cfg.General.LogLevel)
	return cfg, nil
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			if _, err := os.Stat(cfgPath); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
			}
			if err := config.Save(cfgPath, config.Defaults()); err != nil {
				return err
			}
			logger.Info("initialized", "config", cfgPath)
			fmt.Printf("Config written to %s\nSet telegram.token (or GROUPHELPER_TELEGRAM_TOKEN) before running.\n", cfgPath)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	return cmd
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(resolveConfigPath())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "show [path]",
		Short: "Show the effective config with secrets masked, or one value (e.g. telegram.mode)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(resolveConfigPath())
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			var out any = config.Sanitize(cfg)
			if len(args) == 1 {
				if out, err = config.GetByPath(config.Sanitize(cfg), args[0]); err != nil {
					return err
				}
			}
			data, err := yaml.Marshal(out)
			if err != nil {
				return err
			}
			fmt.Print(string(data))
			return nil
		},
	})

	return cmd
}
