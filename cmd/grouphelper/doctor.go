package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"

	"grouphelper/internal/config"
	"grouphelper/internal/ffmpeg"
	"grouphelper/internal/store"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostic checks on your grouphelper installation",
		Long: `Verifies that grouphelper's configuration, database, ffmpeg binary and
credentials are correctly set up. Reports pass/fail for each check.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			fmt.Printf("grouphelper doctor v%s\n", version)
			fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")

			passed := 0
			failed := 0
			warned := 0

			// 1. Config file exists
			if _, err := os.Stat(cfgPath); err != nil {
				printWarn("Config file", fmt.Sprintf("not found at %s, using defaults and environment", cfgPath))
				warned++
			} else {
				printPass("Config file", cfgPath)
				passed++
			}

			// 2. Config loads, secrets resolve, values validate
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			cfg, err := loadConfig(ctx, false)
			if err != nil {
				printFail("Config", err.Error())
				failed++
				fmt.Printf("\n%d passed, %d failed\n", passed, failed)
				return fmt.Errorf("config unusable")
			}
			if err := config.Validate(cfg); err != nil {
				printFail("Config validation", err.Error())
				failed++
			} else {
				printPass("Config validation", "valid")
				passed++
			}

			// 3. Telegram token
			if cfg.Telegram.Token == "" {
				printFail("Telegram token", "not set (telegram.token or GROUPHELPER_TELEGRAM_TOKEN)")
				failed++
			} else {
				printPass("Telegram token", "present")
				passed++
			}

			// 4. Database writable and migrated
			if schema, err := checkDatabase(cfg.Store.DBPath); err != nil {
				printFail("Database", err.Error())
				failed++
			} else {
				printPass("Database", fmt.Sprintf("%s (schema v%d)", cfg.Store.DBPath, schema))
				passed++
			}

			// 5. ffmpeg binary
			if rm, err := ffmpeg.NewRemuxer(ffmpeg.RemuxerConfig{Path: cfg.FFmpeg.Path, Logger: logger}); err != nil {
				printWarn("ffmpeg", "not found: reddit videos with separate audio will be skipped")
				warned++
			} else {
				printPass("ffmpeg", rm.Path())
				passed++
			}

			// 6. Optional credentials
			for _, c := range []struct{ name, value, missing string }{
				{"Imgur client id", cfg.Imgur.ClientID, "imgur links will be skipped"},
				{"Currency API key", cfg.Currency.APIKey, "currency conversion disabled"},
				{"TTS API key", cfg.TTS.APIKey, "/tts disabled"},
			} {
				if c.value == "" {
					printWarn(c.name, c.missing)
					warned++
				} else {
					printPass(c.name, "present")
					passed++
				}
			}

			// 7. Listener ports
			if cfg.Telegram.Mode == "webhook" {
				if err := checkPort(cfg.Telegram.Webhook.Listen); err != nil {
					printWarn("Webhook listener", fmt.Sprintf("%s may be in use: %v", cfg.Telegram.Webhook.Listen, err))
					warned++
				} else {
					printPass("Webhook listener", cfg.Telegram.Webhook.Listen+" available")
					passed++
				}
			} else if cfg.Metrics.Enabled {
				if err := checkPort(cfg.Metrics.Listen); err != nil {
					printWarn("Metrics listener", fmt.Sprintf("%s may be in use: %v", cfg.Metrics.Listen, err))
					warned++
				} else {
					printPass("Metrics listener", cfg.Metrics.Listen+" available")
					passed++
				}
			}

			// Summary
			fmt.Printf("\n━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
			fmt.Printf("Results: %d passed, %d warnings, %d failed\n", passed, warned, failed)
			if failed > 0 {
				fmt.Printf("\nPlease fix the failed checks before running grouphelper.\n")
				return fmt.Errorf("%d check(s) failed", failed)
			}
			if warned > 0 {
				fmt.Printf("\ngrouphelper should work but some features are off.\n")
			} else {
				fmt.Printf("\nAll checks passed! grouphelper is ready to run.\n")
			}
			return nil
		},
	}
}

// checkDatabase opens the store, which creates and migrates the file, and
// checks it answers.
func checkDatabase(dbPath string) (int, error) {
	st, err := store.NewSQLiteStore(dbPath, logger)
	if err != nil {
		return 0, err
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := st.Ping(ctx); err != nil {
		return 0, fmt.Errorf("cannot ping: %w", err)
	}
	return st.Version()
}

func checkPort(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	ln.Close()
	return nil
}

func printPass(check, detail string) {
	fmt.Printf("  [PASS] %-20s %s\n", check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  [FAIL] %-20s %s\n", check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  [WARN] %-20s %s\n", check, detail)
}
