package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. GROUPHELPER_TELEGRAM_TOKEN.
const EnvPrefix = "GROUPHELPER"

// Config is the root configuration for grouphelper.
type Config struct {
	General  GeneralConfig  `yaml:"general"`
	Telegram TelegramConfig `yaml:"telegram"`
	Reddit   RedditConfig   `yaml:"reddit"`
	Imgur    ImgurConfig    `yaml:"imgur"`
	FFmpeg   FFmpegConfig   `yaml:"ffmpeg"`
	Currency CurrencyConfig `yaml:"currency"`
	TTS      TTSConfig      `yaml:"tts"`
	Store    StoreConfig    `yaml:"store"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Secrets  SecretsConfig  `yaml:"secrets"`
}

type GeneralConfig struct {
	LogLevel             string        `yaml:"logLevel" split_words:"true"`
	MaxConcurrentUpdates int           `yaml:"maxConcurrentUpdates" split_words:"true"`
	HandleTimeout        time.Duration `yaml:"handleTimeout" split_words:"true"`
}

type TelegramConfig struct {
	Token       string        `yaml:"token"`
	Mode        string        `yaml:"mode"` // "poll" | "webhook"
	APIEndpoint string        `yaml:"apiEndpoint,omitempty" split_words:"true"`
	PollTimeout int           `yaml:"pollTimeout" split_words:"true"` // seconds
	BusSize     int           `yaml:"busSize" split_words:"true"`
	Webhook     WebhookConfig `yaml:"webhook"`
}

type WebhookConfig struct {
	URL    string `yaml:"url"` // public URL registered with setWebhook
	Listen string `yaml:"listen"`
	Path   string `yaml:"path"`
	Secret string `yaml:"secret,omitempty"`
}

type RedditConfig struct {
	UserAgent         string        `yaml:"userAgent,omitempty" split_words:"true"` // empty uses the built-in agent
	Timeout           time.Duration `yaml:"timeout"`
	MaxCrosspostDepth int           `yaml:"maxCrosspostDepth" split_words:"true"`
}

type ImgurConfig struct {
	ClientID string        `yaml:"clientId" split_words:"true"`
	APIBase  string        `yaml:"apiBase" split_words:"true"`
	Timeout  time.Duration `yaml:"timeout"`
}

type FFmpegConfig struct {
	Path           string        `yaml:"path"`
	Timeout        time.Duration `yaml:"timeout"`
	SizeLimitBytes int64         `yaml:"sizeLimitBytes" split_words:"true"`
}

// CurrencyConfig configures exchange rate lookups. Conversion replies are
// off while APIKey is empty.
type CurrencyConfig struct {
	APIKey          string        `yaml:"apiKey" split_words:"true"`
	APIURL          string        `yaml:"apiURL"`
	RefreshInterval time.Duration `yaml:"refreshInterval" split_words:"true"`
	Timeout         time.Duration `yaml:"timeout"`
}

// TTSConfig configures /tts. The command is ignored while APIKey is empty.
type TTSConfig struct {
	APIKey       string `yaml:"apiKey" split_words:"true"`
	Endpoint     string `yaml:"endpoint,omitempty"`
	LanguageCode string `yaml:"languageCode" split_words:"true"`
}

type StoreConfig struct {
	DBPath string `yaml:"dbPath" split_words:"true"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"` // ignored in webhook mode, which serves metrics on the webhook listener
	Path    string `yaml:"path"`
}

type SecretsConfig struct {
	Endpoint string `yaml:"endpoint,omitempty"`
}

// DefaultConfigDir returns the default config directory (~/.grouphelper).
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".grouphelper"
	}
	return filepath.Join(home, ".grouphelper")
}

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// Load reads the YAML file at path, then applies GROUPHELPER_* environment
// overrides. A missing file is not an error: defaults plus environment is a
// complete configuration for container deployments. Secret references are
// left for ResolveSecrets, and the result is not validated.
func Load(path string) (*Config, error) {
	path = ExpandPath(path)
	cfg := Defaults()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("cannot read config file %s: %w", path, err)
	default:
		// Substitute environment variables: ${VAR} and ${VAR:-default}
		data = []byte(ExpandEnvVars(string(data)))
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("cannot parse config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	cfg.Store.DBPath = ExpandPath(cfg.Store.DBPath)
	return cfg, nil
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns in config strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-(.*?))?\}`)

// ExpandEnvVars replaces ${VAR} with the environment variable value.
// Supports default values: ${VAR:-default} uses "default" when VAR is unset or empty.
func ExpandEnvVars(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultVal := ""
		hasDefault := len(groups) >= 3 && groups[2] != ""
		if hasDefault {
			defaultVal = groups[2]
		}

		val, exists := os.LookupEnv(varName)
		if !exists || val == "" {
			if hasDefault {
				return defaultVal
			}
			return match
		}
		return val
	})
}

// Save writes cfg as YAML. The file may hold tokens, so it is owner-only.
func Save(path string, cfg *Config) error {
	path = ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("cannot create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("cannot marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate checks that the config has valid values.
func Validate(cfg *Config) error {
	var errs []string

	switch cfg.General.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, "general.logLevel must be one of: debug, info, warn, error")
	}
	if cfg.General.MaxConcurrentUpdates < 1 || cfg.General.MaxConcurrentUpdates > 100 {
		errs = append(errs, "general.maxConcurrentUpdates must be between 1 and 100")
	}

	switch {
	case cfg.Telegram.Token == "":
		errs = append(errs, "telegram.token is required")
	case IsSecretRef(cfg.Telegram.Token):
		errs = append(errs, "telegram.token is an unresolved secret reference")
	}
	switch cfg.Telegram.Mode {
	case "poll":
	case "webhook":
		if cfg.Telegram.Webhook.URL == "" {
			errs = append(errs, "telegram.webhook.url is required in webhook mode")
		}
		if !strings.HasPrefix(cfg.Telegram.Webhook.Path, "/") {
			errs = append(errs, "telegram.webhook.path must start with /")
		}
	default:
		errs = append(errs, "telegram.mode must be one of: poll, webhook")
	}

	if cfg.Reddit.Timeout <= 0 {
		errs = append(errs, "reddit.timeout must be > 0")
	}
	if cfg.Reddit.MaxCrosspostDepth < 1 || cfg.Reddit.MaxCrosspostDepth > 64 {
		errs = append(errs, "reddit.maxCrosspostDepth must be between 1 and 64")
	}
	if cfg.Imgur.Timeout <= 0 {
		errs = append(errs, "imgur.timeout must be > 0")
	}
	if cfg.FFmpeg.Timeout <= 0 {
		errs = append(errs, "ffmpeg.timeout must be > 0")
	}
	if cfg.FFmpeg.SizeLimitBytes < 1 || cfg.FFmpeg.SizeLimitBytes > 50_000_000 {
		errs = append(errs, "ffmpeg.sizeLimitBytes must be between 1 and 50000000")
	}
	if cfg.Currency.RefreshInterval < time.Minute {
		errs = append(errs, "currency.refreshInterval must be at least 1m")
	}
	if cfg.Store.DBPath == "" {
		errs = append(errs, "store.dbPath is required")
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, "metrics.path must start with /")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ExpandPath resolves ~/ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
