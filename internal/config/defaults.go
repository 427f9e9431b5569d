package config

import "time"

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:             "info",
			MaxConcurrentUpdates: 8,
			HandleTimeout:        3 * time.Minute,
		},
		Telegram: TelegramConfig{
			Mode:        "poll",
			PollTimeout: 30,
			BusSize:     100,
			Webhook: WebhookConfig{
				Listen: ":8080",
				Path:   "/telegram",
			},
		},
		Reddit: RedditConfig{
			Timeout:           10 * time.Second,
			MaxCrosspostDepth: 16,
		},
		Imgur: ImgurConfig{
			APIBase: "https://api.imgur.com/3",
			Timeout: 10 * time.Second,
		},
		FFmpeg: FFmpegConfig{
			Path:           "ffmpeg",
			Timeout:        2 * time.Minute,
			SizeLimitBytes: 50_000_000,
		},
		Currency: CurrencyConfig{
			APIURL:          "https://api.apilayer.com/exchangerates_data/latest",
			RefreshInterval: time.Hour,
			Timeout:         10 * time.Second,
		},
		TTS: TTSConfig{
			LanguageCode: "tr",
		},
		Store: StoreConfig{
			DBPath: "~/.grouphelper/grouphelper.db",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Listen:  ":9090",
			Path:    "/metrics",
		},
	}
}
