package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"grouphelper/internal/bot"
	"grouphelper/internal/bus"
	"grouphelper/internal/channel"
	"grouphelper/internal/config"
	"grouphelper/internal/currency"
	"grouphelper/internal/ffmpeg"
	"grouphelper/internal/imgur"
	"grouphelper/internal/media"
	"grouphelper/internal/metrics"
	"grouphelper/internal/provider"
	"grouphelper/internal/reddit"
	"grouphelper/internal/store"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot (long polling or webhook, per telegram.mode)",
		Long:  "Connects to Telegram and handles group messages until interrupted. Press Ctrl+C to stop.",
		RunE:  runBot,
	}
}

func runBot(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(ctx, true)
	if err != nil {
		return err
	}

	st, err := store.NewSQLiteStore(cfg.Store.DBPath, logger)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer st.Close()

	collector := metrics.New()

	tg, err := channel.NewTelegram(channel.TelegramConfig{
		Token:       cfg.Telegram.Token,
		APIEndpoint: cfg.Telegram.APIEndpoint,
		PollTimeout: cfg.Telegram.PollTimeout,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	pipeline := buildPipeline(cfg, collector)

	var converter bot.Converter
	if cfg.Currency.APIKey != "" {
		converter = currency.NewConverter(currency.ConverterConfig{
			Store: st,
			Source: provider.NewRatesClient(provider.RatesConfig{
				APIKey:  cfg.Currency.APIKey,
				URL:     cfg.Currency.APIURL,
				Timeout: cfg.Currency.Timeout,
				Logger:  logger,
			}),
			RefreshInterval: cfg.Currency.RefreshInterval,
			Metrics:         collector,
			Logger:          logger,
		})
	} else {
		logger.Info("currency conversion disabled: no currency.apiKey")
	}

	var speech bot.Synthesizer
	if cfg.TTS.APIKey != "" {
		tts, err := provider.NewTTSProvider(ctx, provider.TTSConfig{
			APIKey:       cfg.TTS.APIKey,
			Endpoint:     cfg.TTS.Endpoint,
			LanguageCode: cfg.TTS.LanguageCode,
			Logger:       logger,
		})
		if err != nil {
			return err
		}
		speech = tts
	} else {
		logger.Info("/tts disabled: no tts.apiKey")
	}

	updates := bus.New(cfg.Telegram.BusSize, logger)
	defer updates.Close()

	dispatcher := bot.NewDispatcher(bot.DispatcherConfig{
		Bus:           updates,
		Transport:     tg,
		Media:         pipeline,
		Members:       st,
		Updates:       st,
		Currency:      converter,
		Speech:        speech,
		BotUsername:   tg.Username(),
		MaxConcurrent: cfg.General.MaxConcurrentUpdates,
		HandleTimeout: cfg.General.HandleTimeout,
		Metrics:       collector,
		Logger:        logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dispatcher.Run(gctx) })

	switch cfg.Telegram.Mode {
	case "webhook":
		srv := channel.NewServer(channel.ServerConfig{
			Listen:        cfg.Telegram.Webhook.Listen,
			WebhookPath:   cfg.Telegram.Webhook.Path,
			WebhookSecret: cfg.Telegram.Webhook.Secret,
			Metrics:       metricsHandler(cfg, collector),
			MetricsPath:   cfg.Metrics.Path,
			Bus:           updates,
			Logger:        logger,
		})
		g.Go(func() error { return srv.Run(gctx) })
		if err := tg.SetWebhook(cfg.Telegram.Webhook.URL, cfg.Telegram.Webhook.Secret); err != nil {
			stop()
			g.Wait()
			return err
		}
	default:
		last, err := st.LastUpdateID(ctx)
		if err != nil {
			logger.Warn("load last update id failed, polling from the oldest pending update", "error", err)
		}
		g.Go(func() error { return tg.Poll(gctx, updates, last+1) })

		if cfg.Metrics.Enabled {
			srv := channel.NewServer(channel.ServerConfig{
				Listen:      cfg.Metrics.Listen,
				Metrics:     collector.Handler(),
				MetricsPath: cfg.Metrics.Path,
				Logger:      logger,
			})
			g.Go(func() error { return srv.Run(gctx) })
		}
	}

	logger.Info("grouphelper started", "version", version, "mode", cfg.Telegram.Mode, "bot", tg.Username())
	err = g.Wait()
	logger.Info("grouphelper stopped")
	return err
}

func metricsHandler(cfg *config.Config, c *metrics.Collector) http.Handler {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return c.Handler()
}

// buildPipeline wires the media pipeline. Missing Imgur credentials or a
// missing ffmpeg binary only disable the parts that need them.
func buildPipeline(cfg *config.Config, collector *metrics.Collector) *media.Pipeline {
	posts := reddit.NewClient(reddit.ClientConfig{
		UserAgent:         cfg.Reddit.UserAgent,
		Timeout:           cfg.Reddit.Timeout,
		MaxCrosspostDepth: cfg.Reddit.MaxCrosspostDepth,
		HTTPClient:        provider.SharedHTTPClient(cfg.Reddit.Timeout),
		Logger:            logger,
	})

	var assets media.AssetResolver
	if cfg.Imgur.ClientID != "" {
		assets = imgur.NewClient(imgur.ClientConfig{
			ClientID:   cfg.Imgur.ClientID,
			APIBase:    cfg.Imgur.APIBase,
			Timeout:    cfg.Imgur.Timeout,
			HTTPClient: provider.SharedHTTPClient(cfg.Imgur.Timeout),
			Logger:     logger,
		})
	} else {
		logger.Warn("imgur.clientId not set: imgur links will be skipped")
	}

	var remuxer media.Remuxer
	rm, err := ffmpeg.NewRemuxer(ffmpeg.RemuxerConfig{
		Path:    cfg.FFmpeg.Path,
		Timeout: cfg.FFmpeg.Timeout,
		Logger:  logger,
	})
	if err != nil {
		logger.Warn("ffmpeg unavailable: reddit videos with separate audio will be skipped", "error", err)
	} else {
		remuxer = rm
	}

	return media.NewPipeline(media.PipelineConfig{
		Posts:     posts,
		Imgur:     assets,
		Remuxer:   remuxer,
		SizeLimit: cfg.FFmpeg.SizeLimitBytes,
		Metrics:   collector,
		Logger:    logger,
	})
}
