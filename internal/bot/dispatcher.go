// Package bot consumes Telegram updates from the bus and runs the group
// helper features on each message: member mentions, text to speech, Reddit
// media and currency conversion.
package bot

import (
	"context"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"grouphelper/internal/bus"
	"grouphelper/internal/domain"
	"grouphelper/internal/metrics"
)

const (
	defaultMaxConcurrent = 8
	defaultHandleTimeout = 3 * time.Minute
)

// MediaHandler resolves a Reddit link and posts its media to the chat.
type MediaHandler interface {
	Handle(ctx context.Context, t domain.Transport, chatID int64, messageID int, postURL string) error
}

// Converter answers currency mentions. An empty reply means nothing to say.
type Converter interface {
	Convert(ctx context.Context, text string) (string, error)
}

// Synthesizer turns text into MP3 speech.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// DispatcherConfig wires the dispatcher. Currency and Speech are optional;
// their features are off when nil.
type DispatcherConfig struct {
	Bus           *bus.UpdateBus
	Transport     domain.Transport
	Media         MediaHandler
	Members       domain.MemberStore
	Updates       domain.UpdateLog
	Currency      Converter
	Speech        Synthesizer
	BotUsername   string
	MaxConcurrent int
	HandleTimeout time.Duration
	Metrics       *metrics.Collector
	Logger        *slog.Logger
}

// Dispatcher de-duplicates updates and handles them with bounded concurrency.
type Dispatcher struct {
	bus           *bus.UpdateBus
	transport     domain.Transport
	media         MediaHandler
	members       domain.MemberStore
	updates       domain.UpdateLog
	currency      Converter
	speech        Synthesizer
	botUsername   string
	maxConcurrent int
	handleTimeout time.Duration
	metrics       *metrics.Collector
	logger        *slog.Logger

	mu     sync.Mutex
	lastID int
	loaded bool
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = defaultMaxConcurrent
	}
	if cfg.HandleTimeout <= 0 {
		cfg.HandleTimeout = defaultHandleTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Dispatcher{
		bus:           cfg.Bus,
		transport:     cfg.Transport,
		media:         cfg.Media,
		members:       cfg.Members,
		updates:       cfg.Updates,
		currency:      cfg.Currency,
		speech:        cfg.Speech,
		botUsername:   cfg.BotUsername,
		maxConcurrent: cfg.MaxConcurrent,
		handleTimeout: cfg.HandleTimeout,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
	}
}

// Run consumes the bus until ctx is cancelled or the bus is closed, then
// waits for in-flight updates to finish.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("dispatcher started", "max_concurrent", d.maxConcurrent)

	var g errgroup.Group
	g.SetLimit(d.maxConcurrent)

	updates := d.bus.Updates()
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopping")
			return g.Wait()
		case u, ok := <-updates:
			if !ok {
				d.logger.Info("update bus closed, dispatcher stopping")
				return g.Wait()
			}
			if !d.accept(ctx, u.UpdateID) {
				continue
			}
			g.Go(func() error {
				d.HandleUpdate(ctx, u)
				return nil
			})
		}
	}
}

// accept reports whether id is newer than the last handled update and, if
// so, records it as handled. Telegram redelivers after restarts and webhook
// timeouts, so ids at or below the mark are dropped.
func (d *Dispatcher) accept(ctx context.Context, id int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.loaded {
		last, err := d.updates.LastUpdateID(ctx)
		if err != nil {
			d.logger.Warn("load last update id failed", "error", err)
		} else {
			if last > d.lastID {
				d.lastID = last
			}
			d.loaded = true
		}
	}

	if id <= d.lastID {
		d.metrics.ObserveUpdate("duplicate")
		d.logger.Debug("skipping handled update", "update_id", id, "last_update_id", d.lastID)
		return false
	}

	d.lastID = id
	if err := d.updates.SaveLastUpdateID(ctx, id); err != nil {
		d.logger.Warn("save last update id failed", "update_id", id, "error", err)
	}
	return true
}

// HandleUpdate runs every feature on one update. Errors are logged and
// counted, never reported to the chat.
func (d *Dispatcher) HandleUpdate(ctx context.Context, u tgbotapi.Update) {
	msg := u.Message
	if msg == nil || msg.Chat == nil {
		d.metrics.ObserveUpdate("ignored")
		return
	}
	d.metrics.ObserveUpdate("message")
	defer d.metrics.TrackInFlight()()

	ctx, cancel := context.WithTimeout(ctx, d.handleTimeout)
	defer cancel()

	logger := d.logger.With(
		"update_id", u.UpdateID,
		"chat_id", msg.Chat.ID,
		"trace_id", uuid.NewString(),
	)
	start := time.Now()
	d.handleMessage(ctx, logger, msg)
	logger.Debug("update handled", "duration", time.Since(start))
}
