// Package bus hands Telegram updates from the receivers (long polling or the
// webhook) to the dispatcher.
package bus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	defaultBufferSize     = 100
	defaultPublishTimeout = 10 * time.Second
)

// UpdateBus is a buffered channel of inbound updates with a bounded wait when
// full.
type UpdateBus struct {
	updates        chan tgbotapi.Update
	publishTimeout time.Duration
	mu             sync.RWMutex
	closed         bool
	logger         *slog.Logger
}

func New(bufferSize int, logger *slog.Logger) *UpdateBus {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UpdateBus{
		updates:        make(chan tgbotapi.Update, bufferSize),
		publishTimeout: defaultPublishTimeout,
		logger:         logger,
	}
}

// Publish enqueues an update. When the buffer is full it waits up to the
// publish timeout instead of dropping right away. It reports whether the
// update was accepted.
func (b *UpdateBus) Publish(ctx context.Context, u tgbotapi.Update) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.logger.Warn("attempted to publish to closed bus", "update_id", u.UpdateID)
		return false
	}

	select {
	case b.updates <- u:
		return true
	default:
	}

	b.logger.Warn("update bus full, waiting", "update_id", u.UpdateID)
	timer := time.NewTimer(b.publishTimeout)
	defer timer.Stop()
	select {
	case b.updates <- u:
		return true
	case <-timer.C:
		b.logger.Error("update dropped: bus full", "update_id", u.UpdateID, "waited", b.publishTimeout)
		return false
	case <-ctx.Done():
		return false
	}
}

// Updates returns the receive side. It is closed by Close.
func (b *UpdateBus) Updates() <-chan tgbotapi.Update {
	return b.updates
}

// Len returns the number of queued updates.
func (b *UpdateBus) Len() int { return len(b.updates) }

func (b *UpdateBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.closed = true
		close(b.updates)
	}
}
