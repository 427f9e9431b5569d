// Package media turns a shared Reddit link into exactly one send action and
// performs it on a chat transport.
package media

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"grouphelper/internal/domain"
	"grouphelper/internal/ffmpeg"
	"grouphelper/internal/imgur"
	"grouphelper/internal/metrics"
	"grouphelper/internal/reddit"
)

// PostFetcher loads post metadata with crossposts already unwrapped.
type PostFetcher interface {
	Fetch(ctx context.Context, postURL string) (*reddit.Post, error)
}

// AssetResolver looks an Imgur link up against the Imgur API.
type AssetResolver interface {
	Resolve(ctx context.Context, link string) (*imgur.Asset, error)
}

// Remuxer combines separate video and audio streams.
type Remuxer interface {
	Remux(ctx context.Context, videoURL, audioURL string, sizeLimit int64) ([]byte, error)
}

// PipelineConfig wires the pipeline's collaborators.
type PipelineConfig struct {
	Posts     PostFetcher
	Imgur     AssetResolver
	Remuxer   Remuxer
	SizeLimit int64
	Metrics   *metrics.Collector
	Logger    *slog.Logger
}

// Pipeline holds no per-request state; one instance serves all updates
// concurrently.
type Pipeline struct {
	posts     PostFetcher
	imgur     AssetResolver
	remuxer   Remuxer
	sizeLimit int64
	metrics   *metrics.Collector
	logger    *slog.Logger
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.SizeLimit <= 0 {
		cfg.SizeLimit = ffmpeg.DefaultSizeLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Pipeline{
		posts:     cfg.Posts,
		imgur:     cfg.Imgur,
		remuxer:   cfg.Remuxer,
		sizeLimit: cfg.SizeLimit,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
	}
}

// Resolve runs fetch, classification, Imgur lookup and remux for postURL and
// returns the send decision. It never touches the chat.
func (p *Pipeline) Resolve(ctx context.Context, postURL string) (*domain.DeliveryIntent, error) {
	post, err := p.posts.Fetch(ctx, postURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", postURL, err)
	}

	hasMedia, provider := reddit.Classify(post)
	if !hasMedia {
		return nil, fmt.Errorf("%w: domain %q", domain.ErrNoMedia, post.Domain)
	}

	c, err := p.classify(ctx, provider, post)
	if err != nil {
		return nil, err
	}

	var remuxed *domain.RemuxedVideo
	if c.RequiresRemux() {
		remuxed, err = p.remux(ctx, c.Video)
		if err != nil {
			return nil, err
		}
	}
	return SelectDelivery(c, post, remuxed)
}

func (p *Pipeline) classify(ctx context.Context, provider reddit.Provider, post *reddit.Post) (domain.Classification, error) {
	switch provider {
	case reddit.ProviderReddit:
		return reddit.ResolveMedia(post), nil
	case reddit.ProviderImgur:
		if p.imgur == nil {
			return domain.Classification{}, fmt.Errorf("%w: imgur client not configured", domain.ErrUnresolved)
		}
		asset, err := p.imgur.Resolve(ctx, post.URL)
		if err != nil {
			return domain.Classification{}, err
		}
		return imgur.Classify(asset)
	default:
		return domain.Classification{}, fmt.Errorf("%w: provider %s", domain.ErrNoMedia, provider)
	}
}

func (p *Pipeline) remux(ctx context.Context, v *domain.VideoStreams) (*domain.RemuxedVideo, error) {
	if p.remuxer == nil {
		return nil, fmt.Errorf("%w: ffmpeg not configured", domain.ErrRemuxFailed)
	}
	start := time.Now()
	data, err := p.remuxer.Remux(ctx, v.FallbackURL, ffmpeg.AudioURL(v.FallbackURL), p.sizeLimit)
	p.metrics.ObserveRemux(time.Since(start))
	if err != nil {
		return nil, err
	}
	return &domain.RemuxedVideo{
		Data:      data,
		Width:     v.Width,
		Height:    v.Height,
		Duration:  v.Duration,
		Thumbnail: v.Thumbnail,
	}, nil
}

// Deliver executes intent and, only when the send succeeded, deletes the
// message that carried the link. A failed send is not retried.
func (p *Pipeline) Deliver(ctx context.Context, t domain.Transport, chatID int64, messageID int, intent *domain.DeliveryIntent) error {
	err := send(ctx, t, chatID, intent)
	p.metrics.ObserveDelivery(intent.Action, err)
	if err != nil {
		return err
	}

	if err := t.DeleteMessage(ctx, chatID, messageID); err != nil {
		// The media is already in the chat; a leftover link is cosmetic.
		p.logger.Warn("delete original message failed", "chat_id", chatID, "message_id", messageID, "error", err)
	}
	return nil
}

// Handle resolves postURL and delivers the result in place of messageID.
func (p *Pipeline) Handle(ctx context.Context, t domain.Transport, chatID int64, messageID int, postURL string) error {
	intent, err := p.Resolve(ctx, postURL)
	if err == nil {
		err = p.Deliver(ctx, t, chatID, messageID, intent)
	}
	p.metrics.ObserveMediaOutcome(err)
	return err
}

func send(ctx context.Context, t domain.Transport, chatID int64, intent *domain.DeliveryIntent) error {
	var err error
	switch intent.Action {
	case domain.ActionSendPhoto:
		err = t.SendPhoto(ctx, chatID, intent.URL, intent.Caption)
	case domain.ActionSendVideo:
		err = t.SendVideo(ctx, chatID, intent.URL, intent.Caption)
	case domain.ActionSendVideoFile:
		if intent.Video == nil {
			return fmt.Errorf("%w: %s without payload", domain.ErrDeliveryFailed, intent.Action)
		}
		err = t.SendVideoFile(ctx, chatID, *intent.Video, intent.Caption)
	default:
		return fmt.Errorf("%w: unknown action %d", domain.ErrDeliveryFailed, intent.Action)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", domain.ErrDeliveryFailed, intent.Action, err)
	}
	return nil
}
