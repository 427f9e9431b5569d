// Package ffmpeg combines the separate DASH video and audio streams that
// Reddit serves into a single fragmented MP4 held in memory.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"grouphelper/internal/domain"
)

const (
	// DefaultSizeLimit matches the Bot API upload ceiling for videos.
	DefaultSizeLimit = 50_000_000

	defaultTimeout   = 2 * time.Minute
	defaultWaitDelay = 5 * time.Second
	stderrLimit      = 8 << 10
)

// RemuxerConfig configures the remux engine.
type RemuxerConfig struct {
	Path      string // ffmpeg binary; looked up in PATH when empty
	Timeout   time.Duration
	WaitDelay time.Duration
	Logger    *slog.Logger
}

// Remuxer runs ffmpeg with stream copy for both tracks.
type Remuxer struct {
	path      string
	timeout   time.Duration
	waitDelay time.Duration
	logger    *slog.Logger
}

// NewRemuxer resolves the ffmpeg binary up front so a missing install fails
// at startup instead of on the first video.
func NewRemuxer(cfg RemuxerConfig) (*Remuxer, error) {
	if cfg.Path == "" {
		cfg.Path = "ffmpeg"
	}
	path, err := exec.LookPath(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.WaitDelay <= 0 {
		cfg.WaitDelay = defaultWaitDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Remuxer{
		path:      path,
		timeout:   cfg.Timeout,
		waitDelay: cfg.WaitDelay,
		logger:    cfg.Logger,
	}, nil
}

// Path returns the resolved ffmpeg binary.
func (r *Remuxer) Path() string { return r.path }

// AudioURL derives the audio track of a Reddit DASH video by replacing the
// DASH_<resolution> segment, and everything after it, with DASH_audio.mp4.
func AudioURL(videoURL string) string {
	prefix, _, _ := strings.Cut(videoURL, "DASH_")
	return prefix + "DASH_audio.mp4"
}

// Remux muxes videoURL and audioURL into an ismv container written to stdout.
// Output is capped at sizeLimit bytes by ffmpeg itself. Diagnostic output on
// stderr is only logged; the call fails on a non-zero exit, a timeout, or an
// empty result.
func (r *Remuxer) Remux(ctx context.Context, videoURL, audioURL string, sizeLimit int64) ([]byte, error) {
	if sizeLimit <= 0 {
		sizeLimit = DefaultSizeLimit
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.path,
		"-nostdin",
		"-i", videoURL,
		"-i", audioURL,
		"-f", "ismv",
		"-fs", strconv.FormatInt(sizeLimit, 10),
		"-c:v", "copy",
		"-c:a", "copy",
		"-preset", "ultrafast",
		"-",
	)
	// Bounds how long Run waits for the pipes to drain after the process is
	// killed, e.g. when a grandchild still holds stdout open.
	cmd.WaitDelay = r.waitDelay

	var stdout bytes.Buffer
	stderr := &tailBuffer{limit: stderrLimit}
	cmd.Stdout = &stdout
	cmd.Stderr = stderr

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			r.logger.Warn("ffmpeg timed out", "video", videoURL, "elapsed", elapsed, "stderr", msg)
			return nil, fmt.Errorf("%w: timed out after %s", domain.ErrRemuxFailed, r.timeout)
		}
		r.logger.Warn("ffmpeg failed", "video", videoURL, "error", err, "stderr", msg)
		return nil, fmt.Errorf("%w: %w", domain.ErrRemuxFailed, err)
	}
	if stdout.Len() == 0 {
		r.logger.Warn("ffmpeg produced no output", "video", videoURL, "stderr", strings.TrimSpace(stderr.String()))
		return nil, fmt.Errorf("%w: empty output", domain.ErrRemuxFailed)
	}

	r.logger.Debug("remux complete", "video", videoURL, "bytes", stdout.Len(), "elapsed", elapsed)
	return stdout.Bytes(), nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	limit int
	buf   []byte
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if len(p) >= b.limit {
		b.buf = append(b.buf[:0], p[len(p)-b.limit:]...)
		return n, nil
	}
	if over := len(b.buf) + len(p) - b.limit; over > 0 {
		b.buf = append(b.buf[:0], b.buf[over:]...)
	}
	b.buf = append(b.buf, p...)
	return n, nil
}

func (b *tailBuffer) String() string { return string(b.buf) }
