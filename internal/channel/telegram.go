package channel

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"grouphelper/internal/bus"
	"grouphelper/internal/domain"
)

const (
	// Telegram counts its 4096 limit in UTF-16 units, which never exceed the
	// UTF-8 byte count.
	telegramMaxMsgLen  = 4000
	defaultPollTimeout = 30
)

// Telegram is the Bot API transport plus the long-polling receiver.
type Telegram struct {
	bot         *tgbotapi.BotAPI
	pollTimeout int
	logger      *slog.Logger
}

var _ domain.Transport = (*Telegram)(nil)

type TelegramConfig struct {
	Token       string
	APIEndpoint string // tgbotapi endpoint format, defaults to tgbotapi.APIEndpoint
	PollTimeout int    // seconds
	HTTPClient  *http.Client
	Logger      *slog.Logger
}

// NewTelegram connects to the Bot API and verifies the token with getMe.
func NewTelegram(cfg TelegramConfig) (*Telegram, error) {
	if cfg.APIEndpoint == "" {
		cfg.APIEndpoint = tgbotapi.APIEndpoint
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = defaultPollTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	tgbotapi.SetLogger(botLogger{cfg.Logger})

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, cfg.APIEndpoint, cfg.HTTPClient)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	cfg.Logger.Info("telegram bot connected", "username", bot.Self.UserName, "id", bot.Self.ID)

	return &Telegram{bot: bot, pollTimeout: cfg.PollTimeout, logger: cfg.Logger}, nil
}

// Username returns the bot's username without the leading @.
func (t *Telegram) Username() string { return t.bot.Self.UserName }

// Poll long-polls getUpdates starting at offset and publishes every update
// to b until ctx is cancelled. Any registered webhook is removed first since
// Telegram refuses getUpdates while one is set.
func (t *Telegram) Poll(ctx context.Context, b *bus.UpdateBus, offset int) error {
	if _, err := t.bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		t.logger.Warn("delete webhook failed", "err", err)
	}

	u := tgbotapi.NewUpdate(offset)
	u.Timeout = t.pollTimeout
	u.AllowedUpdates = []string{"message"}
	updates := t.bot.GetUpdatesChan(u)

	t.logger.Info("telegram polling started", "offset", offset)
	for {
		select {
		case <-ctx.Done():
			t.logger.Info("telegram polling stopping")
			t.bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.Publish(ctx, update)
		}
	}
}

// SetWebhook registers url for update delivery. Telegram echoes secret in
// the X-Telegram-Bot-Api-Secret-Token header of every webhook request.
func (t *Telegram) SetWebhook(url, secret string) error {
	params := tgbotapi.Params{"url": url, "allowed_updates": `["message"]`}
	params.AddNonEmpty("secret_token", secret)
	if _, err := t.bot.MakeRequest("setWebhook", params); err != nil {
		return fmt.Errorf("set webhook: %w", err)
	}
	t.logger.Info("telegram webhook registered", "url", url)
	return nil
}

// SendMessage sends text, split into several messages when it exceeds the
// Bot API limit. Only the first part replies to replyTo.
func (t *Telegram) SendMessage(ctx context.Context, chatID int64, text string, replyTo int) error {
	for i, chunk := range splitMessage(text, telegramMaxMsgLen) {
		msg := tgbotapi.NewMessage(chatID, chunk)
		if i == 0 {
			msg.ReplyToMessageID = replyTo
		}
		if err := t.request(ctx, msg); err != nil {
			return fmt.Errorf("send message: %w", err)
		}
	}
	return nil
}

func (t *Telegram) SendPhoto(ctx context.Context, chatID int64, photoURL, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(photoURL))
	photo.Caption = caption
	if err := t.request(ctx, photo); err != nil {
		return fmt.Errorf("send photo: %w", err)
	}
	return nil
}

func (t *Telegram) SendVideo(ctx context.Context, chatID int64, videoURL, caption string) error {
	video := tgbotapi.NewVideo(chatID, tgbotapi.FileURL(videoURL))
	video.Caption = caption
	if err := t.request(ctx, video); err != nil {
		return fmt.Errorf("send video: %w", err)
	}
	return nil
}

// SendVideoFile uploads an in-memory video. VideoConfig has no width or
// height fields, so the multipart request is built by hand.
func (t *Telegram) SendVideoFile(ctx context.Context, chatID int64, v domain.RemuxedVideo, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	params := tgbotapi.Params{}
	params.AddNonZero64("chat_id", chatID)
	params.AddNonEmpty("caption", caption)
	params.AddNonZero("width", v.Width)
	params.AddNonZero("height", v.Height)
	params.AddNonZero("duration", v.Duration)
	params.AddNonEmpty("thumbnail", v.Thumbnail)
	params.AddBool("supports_streaming", true)

	files := []tgbotapi.RequestFile{{
		Name: "video",
		Data: tgbotapi.FileBytes{Name: "video.mp4", Bytes: v.Data},
	}}
	if _, err := t.bot.UploadFiles("sendVideo", params, files); err != nil {
		return fmt.Errorf("send video file (%d bytes): %w", len(v.Data), err)
	}
	return nil
}

func (t *Telegram) SendVoice(ctx context.Context, chatID int64, audio []byte, caption string, replyTo int) error {
	voice := tgbotapi.NewVoice(chatID, tgbotapi.FileBytes{Name: "speech.mp3", Bytes: audio})
	voice.Caption = caption
	voice.ReplyToMessageID = replyTo
	if err := t.request(ctx, voice); err != nil {
		return fmt.Errorf("send voice: %w", err)
	}
	return nil
}

func (t *Telegram) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := t.request(ctx, tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return nil
}

// request sends c unless ctx is already done. The Bot API client has no
// context support of its own, so cancellation is only checked up front.
func (t *Telegram) request(ctx context.Context, c tgbotapi.Chattable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := t.bot.Request(c)
	return err
}

// splitMessage splits a message into chunks that fit within maxLen bytes,
// preferring newline boundaries and never cutting a UTF-8 sequence.
func splitMessage(msg string, maxLen int) []string {
	if len(msg) <= maxLen {
		return []string{msg}
	}

	var chunks []string
	for len(msg) > 0 {
		if len(msg) <= maxLen {
			chunks = append(chunks, msg)
			break
		}

		cut := maxLen
		if idx := strings.LastIndex(msg[:maxLen], "\n"); idx > maxLen/2 {
			cut = idx + 1
		}
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}

		chunks = append(chunks, msg[:cut])
		msg = msg[cut:]
	}
	return chunks
}

// botLogger routes the Bot API library's own log lines into slog.
type botLogger struct{ l *slog.Logger }

// Println carries the library's retry notices, e.g. failed getUpdates calls.
func (b botLogger) Println(v ...any) {
	b.l.Warn(strings.TrimSpace(fmt.Sprintln(v...)), "component", "tgbotapi")
}

func (b botLogger) Printf(format string, v ...any) {
	b.l.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "tgbotapi")
}
