package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"grouphelper/internal/domain"
	"grouphelper/internal/reddit"
)

const (
	cmdAll    = "all"
	cmdAdd    = "add"
	cmdRemove = "remove"
	cmdTTS    = "tts"

	senderMark = " 🐣"
)

func (d *Dispatcher) handleMessage(ctx context.Context, logger *slog.Logger, msg *tgbotapi.Message) {
	for _, e := range msg.Entities {
		switch e.Type {
		case "bot_command":
			name, ok := commandName(entityText(msg.Text, e), d.botUsername)
			if !ok {
				continue
			}
			d.handleCommand(ctx, logger, msg, name, textAfter(msg.Text, e))
		case "url":
			link := entityText(msg.Text, e)
			if reddit.IsPostURL(link) {
				d.handleLink(ctx, logger, msg, link)
			}
		}
	}

	if msg.Text != "" && d.currency != nil {
		d.convertCurrency(ctx, logger, msg)
	}
}

func (d *Dispatcher) handleCommand(ctx context.Context, logger *slog.Logger, msg *tgbotapi.Message, name, args string) {
	logger = logger.With("command", name)
	var err error
	switch name {
	case cmdAll:
		err = d.mentionAll(ctx, msg, args)
	case cmdAdd:
		err = d.addMember(ctx, logger, msg)
	case cmdRemove:
		err = d.removeMember(ctx, msg)
	case cmdTTS:
		err = d.speak(ctx, logger, msg, args)
	default:
		return
	}
	if err != nil {
		logger.Warn("command failed", "error", err)
		return
	}
	logger.Info("command handled")
}

// mentionAll posts the text after /all followed by one @mention per member
// with mentions on. The sender's own line is marked.
func (d *Dispatcher) mentionAll(ctx context.Context, msg *tgbotapi.Message, args string) error {
	members, err := d.members.GroupMembers(ctx, msg.Chat.ID)
	if err != nil {
		return err
	}
	if err := d.transport.SendMessage(ctx, msg.Chat.ID, mentionText(args, members, senderName(msg)), 0); err != nil {
		return err
	}
	d.deleteCommand(ctx, msg)
	return nil
}

func mentionText(args string, members []domain.GroupMember, sender string) string {
	var sb strings.Builder
	sb.WriteString(args)
	sb.WriteString("\n")
	for _, m := range members {
		if !m.Echo {
			continue
		}
		sb.WriteString("\n@")
		sb.WriteString(m.Username)
		if sender != "" && m.Username == sender {
			sb.WriteString(senderMark)
		}
	}
	return sb.String()
}

func (d *Dispatcher) addMember(ctx context.Context, logger *slog.Logger, msg *tgbotapi.Message) error {
	if msg.From == nil || msg.From.UserName == "" {
		// Without a username there is nothing to mention.
		logger.Info("add ignored: sender has no username")
		return nil
	}
	err := d.members.AddGroupMember(ctx, domain.GroupMember{
		ChatID:   msg.Chat.ID,
		UserID:   msg.From.ID,
		Username: msg.From.UserName,
		Echo:     true,
	})
	if err != nil {
		return err
	}
	d.deleteCommand(ctx, msg)
	return nil
}

func (d *Dispatcher) removeMember(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}
	if err := d.members.RemoveGroupMember(ctx, msg.Chat.ID, msg.From.ID); err != nil {
		return err
	}
	d.deleteCommand(ctx, msg)
	return nil
}

// speak answers /tts with a voice message replying to the command.
func (d *Dispatcher) speak(ctx context.Context, logger *slog.Logger, msg *tgbotapi.Message, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if d.speech == nil {
		logger.Info("tts ignored: speech synthesis not configured")
		return nil
	}
	audio, err := d.speech.Synthesize(ctx, text)
	if err != nil {
		return err
	}
	caption := "from: @" + senderName(msg)
	if err := d.transport.SendVoice(ctx, msg.Chat.ID, audio, caption, msg.MessageID); err != nil {
		return err
	}
	d.deleteCommand(ctx, msg)
	return nil
}

func (d *Dispatcher) handleLink(ctx context.Context, logger *slog.Logger, msg *tgbotapi.Message, link string) {
	err := d.media.Handle(ctx, d.transport, msg.Chat.ID, msg.MessageID, link)
	logger = logger.With("url", link, "outcome", domain.Outcome(err))
	switch {
	case err == nil:
		logger.Info("reddit media delivered")
	case errors.Is(err, domain.ErrNoMedia), errors.Is(err, domain.ErrGalleryUnsupported):
		logger.Info("reddit link skipped", "reason", err)
	default:
		logger.Warn("reddit media failed", "error", err)
	}
}

func (d *Dispatcher) convertCurrency(ctx context.Context, logger *slog.Logger, msg *tgbotapi.Message) {
	reply, err := d.currency.Convert(ctx, msg.Text)
	if err != nil {
		logger.Warn("currency conversion failed", "error", err)
		return
	}
	if reply == "" {
		return
	}
	if err := d.transport.SendMessage(ctx, msg.Chat.ID, reply, msg.MessageID); err != nil {
		logger.Warn("send currency conversion failed", "error", err)
	}
}

func (d *Dispatcher) deleteCommand(ctx context.Context, msg *tgbotapi.Message) {
	if err := d.transport.DeleteMessage(ctx, msg.Chat.ID, msg.MessageID); err != nil {
		d.logger.Warn("delete command message failed", "chat_id", msg.Chat.ID, "message_id", msg.MessageID, "error", err)
	}
}

func senderName(msg *tgbotapi.Message) string {
	if msg.From == nil {
		return ""
	}
	return msg.From.UserName
}
