package domain

import "context"

// Transport is the outbound side of the chat platform.
// A nil error means the platform acknowledged the request.
type Transport interface {
	SendMessage(ctx context.Context, chatID int64, text string, replyTo int) error
	SendPhoto(ctx context.Context, chatID int64, photoURL, caption string) error
	SendVideo(ctx context.Context, chatID int64, videoURL, caption string) error
	SendVideoFile(ctx context.Context, chatID int64, video RemuxedVideo, caption string) error
	SendVoice(ctx context.Context, chatID int64, audio []byte, caption string, replyTo int) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}
