package bot

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	"grouphelper/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

type sent struct {
	method  string
	chatID  int64
	text    string
	replyTo int
	msgID   int
}

type fakeTransport struct {
	mu    sync.Mutex
	calls []sent
}

func (f *fakeTransport) record(s sent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, s)
	return nil
}

func (f *fakeTransport) SendMessage(_ context.Context, chatID int64, text string, replyTo int) error {
	return f.record(sent{method: "message", chatID: chatID, text: text, replyTo: replyTo})
}

func (f *fakeTransport) SendPhoto(_ context.Context, chatID int64, url, caption string) error {
	return f.record(sent{method: "photo", chatID: chatID, text: url})
}

func (f *fakeTransport) SendVideo(_ context.Context, chatID int64, url, caption string) error {
	return f.record(sent{method: "video", chatID: chatID, text: url})
}

func (f *fakeTransport) SendVideoFile(_ context.Context, chatID int64, _ domain.RemuxedVideo, caption string) error {
	return f.record(sent{method: "video_file", chatID: chatID})
}

func (f *fakeTransport) SendVoice(_ context.Context, chatID int64, audio []byte, caption string, replyTo int) error {
	return f.record(sent{method: "voice", chatID: chatID, text: caption + "|" + string(audio), replyTo: replyTo})
}

func (f *fakeTransport) DeleteMessage(_ context.Context, chatID int64, messageID int) error {
	return f.record(sent{method: "delete", chatID: chatID, msgID: messageID})
}

func (f *fakeTransport) snapshot() []sent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sent(nil), f.calls...)
}

// memStore keeps members and the update mark in memory, in insertion order.
type memStore struct {
	mu      sync.Mutex
	members []domain.GroupMember
	lastID  int
	saved   []int
	loadErr error
}

func (s *memStore) AddGroupMember(_ context.Context, m domain.GroupMember) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.members {
		if s.members[i].ChatID == m.ChatID && s.members[i].UserID == m.UserID {
			s.members[i].Username = m.Username
			s.members[i].Echo = true
			return nil
		}
	}
	m.Echo = true
	s.members = append(s.members, m)
	return nil
}

func (s *memStore) RemoveGroupMember(_ context.Context, chatID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.members {
		if s.members[i].ChatID == chatID && s.members[i].UserID == userID {
			s.members[i].Echo = false
		}
	}
	return nil
}

func (s *memStore) GroupMembers(_ context.Context, chatID int64) ([]domain.GroupMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.GroupMember
	for _, m := range s.members {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *memStore) LastUpdateID(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastID, s.loadErr
}

func (s *memStore) SaveLastUpdateID(_ context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastID = id
	s.saved = append(s.saved, id)
	return nil
}

type fakeMedia struct {
	mu   sync.Mutex
	urls []string
	err  error
}

func (f *fakeMedia) Handle(_ context.Context, _ domain.Transport, _ int64, _ int, postURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, postURL)
	return f.err
}

func (f *fakeMedia) handled() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.urls...)
}

type fakeConverter struct {
	reply string
	err   error
}

func (f fakeConverter) Convert(context.Context, string) (string, error) { return f.reply, f.err }

type fakeSpeech struct {
	texts []string
	err   error
}

func (f *fakeSpeech) Synthesize(_ context.Context, text string) ([]byte, error) {
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	return []byte("mp3"), nil
}

var errBoom = errors.New("boom")
