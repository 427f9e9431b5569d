package bus

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestPublishAndReceive(t *testing.T) {
	b := New(2, testLogger())
	if !b.Publish(context.Background(), tgbotapi.Update{UpdateID: 1}) {
		t.Fatal("publish rejected")
	}
	if b.Len() != 1 {
		t.Errorf("len = %d", b.Len())
	}
	u := <-b.Updates()
	if u.UpdateID != 1 {
		t.Errorf("got update %d", u.UpdateID)
	}
}

func TestPublish_FullBusTimesOut(t *testing.T) {
	b := New(1, testLogger())
	b.publishTimeout = 20 * time.Millisecond

	b.Publish(context.Background(), tgbotapi.Update{UpdateID: 1})
	start := time.Now()
	if b.Publish(context.Background(), tgbotapi.Update{UpdateID: 2}) {
		t.Fatal("publish to a full bus should fail after the timeout")
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Error("publish returned before the timeout")
	}
}

func TestPublish_FullBusHonoursContext(t *testing.T) {
	b := New(1, testLogger())
	b.Publish(context.Background(), tgbotapi.Update{UpdateID: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if b.Publish(ctx, tgbotapi.Update{UpdateID: 2}) {
		t.Fatal("publish with cancelled context should fail")
	}
}

func TestPublish_WaitsForSpace(t *testing.T) {
	b := New(1, testLogger())
	b.Publish(context.Background(), tgbotapi.Update{UpdateID: 1})

	go func() {
		time.Sleep(10 * time.Millisecond)
		<-b.Updates()
	}()
	if !b.Publish(context.Background(), tgbotapi.Update{UpdateID: 2}) {
		t.Fatal("publish should succeed once space frees up")
	}
}

func TestClose(t *testing.T) {
	b := New(1, testLogger())
	b.Close()
	b.Close()

	if b.Publish(context.Background(), tgbotapi.Update{UpdateID: 1}) {
		t.Fatal("publish after close should fail")
	}
	if _, ok := <-b.Updates(); ok {
		t.Fatal("updates channel should be closed")
	}
}
