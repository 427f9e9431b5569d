package channel

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"grouphelper/internal/bus"
	"grouphelper/internal/metrics"
)

const testUpdate = `{"update_id":1001,"message":{"message_id":5,"chat":{"id":-100,"type":"group"},"text":"hello"}}`

func newTestServer(b *bus.UpdateBus) *Server {
	return NewServer(ServerConfig{
		WebhookPath:   "/telegram",
		WebhookSecret: "s3cret",
		Metrics:       metrics.New().Handler(),
		Bus:           b,
		Logger:        testLogger(),
	})
}

func postUpdate(h http.Handler, body, secret string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/telegram", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if secret != "" {
		req.Header.Set(SecretTokenHeader, secret)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWebhook_AcceptsUpdate(t *testing.T) {
	b := bus.New(4, testLogger())
	s := newTestServer(b)

	rec := postUpdate(s.Handler(), testUpdate, "s3cret")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	select {
	case u := <-b.Updates():
		if u.UpdateID != 1001 || u.Message == nil || u.Message.Text != "hello" || u.Message.Chat.ID != -100 {
			t.Errorf("unexpected update: %+v", u)
		}
	default:
		t.Fatal("update not published")
	}
}

func TestWebhook_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		secret string
		want   int
	}{
		{"missing secret", testUpdate, "", http.StatusForbidden},
		{"wrong secret", testUpdate, "nope", http.StatusForbidden},
		{"bad json", `{"update_id":`, "s3cret", http.StatusBadRequest},
		{"no update id", `{"message":{"message_id":1}}`, "s3cret", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bus.New(4, testLogger())
			rec := postUpdate(newTestServer(b).Handler(), tt.body, tt.secret)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if b.Len() != 0 {
				t.Error("rejected update was published")
			}
		})
	}
}

func TestWebhook_UnavailableWhenBusClosed(t *testing.T) {
	b := bus.New(1, testLogger())
	b.Close()

	rec := postUpdate(newTestServer(b).Handler(), testUpdate, "s3cret")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestWebhook_NoSecretConfigured(t *testing.T) {
	b := bus.New(1, testLogger())
	s := NewServer(ServerConfig{WebhookPath: "/hook", Bus: b, Logger: testLogger()})

	req := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(testUpdate))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	b := bus.New(4, testLogger())
	s := newTestServer(b)
	postUpdate(s.Handler(), testUpdate, "s3cret")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Status string `json:"status"`
		Queued int    `json:"queued"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "ok" || body.Queued != 1 {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestMetricsRoute(t *testing.T) {
	s := newTestServer(bus.New(1, testLogger()))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Error("metrics output missing runtime collector")
	}
}

func TestWebhookRouteDisabledWithoutPath(t *testing.T) {
	s := NewServer(ServerConfig{Bus: bus.New(1, testLogger()), Logger: testLogger()})

	req := httptest.NewRequest(http.MethodPost, "/telegram", strings.NewReader(testUpdate))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
