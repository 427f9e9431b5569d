package channel

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"grouphelper/internal/bus"
)

// SecretTokenHeader carries the secret_token given to setWebhook.
const SecretTokenHeader = "X-Telegram-Bot-Api-Secret-Token"

const maxUpdateBody = 1 << 20

// ServerConfig configures the HTTP side of the bot: the Telegram webhook
// receiver, health checks and the metrics endpoint.
type ServerConfig struct {
	Listen        string
	WebhookPath   string // empty disables the webhook route
	WebhookSecret string
	Metrics       http.Handler
	MetricsPath   string
	Bus           *bus.UpdateBus
	Logger        *slog.Logger
}

// Server serves the webhook and operational endpoints.
type Server struct {
	cfg    ServerConfig
	router *chi.Mux
	logger *slog.Logger
}

func NewServer(cfg ServerConfig) *Server {
	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	s := &Server{cfg: cfg, logger: cfg.Logger}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.CleanPath)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"status": "ok", "queued": s.queued()})
	})
	if s.cfg.Metrics != nil {
		r.Method(http.MethodGet, s.cfg.MetricsPath, s.cfg.Metrics)
	}
	if s.cfg.WebhookPath != "" && s.cfg.Bus != nil {
		r.Post(s.cfg.WebhookPath, s.handleUpdate)
	}
	return r
}

func (s *Server) queued() int {
	if s.cfg.Bus == nil {
		return 0
	}
	return s.cfg.Bus.Len()
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting", "listen", s.cfg.Listen, "webhook", s.cfg.WebhookPath != "")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("http server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err, ok := <-errCh:
		if !ok {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	}
}

// handleUpdate accepts one Telegram update. A non-2xx answer makes Telegram
// redeliver, so a full bus answers 503.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if s.cfg.WebhookSecret != "" {
		got := r.Header.Get(SecretTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.WebhookSecret)) != 1 {
			s.logger.Warn("webhook request with bad secret token", "remote", r.RemoteAddr)
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxUpdateBody))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil || update.UpdateID == 0 {
		http.Error(w, "Invalid update", http.StatusBadRequest)
		return
	}

	if !s.cfg.Bus.Publish(r.Context(), update) {
		http.Error(w, "Busy", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}
