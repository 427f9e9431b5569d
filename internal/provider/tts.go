package provider

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/api/option"
	texttospeech "google.golang.org/api/texttospeech/v1"
)

// TTSConfig configures Google Cloud Text-to-Speech.
type TTSConfig struct {
	APIKey       string
	Endpoint     string // overrides the API base URL, e.g. for tests
	LanguageCode string // defaults to "tr"
	HTTPClient   *http.Client
	Logger       *slog.Logger
}

// TTSProvider synthesizes speech through the Text-to-Speech REST API.
type TTSProvider struct {
	svc          *texttospeech.Service
	languageCode string
	logger       *slog.Logger
}

// NewTTSProvider builds the API client. An API key is enough for this API;
// no service account is needed.
func NewTTSProvider(ctx context.Context, cfg TTSConfig) (*TTSProvider, error) {
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "tr"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	svc, err := texttospeech.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create text-to-speech client: %w", err)
	}
	return &TTSProvider{svc: svc, languageCode: cfg.LanguageCode, logger: cfg.Logger}, nil
}

// Synthesize converts text to MP3 audio.
func (t *TTSProvider) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("empty text")
	}

	req := &texttospeech.SynthesizeSpeechRequest{
		Input:       &texttospeech.SynthesisInput{Text: text},
		Voice:       &texttospeech.VoiceSelectionParams{LanguageCode: t.languageCode},
		AudioConfig: &texttospeech.AudioConfig{AudioEncoding: "MP3"},
	}
	resp, err := t.svc.Text.Synthesize(req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("synthesize speech: %w", err)
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("decode audio content: %w", err)
	}
	if len(audio) == 0 {
		return nil, errors.New("synthesize speech: empty audio")
	}
	t.logger.Debug("speech synthesized", "chars", len(text), "bytes", len(audio))
	return audio, nil
}
