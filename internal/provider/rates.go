package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultRatesURL = "https://api.apilayer.com/exchangerates_data/latest"

// RatesConfig configures the exchange rates client.
type RatesConfig struct {
	APIKey     string
	URL        string
	Base       string   // defaults to TRY
	Symbols    []string // defaults to EUR, USD, GBP
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *slog.Logger

	retry retryPolicy
}

// RatesClient fetches the latest exchange rates from the apilayer
// exchangerates_data API.
type RatesClient struct {
	apiKey  string
	url     string
	base    string
	symbols []string
	client  *http.Client
	retry   retryPolicy
	logger  *slog.Logger
}

func NewRatesClient(cfg RatesConfig) *RatesClient {
	if cfg.URL == "" {
		cfg.URL = defaultRatesURL
	}
	if cfg.Base == "" {
		cfg.Base = "TRY"
	}
	if len(cfg.Symbols) == 0 {
		cfg.Symbols = []string{"EUR", "USD", "GBP"}
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = SharedHTTPClient(cfg.Timeout)
	}
	if cfg.retry.maxRetries == 0 && cfg.retry.baseDelay == 0 {
		cfg.retry = defaultRetry
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &RatesClient{
		apiKey:  cfg.APIKey,
		url:     cfg.URL,
		base:    cfg.Base,
		symbols: cfg.Symbols,
		client:  cfg.HTTPClient,
		retry:   cfg.retry,
		logger:  cfg.Logger,
	}
}

type ratesResponse struct {
	Success bool               `json:"success"`
	Base    string             `json:"base"`
	Rates   map[string]float64 `json:"rates"`
	Error   *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// Latest returns how much of each symbol one unit of the base currency buys.
func (c *RatesClient) Latest(ctx context.Context) (map[string]float64, error) {
	q := url.Values{}
	q.Set("base", c.base)
	q.Set("symbols", strings.Join(c.symbols, ","))
	endpoint := c.url + "?" + q.Encode()

	resp, err := doWithRetry(ctx, c.client, c.retry, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("apikey", c.apiKey)
		return req, nil
	}, c.logger)
	if err != nil {
		return nil, fmt.Errorf("exchange rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("exchange rates: status %d: %s", resp.StatusCode, string(body))
	}

	var out ratesResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("exchange rates: decode: %w", err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("exchange rates: %s: %s", out.Error.Code, out.Error.Info)
	}
	for _, sym := range c.symbols {
		if v, ok := out.Rates[sym]; !ok || v <= 0 {
			return nil, fmt.Errorf("exchange rates: missing rate for %s", sym)
		}
	}
	return out.Rates, nil
}
