// Package currency answers chat messages that mention an amount of money with
// the equivalent in Turkish lira, or in dollars for lira amounts.
package currency

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"grouphelper/internal/domain"
	"grouphelper/internal/metrics"
)

const DefaultRefreshInterval = time.Hour

// RateSource returns how much of each currency code one lira buys.
type RateSource interface {
	Latest(ctx context.Context) (map[string]float64, error)
}

// Mention is a currency keyword found in a message with the amount before it.
type Mention struct {
	Currency Currency
	Amount   float64
}

// Find locates the first mention in text, searching currencies in priority
// order. ok is false when no keyword is present. A keyword without a
// parsable amount in the preceding word yields a zero Amount.
func Find(text string) (m Mention, ok bool) {
	words := strings.Fields(strings.ToLower(text))
	for _, c := range priority {
		for i, w := range words {
			if _, hit := keywords[c][w]; !hit {
				continue
			}
			m.Currency = c
			if i > 0 {
				m.Amount = parseAmount(words[i-1])
			}
			return m, true
		}
	}
	return Mention{}, false
}

// Mentions reports whether text contains any currency keyword as a word.
func Mentions(text string) bool {
	_, ok := Find(text)
	return ok
}

func parseAmount(word string) float64 {
	v, err := strconv.ParseFloat(strings.ReplaceAll(word, ",", "."), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// ConverterConfig configures a Converter.
type ConverterConfig struct {
	Store           domain.RateStore
	Source          RateSource
	RefreshInterval time.Duration
	Metrics         *metrics.Collector
	Logger          *slog.Logger
	Now             func() time.Time
}

// Converter formats conversions using rates cached in the store.
type Converter struct {
	store   domain.RateStore
	source  RateSource
	refresh time.Duration
	metrics *metrics.Collector
	logger  *slog.Logger
	now     func() time.Time
	group   singleflight.Group
}

func NewConverter(cfg ConverterConfig) *Converter {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Converter{
		store:   cfg.Store,
		source:  cfg.Source,
		refresh: cfg.RefreshInterval,
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
		now:     cfg.Now,
	}
}

// Convert returns the reply for text, or "" when the message mentions no
// currency or no non-zero amount.
func (c *Converter) Convert(ctx context.Context, text string) (string, error) {
	m, ok := Find(text)
	if !ok || m.Amount == 0 {
		return "", nil
	}

	rates, err := c.rates(ctx)
	if err != nil {
		return "", err
	}
	return Format(m, rates), nil
}

// Format renders a mention converted with rates. Non-lira amounts are
// divided by the lira-based rate to get lira; lira amounts are divided by
// the lira-per-dollar rate to get dollars.
func Format(m Mention, r *domain.ExchangeRates) string {
	var rate float64
	switch m.Currency {
	case EUR:
		rate = r.EUR
	case USD:
		rate = r.USD
	case GBP:
		rate = r.GBP
	case TRY:
		rate = r.Lira
	}
	target := TRY.Symbol()
	if m.Currency == TRY {
		target = USD.Symbol()
	}
	return fmt.Sprintf("%s%s = %s%s", formatAmount(m.Amount), m.Currency.Symbol(), formatAmount(m.Amount/rate), target)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

// rates returns stored rates, refreshing them first when they are older than
// the refresh interval. Concurrent callers share one refresh. A failed
// refresh falls back to stale rates when any exist.
func (c *Converter) rates(ctx context.Context) (*domain.ExchangeRates, error) {
	stored, err := c.store.ExchangeRates(ctx)
	if err != nil {
		return nil, fmt.Errorf("load exchange rates: %w", err)
	}
	if stored != nil && c.now().Sub(stored.UpdatedAt) <= c.refresh {
		return stored, nil
	}

	v, err, _ := c.group.Do("refresh", func() (any, error) {
		return c.Refresh(ctx)
	})
	if err != nil {
		if stored != nil {
			c.logger.Warn("exchange rate refresh failed, using stale rates", "age", c.now().Sub(stored.UpdatedAt), "error", err)
			return stored, nil
		}
		return nil, err
	}
	return v.(*domain.ExchangeRates), nil
}

// Refresh fetches fresh rates and stores them.
func (c *Converter) Refresh(ctx context.Context) (*domain.ExchangeRates, error) {
	if c.source == nil {
		return nil, fmt.Errorf("refresh exchange rates: no rate source configured")
	}
	latest, err := c.source.Latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh exchange rates: %w", err)
	}
	usd := latest["USD"]
	if usd == 0 || latest["EUR"] == 0 || latest["GBP"] == 0 {
		return nil, fmt.Errorf("refresh exchange rates: incomplete rates %v", latest)
	}

	r := &domain.ExchangeRates{
		EUR:       latest["EUR"],
		USD:       usd,
		GBP:       latest["GBP"],
		Lira:      1 / usd,
		UpdatedAt: c.now(),
	}
	if err := c.store.SaveExchangeRates(ctx, *r); err != nil {
		return nil, fmt.Errorf("save exchange rates: %w", err)
	}
	c.metrics.MarkRatesRefreshed(r.UpdatedAt)
	c.logger.Info("exchange rates refreshed", "eur", r.EUR, "usd", r.USD, "gbp", r.GBP)
	return r, nil
}
