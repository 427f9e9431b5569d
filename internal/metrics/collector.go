// Package metrics exposes the bot's Prometheus metrics from a private
// registry so tests and multiple bot instances never collide on the default one.
package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grouphelper/internal/domain"
)

// Collector holds every metric the bot records. A nil *Collector is valid and
// records nothing.
type Collector struct {
	registry *prometheus.Registry

	Updates         *prometheus.CounterVec
	MediaOutcomes   *prometheus.CounterVec
	Deliveries      *prometheus.CounterVec
	RemuxDuration   prometheus.Histogram
	RatesRefreshed  prometheus.Gauge
	InFlightUpdates prometheus.Gauge
}

// New creates a collector registered on its own registry, including the
// standard Go runtime and process collectors.
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		Updates: f.NewCounterVec(prometheus.CounterOpts{
			Name: "grouphelper_updates_total",
			Help: "Telegram updates received, by kind",
		}, []string{"kind"}),
		MediaOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "grouphelper_media_outcomes_total",
			Help: "Reddit links processed by the media pipeline, by outcome",
		}, []string{"outcome"}),
		Deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "grouphelper_deliveries_total",
			Help: "Send attempts made by the media pipeline, by action and result",
		}, []string{"action", "result"}),
		RemuxDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "grouphelper_remux_duration_seconds",
			Help:    "Wall time of ffmpeg remux runs",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		}),
		RatesRefreshed: f.NewGauge(prometheus.GaugeOpts{
			Name: "grouphelper_exchange_rates_refreshed_timestamp_seconds",
			Help: "Unix time of the last successful exchange rate refresh",
		}),
		InFlightUpdates: f.NewGauge(prometheus.GaugeOpts{
			Name: "grouphelper_updates_in_flight",
			Help: "Updates currently being handled",
		}),
	}
}

// Registry returns the registry backing this collector.
func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) ObserveUpdate(kind string) {
	if c == nil {
		return
	}
	c.Updates.WithLabelValues(kind).Inc()
}

// ObserveMediaOutcome counts a pipeline result under its error class.
func (c *Collector) ObserveMediaOutcome(err error) {
	if c == nil {
		return
	}
	c.MediaOutcomes.WithLabelValues(domain.Outcome(err)).Inc()
}

func (c *Collector) ObserveDelivery(action domain.DeliveryAction, err error) {
	if c == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
		if errors.Is(err, domain.ErrDeliveryFailed) {
			result = "rejected"
		}
	}
	c.Deliveries.WithLabelValues(action.String(), result).Inc()
}

func (c *Collector) ObserveRemux(d time.Duration) {
	if c == nil {
		return
	}
	c.RemuxDuration.Observe(d.Seconds())
}

func (c *Collector) MarkRatesRefreshed(at time.Time) {
	if c == nil {
		return
	}
	c.RatesRefreshed.Set(float64(at.Unix()))
}

// TrackInFlight increments the in-flight gauge and returns the matching decrement.
func (c *Collector) TrackInFlight() func() {
	if c == nil {
		return func() {}
	}
	c.InFlightUpdates.Inc()
	return c.InFlightUpdates.Dec
}
