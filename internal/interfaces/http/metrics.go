package http

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/baccarun/internal/session"
)

// MetricsRegistry holds all Prometheus metrics for the service
type MetricsRegistry struct {
	registry *prometheus.Registry

	// Prediction metrics
	Predictions        *prometheus.CounterVec
	PredictLatency     *prometheus.HistogramVec
	AnalyzerExclusions *prometheus.CounterVec
	LedgerAccuracy     *prometheus.GaugeVec

	// Session metrics
	Outcomes       *prometheus.CounterVec
	ActiveSessions prometheus.Gauge

	// Cache performance metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// HTTP metrics
	Requests  *prometheus.CounterVec
	WSClients prometheus.Gauge
}

// NewMetricsRegistry creates the metrics on a private registry
func NewMetricsRegistry() *MetricsRegistry {
	m := &MetricsRegistry{
		registry: prometheus.NewRegistry(),

		Predictions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "baccarun_predictions_total",
				Help: "Predictions served by mode and predicted outcome",
			},
			[]string{"mode", "outcome"},
		),

		PredictLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "baccarun_predict_duration_seconds",
				Help:    "Time to produce a prediction",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
			},
			[]string{"mode"},
		),

		AnalyzerExclusions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "baccarun_analyzer_exclusions_total",
				Help: "Analyzers dropped from a combination after a panic or non-finite output",
			},
			[]string{"analyzer"},
		),

		LedgerAccuracy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "baccarun_ledger_accuracy_percent",
				Help: "Accuracy of settled predictions in the most recently updated session",
			},
			[]string{"mode"},
		),

		Outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "baccarun_outcomes_total",
				Help: "Recorded hand outcomes",
			},
			[]string{"outcome"},
		),

		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "baccarun_active_sessions",
				Help: "Sessions held in memory",
			},
		),

		CacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "baccarun_forecast_cache_hits_total",
				Help: "Forecast cache hits",
			},
		),

		CacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "baccarun_forecast_cache_misses_total",
				Help: "Forecast cache misses",
			},
		),

		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "baccarun_http_requests_total",
				Help: "HTTP requests by route template and status code",
			},
			[]string{"route", "code"},
		),

		WSClients: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "baccarun_ws_clients",
				Help: "Connected websocket clients",
			},
		),
	}

	m.registry.MustRegister(
		m.Predictions,
		m.PredictLatency,
		m.AnalyzerExclusions,
		m.LedgerAccuracy,
		m.Outcomes,
		m.ActiveSessions,
		m.CacheHits,
		m.CacheMisses,
		m.Requests,
		m.WSClients,
		prometheus.NewGoCollector(),
	)
	return m
}

// RecordForecast counts a served forecast and its excluded analyzers
func (m *MetricsRegistry) RecordForecast(f session.Forecast, took time.Duration) {
	m.Predictions.WithLabelValues(string(f.Mode), string(f.Prediction.Primary.Outcome)).Inc()
	m.PredictLatency.WithLabelValues(string(f.Mode)).Observe(took.Seconds())
	for _, c := range f.Explanation.Contributions {
		if c.Excluded {
			m.AnalyzerExclusions.WithLabelValues(c.Name).Inc()
			log.Warn().Str("analyzer", c.Name).Str("reason", c.Reason).Msg("Analyzer excluded")
		}
	}
}

// RecordAccuracy publishes the per-mode accuracy of a ledger
func (m *MetricsRegistry) RecordAccuracy(report session.AccuracyReport) {
	for mode, acc := range report.ByMode {
		m.LedgerAccuracy.WithLabelValues(string(mode)).Set(acc.Rate)
	}
}

// MetricsHandler returns an HTTP handler for Prometheus metrics
func (m *MetricsRegistry) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests and embedding
func (m *MetricsRegistry) Gatherer() prometheus.Gatherer { return m.registry }

// InstrumentCache counts hits and misses of a forecast cache
func (m *MetricsRegistry) InstrumentCache(next session.ForecastCache) session.ForecastCache {
	return &instrumentedCache{next: next, m: m}
}

type instrumentedCache struct {
	next session.ForecastCache
	m    *MetricsRegistry
}

func (c *instrumentedCache) Get(ctx context.Context, key string) (session.Forecast, bool) {
	f, ok := c.next.Get(ctx, key)
	if ok {
		c.m.CacheHits.Inc()
	} else {
		c.m.CacheMisses.Inc()
	}
	return f, ok
}

func (c *instrumentedCache) Set(ctx context.Context, key string, f session.Forecast) {
	c.next.Set(ctx, key, f)
}
