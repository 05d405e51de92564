package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// MetricsRegistry holds the Prometheus metrics for StructRun.
type MetricsRegistry struct {
	registry *prometheus.Registry

	PivotsCommitted *prometheus.GaugeVec
	SegmentsEmitted *prometheus.CounterVec
	CancelAttempts  *prometheus.CounterVec
	FeedMessages    *prometheus.CounterVec
	ActiveSymbols   prometheus.Gauge
	ProcessDuration *prometheus.HistogramVec
}

// NewMetricsRegistry creates and registers all StructRun metrics on a fresh
// registry.
func NewMetricsRegistry() *MetricsRegistry {
	m := &MetricsRegistry{
		registry: prometheus.NewRegistry(),

		PivotsCommitted: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "structrun_pivots_committed",
				Help: "Number of committed zigzag pivots per symbol",
			},
			[]string{"symbol"},
		),

		SegmentsEmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "structrun_segments_emitted_total",
				Help: "Total segments emitted by formation method",
			},
			[]string{"symbol", "formation"},
		),

		CancelAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "structrun_cancel_attempts_total",
				Help: "Total position cancel attempts by result",
			},
			[]string{"symbol", "result"},
		),

		FeedMessages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "structrun_feed_messages_total",
				Help: "Total kline feed messages by symbol",
			},
			[]string{"symbol"},
		),

		ActiveSymbols: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "structrun_active_symbols",
				Help: "Number of symbols currently being processed",
			},
		),

		ProcessDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "structrun_process_duration_seconds",
				Help:    "Duration of one engine processing pass",
				Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"symbol"},
		),
	}

	m.registry.MustRegister(
		m.PivotsCommitted, m.SegmentsEmitted, m.CancelAttempts,
		m.FeedMessages, m.ActiveSymbols, m.ProcessDuration,
	)
	return m
}

// Handler serves the registry in Prometheus exposition format.
func (m *MetricsRegistry) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Router builds the observability router: /metrics and /health.
func (m *MetricsRegistry) Router() *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", m.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}).Methods(http.MethodGet)
	return r
}

// Serve runs the observability server until the listener fails. Intended to
// run in its own goroutine.
func (m *MetricsRegistry) Serve(addr string) {
	log.Info().Str("addr", addr).Msg("metrics server listening")
	if err := http.ListenAndServe(addr, m.Router()); err != nil {
		log.Error().Err(err).Msg("metrics server stopped")
	}
}
