// Package metrics records session activity as Prometheus metrics.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns the session metrics and their registry.
type Manager struct {
	namespace     string
	recallBuckets []float64
	registry      *prometheus.Registry

	roundsTotal       prometheus.Counter
	recordsTotal      prometheus.Counter
	ledgerClears      prometheus.Counter
	persistErrors     prometheus.Counter
	recallSeconds     prometheus.Histogram
	memorizeSeconds   prometheus.Histogram
	correctDigits     prometheus.Histogram
	bestScoresEntries prometheus.Gauge
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithRecallBuckets sets histogram buckets for phase durations in seconds.
func WithRecallBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.recallBuckets = buckets
		}
	}
}

// WithRegistry sets a custom Prometheus registry.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// NewManager creates a metrics manager on a private registry unless one is given.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:     "codemem",
		recallBuckets: []float64{1, 2, 5, 10, 20, 30, 60, 120, 300},
		registry:      prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.roundsTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "rounds_total",
		Help:      "Completed recall rounds",
	})
	m.recordsTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "records_total",
		Help:      "Rounds that set a new best time for their correct count",
	})
	m.ledgerClears = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "ledger_clears_total",
		Help:      "Explicit best-score resets",
	})
	m.persistErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "persist_errors_total",
		Help:      "Failed writes to the record store",
	})
	m.recallSeconds = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "recall_seconds",
		Help:      "Time spent entering the sequence",
		Buckets:   m.recallBuckets,
	})
	m.memorizeSeconds = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "memorize_seconds",
		Help:      "Time spent memorizing the sequence",
		Buckets:   m.recallBuckets,
	})
	m.correctDigits = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "correct_digits",
		Help:      "Correctly placed digits per round",
		Buckets:   prometheus.LinearBuckets(0, 2, 9),
	})
	m.bestScoresEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "best_scores_entries",
		Help:      "Number of correct counts with a stored best time",
	})
}

// ObserveRound records a finished round.
func (m *Manager) ObserveRound(memorizeMs, recallMs int64, correct int) {
	m.roundsTotal.Inc()
	m.memorizeSeconds.Observe(float64(memorizeMs) / 1000)
	m.recallSeconds.Observe(float64(recallMs) / 1000)
	m.correctDigits.Observe(float64(correct))
}

// ObserveRecord records a new personal best.
func (m *Manager) ObserveRecord() {
	m.recordsTotal.Inc()
}

// ObserveClear records a ledger reset.
func (m *Manager) ObserveClear() {
	m.ledgerClears.Inc()
}

// ObservePersistError records a failed store write.
func (m *Manager) ObservePersistError() {
	m.persistErrors.Inc()
}

// SetBestScores sets the number of stored records.
func (m *Manager) SetBestScores(n int) {
	m.bestScoresEntries.Set(float64(n))
}

// Registry returns the registry metrics are registered on.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes all metrics in the text exposition format to path.
func (m *Manager) WriteTextfile(path string) error {
	if path == "" {
		return fmt.Errorf("metrics path is empty")
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
