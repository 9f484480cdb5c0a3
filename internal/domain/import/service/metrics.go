package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the import counters exported on /metrics
type Metrics struct {
	Files           *prometheus.CounterVec
	Rows            *prometheus.CounterVec
	ParseDuration   prometheus.Histogram
	HeaderFallbacks prometheus.Counter
}

// NewMetrics registers the import metrics with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Files: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "statement_import",
			Name:      "files_total",
			Help:      "Statement files processed, by outcome.",
		}, []string{"outcome"}),
		Rows: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "statement_import",
			Name:      "rows_total",
			Help:      "Statement data rows processed, by outcome.",
		}, []string{"outcome"}),
		ParseDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "statement_import",
			Name:      "parse_duration_seconds",
			Help:      "Time spent parsing one statement.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		HeaderFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "statement_import",
			Name:      "header_fallbacks_total",
			Help:      "Headers chosen by the non-empty-cell fallback.",
		}),
	}
}

func (m *Metrics) fileDone(outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.Files.WithLabelValues(outcome).Inc()
	if outcome == outcomeOK {
		m.ParseDuration.Observe(seconds)
	}
}

func (m *Metrics) rows(outcome string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.Rows.WithLabelValues(outcome).Add(float64(n))
}

func (m *Metrics) headerFallback() {
	if m == nil {
		return
	}
	m.HeaderFallbacks.Inc()
}

const (
	outcomeOK        = "ok"
	outcomeFailed    = "failed"
	outcomeImported  = "imported"
	outcomeDuplicate = "duplicate"
	outcomeError     = "error"
)
