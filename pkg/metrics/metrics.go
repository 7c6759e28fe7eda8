// Package metrics records cascade runs for the HTTP server's /metrics endpoint.
package metrics

import (
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jakechorley/vacancy-cascade/pkg/core/model"
)

const namespace = "vacancy_cascade"

// Outcome labels for RunsTotal
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// ModeLabelInvalid stands in for any mode that failed to parse, so client input never
// becomes a label value
const ModeLabelInvalid model.Mode = "invalid"

// MaxBackfillSeries caps last_run_backfill at this many positions, taken in key order
const MaxBackfillSeries = 256

// Metrics holds the collectors on a registry of its own, so tests and servers don't
// share global state.
type Metrics struct {
	registry *prometheus.Registry

	runsTotal    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	awardsTotal  *prometheus.CounterVec
	pilotsPerRun prometheus.Histogram
	lastBackfill *prometheus.GaugeVec
}

// New creates a Metrics with Go runtime and process collectors registered
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Cascade runs by mode and outcome",
		}, []string{"mode", "outcome"}), // outcome=success|failure
		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Time spent normalizing inputs and running the cascade",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"mode"}),
		awardsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "awards_total",
			Help:      "Awards issued by note",
		}, []string{"note"}),
		pilotsPerRun: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pilots_per_run",
			Help:      "Roster size of each successful run",
			Buckets:   prometheus.ExponentialBuckets(10, 2, 10),
		}),
		lastBackfill: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_backfill",
			Help:      "Unfilled backfill per position after the most recent run",
		}, []string{"position"}),
	}
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRun records a successful run
func (m *Metrics) ObserveRun(mode model.Mode, elapsed time.Duration, awards []model.Award, backfill map[string]int) {
	m.runsTotal.WithLabelValues(string(mode), OutcomeSuccess).Inc()
	m.runDuration.WithLabelValues(string(mode)).Observe(elapsed.Seconds())
	m.pilotsPerRun.Observe(float64(len(awards)))

	for _, a := range awards {
		m.awardsTotal.WithLabelValues(string(a.Note)).Inc()
	}

	// Only the latest run is kept, so the series count never grows past one run's positions
	m.lastBackfill.Reset()
	keys := slices.Sorted(maps.Keys(backfill))
	if len(keys) > MaxBackfillSeries {
		keys = keys[:MaxBackfillSeries]
	}
	for _, key := range keys {
		m.lastBackfill.WithLabelValues(key).Set(float64(backfill[key]))
	}
}

// ObserveFailure records a run that did not produce awards. Callers pass
// ModeLabelInvalid when the requested mode did not parse.
func (m *Metrics) ObserveFailure(mode model.Mode) {
	m.runsTotal.WithLabelValues(string(mode), OutcomeFailure).Inc()
}
