// Package metrics exposes Prometheus instrumentation for reconciliation
// runs. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/agentstation/retailsync/pkg/errors"
)

const namespace = "retailsync"

// Run statuses.
const (
	StatusSuccess  = "success"
	StatusFailed   = "failed"
	StatusCanceled = "canceled"
)

// Record outcomes.
const (
	OutcomeAccepted = "accepted"
	OutcomeFailed   = "failed"
)

// Metrics holds the reconciliation collectors.
type Metrics struct {
	runs       *prometheus.CounterVec
	records    *prometheus.CounterVec
	candidates prometheus.Counter
	entities   prometheus.Gauge
	points     *prometheus.GaugeVec
	duration   prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Reconciliation runs by final status.",
		}, []string{"status"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_total",
			Help:      "Input records by source and outcome.",
		}, []string{"source", "outcome"}),
		candidates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "candidate_links_total",
			Help:      "Candidate links proposed by the matcher.",
		}),
		entities: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "canonical_entities",
			Help:      "Canonical entities produced by the last run.",
		}),
		points: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "series_points",
			Help:      "Series points produced by the last run.",
		}, []string{"imputed"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of reconciliation runs.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}

	for _, c := range []prometheus.Collector{m.runs, m.records, m.candidates, m.entities, m.points, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, errors.WrapResource("register", "metric", "", err)
		}
	}
	return m, nil
}

// RecordRun counts a finished run and observes its duration.
func (m *Metrics) RecordRun(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
	m.duration.Observe(d.Seconds())
}

// RecordSource counts accepted and failed records of one source.
func (m *Metrics) RecordSource(source string, accepted, failed int) {
	if m == nil {
		return
	}
	m.records.WithLabelValues(source, OutcomeAccepted).Add(float64(accepted))
	m.records.WithLabelValues(source, OutcomeFailed).Add(float64(failed))
}

// RecordCandidates counts candidate links.
func (m *Metrics) RecordCandidates(n int) {
	if m == nil {
		return
	}
	m.candidates.Add(float64(n))
}

// RecordOutput sets the entity and point gauges.
func (m *Metrics) RecordOutput(entities, points, imputed int) {
	if m == nil {
		return
	}
	m.entities.Set(float64(entities))
	m.points.WithLabelValues("false").Set(float64(points - imputed))
	m.points.WithLabelValues("true").Set(float64(imputed))
}

// StatusOf maps a run error to a status label.
func StatusOf(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.IsCanceled(err):
		return StatusCanceled
	default:
		return StatusFailed
	}
}

// WriteTextfile writes everything gathered by g to path in the text
// exposition format, for the node exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}
