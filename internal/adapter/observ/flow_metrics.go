// Package observ exports payment flow metrics to Prometheus.
package observ

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/aq2208/campuspay-terminal/internal/usecase"
)

var _ usecase.FlowMetrics = (*FlowMetrics)(nil)

type FlowMetrics struct {
	outcomes *prometheus.CounterVec
	steps    *prometheus.HistogramVec
	gaps     *prometheus.CounterVec
}

// NewFlowMetrics registers the collectors on reg. Pass prometheus.DefaultRegisterer
// to expose them on /metrics.
func NewFlowMetrics(reg prometheus.Registerer) *FlowMetrics {
	f := promauto.With(reg)
	return &FlowMetrics{
		outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campuspay",
			Name:      "payment_outcomes_total",
			Help:      "Finished payment attempts by flow and final state",
		}, []string{"flow", "outcome"}),
		steps: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "campuspay",
			Name:      "payment_step_duration_ms",
			Help:      "Backend step latency in ms",
			Buckets:   []float64{25, 50, 100, 200, 400, 800, 1600, 3200, 6400, 12800},
		}, []string{"flow", "step"}),
		gaps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "campuspay",
			Name:      "reconciliation_gaps_total",
			Help:      "Transfers whose order could not be marked paid",
		}, []string{"flow"}),
	}
}

func (m *FlowMetrics) Outcome(flow, outcome string) {
	m.outcomes.WithLabelValues(flow, outcome).Inc()
}

func (m *FlowMetrics) StepDuration(flow, step string, d time.Duration) {
	m.steps.WithLabelValues(flow, step).Observe(float64(d.Milliseconds()))
}

func (m *FlowMetrics) Gap(flow string) {
	m.gaps.WithLabelValues(flow).Inc()
}
