package observability

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "l2feesim"

// SweepMetrics tracks parameter sweep activity
type SweepMetrics struct {
	SweepsStarted       prometheus.Counter
	SweepsCompleted     prometheus.Counter
	SweepsCancelled     prometheus.Counter
	SweepsRejected      prometheus.Counter
	CandidatesEvaluated prometheus.Counter
	CandidateFailures   prometheus.Counter
	CandidateDuration   prometheus.Histogram
	BestTotalBadness    prometheus.Gauge
}

// NewSweepMetrics creates sweep metrics and registers them with registerer.
// A nil registerer leaves the metrics unregistered.
func NewSweepMetrics(registerer prometheus.Registerer) (*SweepMetrics, error) {
	m := &SweepMetrics{
		SweepsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "started_total",
			Help:      "Number of sweeps started",
		}),
		SweepsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "completed_total",
			Help:      "Number of sweeps that evaluated every candidate",
		}),
		SweepsCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "cancelled_total",
			Help:      "Number of sweeps stopped by cancellation or a newer sweep",
		}),
		SweepsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "rejected_total",
			Help:      "Number of sweeps rejected before evaluation",
		}),
		CandidatesEvaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "candidates_evaluated_total",
			Help:      "Number of candidates simulated and scored",
		}),
		CandidateFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "candidate_failures_total",
			Help:      "Number of candidates whose simulation or scoring failed",
		}),
		CandidateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "candidate_duration_seconds",
			Help:      "Time to simulate and score one candidate",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		BestTotalBadness: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "best_total_badness",
			Help:      "Total badness of the best candidate of the last completed sweep",
		}),
	}

	if registerer == nil {
		return m, nil
	}

	return m, errors.Join(
		registerer.Register(m.SweepsStarted),
		registerer.Register(m.SweepsCompleted),
		registerer.Register(m.SweepsCancelled),
		registerer.Register(m.SweepsRejected),
		registerer.Register(m.CandidatesEvaluated),
		registerer.Register(m.CandidateFailures),
		registerer.Register(m.CandidateDuration),
		registerer.Register(m.BestTotalBadness),
	)
}
