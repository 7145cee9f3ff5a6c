package tracer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	invalidReasonAttribute       = "invalid_attribute"
	invalidReasonEmptyName       = "empty_name"
	invalidReasonStatusDowngrade = "status_downgrade"
)

type tracerMetrics struct {
	spansStarted      prometheus.Counter
	spansEnded        prometheus.Counter
	spansSampled      prometheus.Counter
	invalidOperations *prometheus.CounterVec
}

func newTracerMetrics(reg prometheus.Registerer) *tracerMetrics {
	return &tracerMetrics{
		spansStarted: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "spanstream",
			Name:      "tracer_spans_started_total",
			Help:      "Total number of recording spans started.",
		}),
		spansEnded: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "spanstream",
			Name:      "tracer_spans_ended_total",
			Help:      "Total number of recording spans ended.",
		}),
		spansSampled: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "spanstream",
			Name:      "tracer_spans_sampled_total",
			Help:      "Total number of started spans selected for export.",
		}),
		invalidOperations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "spanstream",
			Name:      "tracer_invalid_operations_total",
			Help:      "Total number of span API calls rejected for invalid input.",
		}, []string{"reason"}),
	}
}
