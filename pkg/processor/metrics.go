package processor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	dropReasonQueueFull = "queue_full"
	dropReasonShutdown  = "shutdown"
)

type registryMetrics struct {
	callbackPanics *prometheus.CounterVec
}

func newRegistryMetrics(reg prometheus.Registerer) *registryMetrics {
	return &registryMetrics{
		callbackPanics: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "spanstream",
			Name:      "processor_callback_panics_total",
			Help:      "Total number of span processor callbacks that panicked and were isolated.",
		}, []string{"callback"}),
	}
}

type batchMetrics struct {
	queueLength    prometheus.Gauge
	droppedSpans   *prometheus.CounterVec
	unsampledSpans prometheus.Counter
	exportedSpans  prometheus.Counter
	failedBatches  prometheus.Counter
	exportDuration prometheus.Histogram
	batchSize      prometheus.Histogram
}

func newBatchMetrics(reg prometheus.Registerer) *batchMetrics {
	return &batchMetrics{
		queueLength: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Namespace: "spanstream",
			Name:      "batch_processor_queue_length",
			Help:      "Number of ended spans waiting in the batch processor queue.",
		}),
		droppedSpans: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "spanstream",
			Name:      "batch_processor_dropped_spans_total",
			Help:      "Total number of sampled spans dropped instead of queued.",
		}, []string{"reason"}),
		unsampledSpans: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "spanstream",
			Name:      "batch_processor_unsampled_spans_total",
			Help:      "Total number of unsampled spans skipped at the queue.",
		}),
		exportedSpans: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "spanstream",
			Name:      "batch_processor_exported_spans_total",
			Help:      "Total number of spans delivered to the exporter.",
		}),
		failedBatches: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "spanstream",
			Name:      "batch_processor_failed_batches_total",
			Help:      "Total number of batches the exporter failed to deliver.",
		}),
		exportDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: "spanstream",
			Name:      "batch_processor_export_duration_seconds",
			Help:      "Time taken by exporter calls.",
			Buckets:   prometheus.DefBuckets,
		}),
		batchSize: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Namespace: "spanstream",
			Name:      "batch_processor_batch_size",
			Help:      "Distribution of exported batch sizes.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}
