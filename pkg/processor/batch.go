package processor

import (
	"context"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/multierror"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"

	"github.com/spanstream/spanstream-go/pkg/exporter"
	"github.com/spanstream/spanstream-go/pkg/trace"
)

// Batch decouples span producers from the exporter with a bounded FIFO
// queue drained by a single background worker. Producers never block and
// never see export errors: when the queue is full new spans are dropped
// and counted, and failed batches are counted and discarded.
type Batch struct {
	cfg     BatchConfig
	exp     exporter.SpanExporter
	logger  log.Logger
	metrics *batchMetrics

	// queueMtx guards queue and stopped. OnEnd takes only this mutex, so
	// producers never wait on an export in progress.
	queueMtx sync.Mutex
	queue    []*trace.SpanData
	stopped  bool

	// exportMtx serializes drain+export pairs, keeping batches in queue
	// order when flushes run concurrently with the worker.
	exportMtx sync.Mutex

	wake       chan struct{}
	stopWorker chan struct{}
	workerDone chan struct{}

	shutdownOnce sync.Once
	shutdownErr  error

	droppedQueueFull atomic.Int64
	droppedShutdown  atomic.Int64
	unsampled        atomic.Int64
	exportedSpans    atomic.Int64
	exportedBatches  atomic.Int64
	failedBatches    atomic.Int64
}

// BatchStats is a point-in-time snapshot of the processor's counters.
type BatchStats struct {
	Queued          int
	Dropped         int64
	Unsampled       int64
	ExportedSpans   int64
	ExportedBatches int64
	FailedBatches   int64
}

// NewBatch validates cfg, starts the worker and returns the processor.
// logger and reg may be nil.
func NewBatch(cfg BatchConfig, exp exporter.SpanExporter, logger log.Logger, reg prometheus.Registerer) (*Batch, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid batch processor config")
	}
	if exp == nil {
		return nil, errors.New("batch processor requires an exporter")
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	b := &Batch{
		cfg:        cfg,
		exp:        exp,
		logger:     logger,
		metrics:    newBatchMetrics(reg),
		queue:      make([]*trace.SpanData, 0, cfg.MaxQueueSize),
		wake:       make(chan struct{}, 1),
		stopWorker: make(chan struct{}),
		workerDone: make(chan struct{}),
	}
	go b.worker()
	return b, nil
}

// OnStart is a no-op.
func (b *Batch) OnStart(context.Context, trace.Span) {}

// OnEnd enqueues sd without blocking. Unsampled spans are skipped. When
// the queue is full or the processor is shut down the span is dropped and
// counted by reason.
func (b *Batch) OnEnd(sd *trace.SpanData) {
	if sd == nil {
		return
	}
	if !sd.Sampled() {
		b.unsampled.Inc()
		b.metrics.unsampledSpans.Inc()
		return
	}

	b.queueMtx.Lock()
	if b.stopped {
		b.queueMtx.Unlock()
		b.droppedShutdown.Inc()
		b.metrics.droppedSpans.WithLabelValues(dropReasonShutdown).Inc()
		return
	}
	if len(b.queue) >= b.cfg.MaxQueueSize {
		b.queueMtx.Unlock()
		b.droppedQueueFull.Inc()
		b.metrics.droppedSpans.WithLabelValues(dropReasonQueueFull).Inc()
		return
	}
	b.queue = append(b.queue, sd)
	n := len(b.queue)
	b.queueMtx.Unlock()

	b.metrics.queueLength.Set(float64(n))
	if n >= b.cfg.MaxExportBatchSize {
		b.nudge()
	}
}

func (b *Batch) nudge() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *Batch) worker() {
	defer close(b.workerDone)

	ticker := time.NewTicker(b.cfg.ScheduledDelay)
	defer ticker.Stop()
	for {
		select {
		case <-b.stopWorker:
			return
		case <-ticker.C:
		case <-b.wake:
		}
		b.exportOnce(context.Background())
		if b.queueLen() >= b.cfg.MaxExportBatchSize {
			b.nudge()
		}
	}
}

// exportOnce drains up to one batch and hands it to the exporter,
// returning the number of spans drained. Failed batches are discarded:
// retrying is the exporter's job, not the processor's.
func (b *Batch) exportOnce(ctx context.Context) int {
	b.exportMtx.Lock()
	defer b.exportMtx.Unlock()

	batch := b.drain()
	if len(batch) == 0 {
		return 0
	}

	ctx, cancel := context.WithTimeout(ctx, b.cfg.ExportTimeout)
	defer cancel()

	start := time.Now()
	err := b.exp.Export(ctx, batch)
	b.metrics.exportDuration.Observe(time.Since(start).Seconds())
	b.metrics.batchSize.Observe(float64(len(batch)))

	if err != nil {
		b.failedBatches.Inc()
		b.metrics.failedBatches.Inc()
		level.Warn(b.logger).Log("msg", "failed to export span batch", "batch_size", len(batch), "err", err)
		return len(batch)
	}
	b.exportedBatches.Inc()
	b.exportedSpans.Add(int64(len(batch)))
	b.metrics.exportedSpans.Add(float64(len(batch)))
	return len(batch)
}

func (b *Batch) drain() []*trace.SpanData {
	b.queueMtx.Lock()
	defer b.queueMtx.Unlock()
	n := len(b.queue)
	if n == 0 {
		return nil
	}
	if n > b.cfg.MaxExportBatchSize {
		n = b.cfg.MaxExportBatchSize
	}
	batch := make([]*trace.SpanData, n)
	copy(batch, b.queue[:n])
	remaining := copy(b.queue, b.queue[n:])
	for i := remaining; i < len(b.queue); i++ {
		b.queue[i] = nil
	}
	b.queue = b.queue[:remaining]
	b.metrics.queueLength.Set(float64(remaining))
	return batch
}

func (b *Batch) queueLen() int {
	b.queueMtx.Lock()
	defer b.queueMtx.Unlock()
	return len(b.queue)
}

// ForceFlush drains and exports until the queue is empty or ctx ends,
// then flushes the exporter. Export failures are counted, not returned: a
// nil return means the queue was fully drained in time. After Shutdown it
// returns nil immediately.
func (b *Batch) ForceFlush(ctx context.Context) error {
	b.queueMtx.Lock()
	stopped := b.stopped
	b.queueMtx.Unlock()
	if stopped {
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		// A zero drain still takes the export mutex, so once it returns no
		// batch is in flight on the worker either.
		if b.exportOnce(ctx) == 0 {
			break
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.exp.ForceFlush(ctx)
}

// Shutdown stops intake, flushes what fits into ctx, stops the worker and
// shuts the exporter down. Only the first call does the work; later calls
// return its result.
func (b *Batch) Shutdown(ctx context.Context) error {
	b.shutdownOnce.Do(func() {
		b.queueMtx.Lock()
		b.stopped = true
		b.queueMtx.Unlock()

		for b.queueLen() > 0 && ctx.Err() == nil {
			b.exportOnce(ctx)
		}

		close(b.stopWorker)
		select {
		case <-b.workerDone:
		case <-ctx.Done():
		}

		// Anything still queued was not flushed in time and is lost.
		b.queueMtx.Lock()
		remaining := len(b.queue)
		b.queue = nil
		b.queueMtx.Unlock()
		if remaining > 0 {
			b.droppedShutdown.Add(int64(remaining))
			b.metrics.droppedSpans.WithLabelValues(dropReasonShutdown).Add(float64(remaining))
			b.metrics.queueLength.Set(0)
			level.Warn(b.logger).Log("msg", "spans dropped at shutdown", "count", remaining)
		}

		errs := multierror.New()
		errs.Add(ctx.Err())
		errs.Add(b.exp.Shutdown(ctx))
		b.shutdownErr = errs.Err()
	})
	return b.shutdownErr
}

// Stats returns a snapshot of the processor counters.
func (b *Batch) Stats() BatchStats {
	return BatchStats{
		Queued:          b.queueLen(),
		Dropped:         b.droppedQueueFull.Load() + b.droppedShutdown.Load(),
		Unsampled:       b.unsampled.Load(),
		ExportedSpans:   b.exportedSpans.Load(),
		ExportedBatches: b.exportedBatches.Load(),
		FailedBatches:   b.failedBatches.Load(),
	}
}
