// Package processor implements the hooks observing a span's lifecycle and
// the pipeline that moves ended spans to an exporter, either synchronously
// or through a bounded queue drained by a background worker.
package processor

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/multierror"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/spanstream/spanstream-go/pkg/trace"
)

// SpanProcessor observes span lifecycle transitions. OnStart and OnEnd run
// synchronously on the goroutine ending the span, so implementations must
// return quickly and must not block on I/O.
type SpanProcessor interface {
	// OnStart runs when a recording span starts. parent is the context
	// the span was started from.
	OnStart(parent context.Context, s trace.Span)

	// OnEnd runs exactly once when a recording span ends. The snapshot is
	// owned by the chain and must not be mutated.
	OnEnd(s *trace.SpanData)

	// Shutdown flushes and stops the processor. Further lifecycle calls
	// are ignored.
	Shutdown(ctx context.Context) error

	// ForceFlush pushes out everything buffered so far.
	ForceFlush(ctx context.Context) error
}

// Registry is an ordered chain of span processors. Callbacks run in
// registration order and a panicking processor is isolated from its
// siblings: the panic is recovered, logged and counted.
type Registry struct {
	mtx        sync.RWMutex
	processors []SpanProcessor
	stopped    bool
	stopErr    error

	logger  log.Logger
	metrics *registryMetrics
}

// NewRegistry returns an empty chain. logger and reg may be nil.
func NewRegistry(logger log.Logger, reg prometheus.Registerer) *Registry {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Registry{
		logger:  logger,
		metrics: newRegistryMetrics(reg),
	}
}

// Register appends p to the chain. Registering after Shutdown is ignored.
func (r *Registry) Register(p SpanProcessor) {
	if p == nil {
		return
	}
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if r.stopped {
		level.Warn(r.logger).Log("msg", "ignoring span processor registered after shutdown")
		return
	}
	r.processors = append(r.processors, p)
}

// Len returns the number of registered processors.
func (r *Registry) Len() int {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	return len(r.processors)
}

func (r *Registry) snapshot() []SpanProcessor {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	if r.stopped {
		return nil
	}
	return r.processors[:len(r.processors):len(r.processors)]
}

// OnStart fans the start of s to every processor in registration order.
func (r *Registry) OnStart(parent context.Context, s trace.Span) {
	for _, p := range r.snapshot() {
		r.safeOnStart(p, parent, s)
	}
}

// OnEnd fans the snapshot to every processor in registration order.
func (r *Registry) OnEnd(sd *trace.SpanData) {
	for _, p := range r.snapshot() {
		r.safeOnEnd(p, sd)
	}
}

func (r *Registry) safeOnStart(p SpanProcessor, parent context.Context, s trace.Span) {
	defer r.recoverCallback("on_start")
	p.OnStart(parent, s)
}

func (r *Registry) safeOnEnd(p SpanProcessor, sd *trace.SpanData) {
	defer r.recoverCallback("on_end")
	p.OnEnd(sd)
}

func (r *Registry) recoverCallback(callback string) {
	if p := recover(); p != nil {
		r.metrics.callbackPanics.WithLabelValues(callback).Inc()
		level.Error(r.logger).Log("msg", "span processor panicked", "callback", callback, "panic", p, "stack", string(debug.Stack()))
	}
}

// ForceFlush flushes every processor in order, joining their errors.
func (r *Registry) ForceFlush(ctx context.Context) error {
	errs := multierror.New()
	for _, p := range r.snapshot() {
		errs.Add(p.ForceFlush(ctx))
	}
	return errs.Err()
}

// Shutdown stops the chain in registration order, joining errors. Only
// the first call does the work; later calls return its result.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mtx.Lock()
	if r.stopped {
		err := r.stopErr
		r.mtx.Unlock()
		return err
	}
	r.stopped = true
	processors := r.processors
	r.mtx.Unlock()

	errs := multierror.New()
	for _, p := range processors {
		errs.Add(r.safeShutdown(p, ctx))
	}

	r.mtx.Lock()
	r.stopErr = errs.Err()
	r.mtx.Unlock()
	return errs.Err()
}

func (r *Registry) safeShutdown(p SpanProcessor, ctx context.Context) error {
	defer r.recoverCallback("shutdown")
	return p.Shutdown(ctx)
}
