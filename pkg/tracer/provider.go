// Package tracer implements the SDK entry points: the provider owning the
// pipeline, the tracers handing out spans, and the span state machine
// itself. Instrumented code only ever sees trace.Span handles; everything
// the spans produce flows through the processor chain registered on the
// provider.
package tracer

import (
	"context"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/atomic"

	"github.com/spanstream/spanstream-go/pkg/processor"
	"github.com/spanstream/spanstream-go/pkg/resource"
	"github.com/spanstream/spanstream-go/pkg/sampler"
	"github.com/spanstream/spanstream-go/pkg/trace"
)

// Provider owns everything tracers share: the resource identity, the
// sampler, the span limits, the id generator and the ordered span
// processor chain. Tracers are cheap cached handles into it.
type Provider struct {
	cfg     Config
	res     *resource.Resource
	sampler sampler.Sampler
	idgen   Generator
	procs   *processor.Registry
	logger  log.Logger
	metrics *tracerMetrics

	tracersMtx sync.Mutex
	tracers    map[trace.InstrumentationScope]*Tracer

	stopped atomic.Bool
}

// NewProvider wires a provider from cfg. A nil res falls back to
// resource.Default, a nil smp to ParentBased(AlwaysOn), and logger and reg
// may be nil.
func NewProvider(cfg Config, res *resource.Resource, smp sampler.Sampler, logger log.Logger, reg prometheus.Registerer) (*Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid tracer config")
	}
	if res == nil {
		res = resource.Default()
	}
	if smp == nil {
		smp = sampler.ParentBased(sampler.AlwaysOn())
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Provider{
		cfg:     cfg,
		res:     res,
		sampler: smp,
		idgen:   newRandomGenerator(),
		procs:   processor.NewRegistry(logger, reg),
		logger:  logger,
		metrics: newTracerMetrics(reg),
		tracers: map[trace.InstrumentationScope]*Tracer{},
	}, nil
}

// Resource returns the identity every span from this provider carries.
func (p *Provider) Resource() *resource.Resource {
	return p.res
}

// RegisterSpanProcessor appends sp to the processor chain. Processors
// registered after Shutdown are ignored.
func (p *Provider) RegisterSpanProcessor(sp processor.SpanProcessor) {
	p.procs.Register(sp)
}

// Tracer returns the tracer for the named instrumentation scope, creating
// it on first use. The same name and version map to the same handle.
func (p *Provider) Tracer(name, version string) *Tracer {
	if name == "" {
		level.Debug(p.logger).Log("msg", "tracer requested with empty scope name")
	}
	scope := trace.InstrumentationScope{Name: name, Version: version}

	p.tracersMtx.Lock()
	defer p.tracersMtx.Unlock()
	if t, ok := p.tracers[scope]; ok {
		return t
	}
	t := &Tracer{provider: p, scope: scope}
	p.tracers[scope] = t
	return t
}

// ForceFlush pushes buffered spans through every processor in order.
func (p *Provider) ForceFlush(ctx context.Context) error {
	return p.procs.ForceFlush(ctx)
}

// Shutdown flushes and stops the processor chain in registration order.
// Spans started afterwards are non-recording. Only the first call does the
// work; later calls return its result.
func (p *Provider) Shutdown(ctx context.Context) error {
	p.stopped.Store(true)
	return p.procs.Shutdown(ctx)
}

func (p *Provider) invalidOperation(reason string) {
	p.metrics.invalidOperations.WithLabelValues(reason).Inc()
	level.Debug(p.logger).Log("msg", "invalid span operation", "reason", reason)
}
