package tracer

import (
	"context"
	"time"

	"github.com/spanstream/spanstream-go/pkg/attribute"
	"github.com/spanstream/spanstream-go/pkg/sampler"
	"github.com/spanstream/spanstream-go/pkg/trace"
)

// Tracer starts spans on behalf of one instrumentation scope.
type Tracer struct {
	provider *Provider
	scope    trace.InstrumentationScope
}

// Scope returns the instrumentation scope this tracer reports for.
func (t *Tracer) Scope() trace.InstrumentationScope {
	return t.scope
}

// Start begins a span named name as a child of the span in ctx, or as a
// trace root when there is none or WithNewRoot is given. The sampler is
// consulted exactly once, before any work is recorded; a dropped span is
// returned as a non-recording handle that still carries its identity. The
// returned context carries the new span, and the caller must End it.
func (t *Tracer) Start(ctx context.Context, name string, opts ...StartOption) (context.Context, trace.Span) {
	p := t.provider
	cfg := NewStartConfig(opts...)

	if p.stopped.Load() {
		// The pipeline is gone. Hand back an inert span carrying
		// whatever identity the context already had.
		s := trace.NewNonRecordingSpan(trace.SpanContextFromContext(ctx))
		return trace.ContextWithSpan(ctx, s), s
	}

	var parent trace.SpanContext
	if !cfg.NewRoot {
		parent = trace.SpanContextFromContext(ctx)
	}

	var tid trace.TraceID
	var sid trace.SpanID
	if parent.HasTraceID() {
		tid = parent.TraceID()
		sid = p.idgen.NewSpanID(ctx, tid)
	} else {
		tid, sid = p.idgen.NewIDs(ctx)
	}

	res := p.sampler.ShouldSample(sampler.Parameters{
		Parent:     parent,
		TraceID:    tid,
		Name:       name,
		Kind:       cfg.Kind,
		Attributes: cfg.Attributes,
		Links:      cfg.Links,
	})

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    tid,
		SpanID:     sid,
		TraceFlags: trace.TraceFlags(0).WithSampled(res.Decision == sampler.RecordAndSample),
		TraceState: res.TraceState,
	})

	if res.Decision == sampler.Drop {
		s := trace.NewNonRecordingSpan(sc)
		return trace.ContextWithSpan(ctx, s), s
	}

	startTime := cfg.Timestamp
	if startTime.IsZero() {
		startTime = time.Now()
	}
	s := &span{
		tracer:    t,
		sc:        sc,
		parent:    parent,
		limits:    p.cfg.SpanLimits,
		name:      name,
		kind:      trace.ValidateSpanKind(cfg.Kind),
		startTime: startTime,
	}
	s.mtx.Lock()
	// Sampler attributes land first so explicit start attributes win on
	// key collisions.
	s.upsertAttributes(res.Attributes)
	s.upsertAttributes(cfg.Attributes)
	s.appendLinks(cfg.Links)
	s.mtx.Unlock()

	p.metrics.spansStarted.Inc()
	if res.Decision == sampler.RecordAndSample {
		p.metrics.spansSampled.Inc()
	}
	p.procs.OnStart(ctx, s)
	return trace.ContextWithSpan(ctx, s), s
}

// StartConfig collects the options of Start.
type StartConfig struct {
	Kind       trace.SpanKind
	Attributes []attribute.KeyValue
	Links      []trace.Link
	Timestamp  time.Time
	NewRoot    bool
}

// NewStartConfig applies opts to an empty config.
func NewStartConfig(opts ...StartOption) StartConfig {
	var c StartConfig
	for _, opt := range opts {
		opt.applyStart(&c)
	}
	return c
}

// StartOption configures a span at start time.
type StartOption interface {
	applyStart(*StartConfig)
}

type spanKindOption trace.SpanKind

func (o spanKindOption) applyStart(c *StartConfig) { c.Kind = trace.SpanKind(o) }

// WithSpanKind sets the span kind. Unknown kinds normalize to internal.
func WithSpanKind(k trace.SpanKind) StartOption {
	return spanKindOption(k)
}

type startAttributesOption []attribute.KeyValue

func (o startAttributesOption) applyStart(c *StartConfig) {
	c.Attributes = append(c.Attributes, o...)
}

// WithAttributes sets attributes known at start time.
func WithAttributes(kv ...attribute.KeyValue) StartOption {
	return startAttributesOption(kv)
}

type linksOption []trace.Link

func (o linksOption) applyStart(c *StartConfig) {
	c.Links = append(c.Links, o...)
}

// WithLinks relates the new span to spans in this or other traces. Links
// cannot be added after start.
func WithLinks(links ...trace.Link) StartOption {
	return linksOption(links)
}

type startTimestampOption time.Time

func (o startTimestampOption) applyStart(c *StartConfig) { c.Timestamp = time.Time(o) }

// WithTimestamp uses t as the start time instead of the current time.
func WithTimestamp(t time.Time) StartOption {
	return startTimestampOption(t)
}

type newRootOption struct{}

func (newRootOption) applyStart(c *StartConfig) { c.NewRoot = true }

// WithNewRoot starts a new trace even when the context carries a span.
func WithNewRoot() StartOption {
	return newRootOption{}
}
