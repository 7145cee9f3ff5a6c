package tracer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/grafana/dskit/flagext"
	"github.com/stretchr/testify/require"

	"github.com/spanstream/spanstream-go/pkg/attribute"
	"github.com/spanstream/spanstream-go/pkg/exporter"
	"github.com/spanstream/spanstream-go/pkg/processor"
	"github.com/spanstream/spanstream-go/pkg/resource"
	"github.com/spanstream/spanstream-go/pkg/sampler"
	"github.com/spanstream/spanstream-go/pkg/trace"
)

// captureProcessor records every lifecycle callback it receives.
type captureProcessor struct {
	mtx       sync.Mutex
	startCtxs []context.Context
	started   []trace.Span
	ended     []*trace.SpanData
}

func (p *captureProcessor) OnStart(ctx context.Context, s trace.Span) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.startCtxs = append(p.startCtxs, ctx)
	p.started = append(p.started, s)
}

func (p *captureProcessor) OnEnd(sd *trace.SpanData) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.ended = append(p.ended, sd)
}

func (p *captureProcessor) Shutdown(context.Context) error { return nil }

func (p *captureProcessor) ForceFlush(context.Context) error { return nil }

func (p *captureProcessor) endedSpans() []*trace.SpanData {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	out := make([]*trace.SpanData, len(p.ended))
	copy(out, p.ended)
	return out
}

func (p *captureProcessor) lastEnded(t *testing.T) *trace.SpanData {
	t.Helper()
	ended := p.endedSpans()
	require.NotEmpty(t, ended)
	return ended[len(ended)-1]
}

// recordOnlySampler records every span without marking it for export.
type recordOnlySampler struct{}

func (recordOnlySampler) ShouldSample(p sampler.Parameters) sampler.Result {
	return sampler.Result{Decision: sampler.RecordOnly, TraceState: p.Parent.TraceState()}
}

func (recordOnlySampler) Description() string { return "RecordOnlySampler" }

func testConfig() Config {
	var cfg Config
	flagext.DefaultValues(&cfg)
	return cfg
}

// testProvider wires a provider with the given sampler and a capturing
// processor. A nil smp keeps the provider default.
func testProvider(t *testing.T, cfg Config, smp sampler.Sampler) (*Provider, *captureProcessor) {
	t.Helper()
	p, err := NewProvider(cfg, resource.New(attribute.String("service.name", "tracer-test")), smp, nil, nil)
	require.NoError(t, err)
	capture := &captureProcessor{}
	p.RegisterSpanProcessor(capture)
	return p, capture
}

func TestStartRootSpan(t *testing.T) {
	p, capture := testProvider(t, testConfig(), nil)
	tr := p.Tracer("svc/library", "v1.2.3")

	ctx, s := tr.Start(context.Background(), "root")
	sc := s.SpanContext()
	require.True(t, sc.IsValid())
	require.True(t, sc.IsSampled())
	require.True(t, s.IsRecording())
	require.Same(t, s, trace.SpanFromContext(ctx))

	s.End()
	sd := capture.lastEnded(t)
	require.Equal(t, "root", sd.Name)
	require.Equal(t, sc, sd.SpanContext)
	require.False(t, sd.Parent.IsValid())
	require.Equal(t, trace.SpanKindInternal, sd.Kind)
	require.Equal(t, trace.InstrumentationScope{Name: "svc/library", Version: "v1.2.3"}, sd.Scope)
	require.True(t, p.Resource().Equal(sd.Resource))
}

func TestStartChildInheritsTraceID(t *testing.T) {
	p, capture := testProvider(t, testConfig(), nil)
	tr := p.Tracer("test", "")

	ctx, parent := tr.Start(context.Background(), "parent")
	_, child := tr.Start(ctx, "child")

	require.Equal(t, parent.SpanContext().TraceID(), child.SpanContext().TraceID())
	require.NotEqual(t, parent.SpanContext().SpanID(), child.SpanContext().SpanID())

	child.End()
	sd := capture.lastEnded(t)
	require.Equal(t, parent.SpanContext(), sd.Parent)
	parent.End()
}

func TestStartNewRoot(t *testing.T) {
	p, _ := testProvider(t, testConfig(), nil)
	tr := p.Tracer("test", "")

	ctx, parent := tr.Start(context.Background(), "parent")
	_, root := tr.Start(ctx, "detached", WithNewRoot())

	require.NotEqual(t, parent.SpanContext().TraceID(), root.SpanContext().TraceID())
	root.End()
	parent.End()
}

func TestStartWithRemoteParent(t *testing.T) {
	p, capture := testProvider(t, testConfig(), nil)
	tr := p.Tracer("test", "")

	remote := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x01},
		SpanID:     trace.SpanID{0x02},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithRemoteSpanContext(context.Background(), remote)

	_, s := tr.Start(ctx, "server-side")
	require.Equal(t, remote.TraceID(), s.SpanContext().TraceID())
	s.End()

	sd := capture.lastEnded(t)
	require.True(t, sd.Parent.IsRemote())
	require.Equal(t, remote.SpanID(), sd.Parent.SpanID())
}

func TestStartDroppedSpanIsNonRecording(t *testing.T) {
	p, capture := testProvider(t, testConfig(), sampler.AlwaysOff())
	tr := p.Tracer("test", "")

	ctx, s := tr.Start(context.Background(), "invisible")
	require.False(t, s.IsRecording())
	sc := s.SpanContext()
	require.True(t, sc.IsValid())
	require.False(t, sc.IsSampled())
	require.Equal(t, sc, trace.SpanFromContext(ctx).SpanContext())

	// Mutations and End disappear without reaching the chain.
	s.SetName("renamed")
	s.SetAttributes(attribute.String("k", "v"))
	s.End()
	require.Empty(t, capture.endedSpans())

	// Children still join the unsampled trace.
	_, child := tr.Start(ctx, "child")
	require.Equal(t, sc.TraceID(), child.SpanContext().TraceID())
}

func TestStartRecordOnlySpan(t *testing.T) {
	p, capture := testProvider(t, testConfig(), recordOnlySampler{})
	tr := p.Tracer("test", "")

	_, s := tr.Start(context.Background(), "recorded")
	require.True(t, s.IsRecording())
	require.False(t, s.SpanContext().IsSampled())

	s.SetAttributes(attribute.Int("answer", 42))
	s.End()

	// The chain sees the snapshot; exporters will not, because the
	// sampled flag is unset.
	sd := capture.lastEnded(t)
	require.False(t, sd.Sampled())
	require.Equal(t, []attribute.KeyValue{attribute.Int("answer", 42)}, sd.Attributes)
}

func TestRecordOnlySpansNeverReachExporter(t *testing.T) {
	exp := exporter.NewInMemory()
	p, err := NewProvider(testConfig(), nil, recordOnlySampler{}, nil, nil)
	require.NoError(t, err)
	p.RegisterSpanProcessor(processor.NewSimple(exp, nil))

	tr := p.Tracer("test", "")
	_, s := tr.Start(context.Background(), "recorded")
	s.End()

	require.NoError(t, p.ForceFlush(context.Background()))
	require.Empty(t, exp.Spans())
}

func TestStartOptions(t *testing.T) {
	p, capture := testProvider(t, testConfig(), nil)
	tr := p.Tracer("test", "")

	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(250 * time.Millisecond)
	linked := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: trace.TraceID{0xaa},
		SpanID:  trace.SpanID{0xbb},
	})

	_, s := tr.Start(context.Background(), "op",
		WithSpanKind(trace.SpanKindServer),
		WithAttributes(attribute.String("peer", "client-1")),
		WithLinks(trace.Link{SpanContext: linked}),
		WithTimestamp(start),
	)
	s.End(trace.WithTimestamp(end))

	sd := capture.lastEnded(t)
	require.Equal(t, trace.SpanKindServer, sd.Kind)
	require.Equal(t, start, sd.StartTime)
	require.Equal(t, end, sd.EndTime)
	require.Equal(t, 250*time.Millisecond, sd.Duration())
	require.Equal(t, []attribute.KeyValue{attribute.String("peer", "client-1")}, sd.Attributes)
	require.Len(t, sd.Links, 1)
	require.Equal(t, linked, sd.Links[0].SpanContext)
}

func TestSamplerAttributesMergeFirst(t *testing.T) {
	smp := attributeSampler{attrs: []attribute.KeyValue{
		attribute.String("source", "sampler"),
		attribute.String("shared", "sampler"),
	}}
	p, capture := testProvider(t, testConfig(), smp)
	tr := p.Tracer("test", "")

	_, s := tr.Start(context.Background(), "op", WithAttributes(attribute.String("shared", "explicit")))
	s.End()

	sd := capture.lastEnded(t)
	require.Equal(t, []attribute.KeyValue{
		attribute.String("source", "sampler"),
		attribute.String("shared", "explicit"),
	}, sd.Attributes)
}

// attributeSampler samples everything and attaches fixed attributes.
type attributeSampler struct {
	attrs []attribute.KeyValue
}

func (s attributeSampler) ShouldSample(p sampler.Parameters) sampler.Result {
	return sampler.Result{
		Decision:   sampler.RecordAndSample,
		Attributes: s.attrs,
		TraceState: p.Parent.TraceState(),
	}
}

func (attributeSampler) Description() string { return "AttributeSampler" }

func TestStartLinksCappedAtCreation(t *testing.T) {
	cfg := testConfig()
	cfg.SpanLimits.LinkCountLimit = 2
	p, capture := testProvider(t, cfg, nil)
	tr := p.Tracer("test", "")

	links := make([]trace.Link, 4)
	for i := range links {
		links[i] = trace.Link{SpanContext: trace.NewSpanContext(trace.SpanContextConfig{
			TraceID: trace.TraceID{byte(i + 1)},
			SpanID:  trace.SpanID{byte(i + 1)},
		})}
	}
	_, s := tr.Start(context.Background(), "op", WithLinks(links...))
	s.End()

	sd := capture.lastEnded(t)
	require.Len(t, sd.Links, 2)
	require.Equal(t, links[0], sd.Links[0])
	require.Equal(t, links[1], sd.Links[1])
	require.Equal(t, 2, sd.DroppedLinks)
}

func TestOnStartReceivesParentContext(t *testing.T) {
	p, capture := testProvider(t, testConfig(), nil)
	tr := p.Tracer("test", "")

	ctx, parent := tr.Start(context.Background(), "parent")
	_, child := tr.Start(ctx, "child")

	capture.mtx.Lock()
	childStartCtx := capture.startCtxs[1]
	capture.mtx.Unlock()

	// The context handed to OnStart is the one Start was called with: it
	// still carries the parent, not the new span.
	require.Same(t, parent, trace.SpanFromContext(childStartCtx))
	child.End()
	parent.End()
}

func TestTracerCaching(t *testing.T) {
	p, _ := testProvider(t, testConfig(), nil)

	a := p.Tracer("scope", "v1")
	b := p.Tracer("scope", "v1")
	c := p.Tracer("scope", "v2")
	d := p.Tracer("other", "v1")

	require.Same(t, a, b)
	require.NotSame(t, a, c)
	require.NotSame(t, a, d)
	require.Equal(t, trace.InstrumentationScope{Name: "scope", Version: "v1"}, a.Scope())
}

func TestConcurrentSpanStarts(t *testing.T) {
	p, capture := testProvider(t, testConfig(), nil)
	tr := p.Tracer("test", "")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_, s := tr.Start(context.Background(), "op")
				s.SetAttributes(attribute.Int("iteration", j))
				s.End()
			}
		}()
	}
	wg.Wait()

	require.Len(t, capture.endedSpans(), 400)
}
