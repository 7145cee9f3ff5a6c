package tracer

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/spanstream/spanstream-go/pkg/resource"
	"github.com/spanstream/spanstream-go/pkg/trace"
)

func TestNewProviderDefaults(t *testing.T) {
	p, err := NewProvider(testConfig(), nil, nil, nil, nil)
	require.NoError(t, err)

	name, ok := p.Resource().Value(resource.ServiceNameKey)
	require.True(t, ok)
	require.Equal(t, "unknown_service", name.AsString())
	_, ok = p.Resource().Value(resource.SDKNameKey)
	require.True(t, ok)

	// The default sampler keeps every root span.
	_, s := p.Tracer("test", "").Start(context.Background(), "root")
	require.True(t, s.SpanContext().IsSampled())
	require.True(t, s.IsRecording())
	s.End()
}

func TestNewProviderInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.SpanLimits.AttributeCountLimit = -1

	_, err := NewProvider(cfg, nil, nil, nil, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "invalid tracer config")
}

func TestProviderSpanMetrics(t *testing.T) {
	p, _ := testProvider(t, testConfig(), nil)
	tr := p.Tracer("test", "")

	for i := 0; i < 3; i++ {
		_, s := tr.Start(context.Background(), "op")
		if i < 2 {
			s.End()
		}
	}

	require.Equal(t, 3.0, testutil.ToFloat64(p.metrics.spansStarted))
	require.Equal(t, 3.0, testutil.ToFloat64(p.metrics.spansSampled))
	require.Equal(t, 2.0, testutil.ToFloat64(p.metrics.spansEnded))

	// Record-only spans start without counting as sampled.
	ro, _ := testProvider(t, testConfig(), recordOnlySampler{})
	_, s := ro.Tracer("test", "").Start(context.Background(), "op")
	s.End()
	require.Equal(t, 1.0, testutil.ToFloat64(ro.metrics.spansStarted))
	require.Equal(t, 0.0, testutil.ToFloat64(ro.metrics.spansSampled))
}

func TestProviderShutdownIdempotent(t *testing.T) {
	p, capture := testProvider(t, testConfig(), nil)
	tr := p.Tracer("test", "")

	_, s := tr.Start(context.Background(), "before")
	s.End()

	require.NoError(t, p.Shutdown(context.Background()))
	require.NoError(t, p.Shutdown(context.Background()))
	require.NoError(t, p.ForceFlush(context.Background()))

	// Spans started after shutdown are inert and reach no processor.
	_, late := tr.Start(context.Background(), "after")
	require.False(t, late.IsRecording())
	late.End()
	require.Len(t, capture.endedSpans(), 1)

	// So are processors registered after shutdown.
	p.RegisterSpanProcessor(&captureProcessor{})
	require.Equal(t, 1, p.procs.Len())
}

func TestProviderStartAfterShutdownKeepsContextIdentity(t *testing.T) {
	p, _ := testProvider(t, testConfig(), nil)
	require.NoError(t, p.Shutdown(context.Background()))

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0xaa},
		SpanID:     trace.SpanID{0xbb},
		TraceFlags: trace.TraceFlags(0).WithSampled(true),
	})
	ctx := trace.ContextWithRemoteSpanContext(context.Background(), sc)

	childCtx, s := p.Tracer("test", "").Start(ctx, "late")
	require.False(t, s.IsRecording())
	require.Equal(t, sc.TraceID(), s.SpanContext().TraceID())
	require.Equal(t, sc.SpanID(), s.SpanContext().SpanID())
	require.Equal(t, s.SpanContext(), trace.SpanContextFromContext(childCtx))
}
