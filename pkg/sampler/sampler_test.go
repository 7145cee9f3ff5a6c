package sampler

import (
	"encoding/binary"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spanstream/spanstream-go/pkg/trace"
)

func randomTraceID(rnd *rand.Rand) trace.TraceID {
	var id trace.TraceID
	binary.BigEndian.PutUint64(id[:8], rnd.Uint64())
	binary.BigEndian.PutUint64(id[8:], rnd.Uint64())
	if !id.IsValid() {
		id[0] = 1
	}
	return id
}

func parentContext(t *testing.T, sampled, remote bool) trace.SpanContext {
	t.Helper()
	tid, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	sid, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    tid,
		SpanID:     sid,
		TraceFlags: trace.TraceFlags(0).WithSampled(sampled),
		Remote:     remote,
	})
}

func TestAlwaysOnOff(t *testing.T) {
	p := Parameters{TraceID: trace.TraceID{1}}
	require.Equal(t, RecordAndSample, AlwaysOn().ShouldSample(p).Decision)
	require.Equal(t, Drop, AlwaysOff().ShouldSample(p).Decision)
}

func TestTraceIDRatioConstruction(t *testing.T) {
	for _, ratio := range []float64{-0.1, 1.1, math.NaN(), math.Inf(1), math.Inf(-1)} {
		_, err := TraceIDRatio(ratio)
		require.Error(t, err, "ratio %v", ratio)
	}
	for _, ratio := range []float64{0, 0.25, 0.5, 1} {
		s, err := TraceIDRatio(ratio)
		require.NoError(t, err)
		require.NotNil(t, s)
	}
}

func TestTraceIDRatioDeterminism(t *testing.T) {
	s, err := TraceIDRatio(0.5)
	require.NoError(t, err)

	rnd := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		p := Parameters{TraceID: randomTraceID(rnd)}
		first := s.ShouldSample(p).Decision
		for j := 0; j < 10; j++ {
			require.Equal(t, first, s.ShouldSample(p).Decision)
		}
	}
}

func TestTraceIDRatioBounds(t *testing.T) {
	never, err := TraceIDRatio(0)
	require.NoError(t, err)
	always, err := TraceIDRatio(1)
	require.NoError(t, err)

	rnd := rand.New(rand.NewSource(2))
	for i := 0; i < 1000; i++ {
		p := Parameters{TraceID: randomTraceID(rnd)}
		require.Equal(t, Drop, never.ShouldSample(p).Decision)
		require.Equal(t, RecordAndSample, always.ShouldSample(p).Decision)
	}
}

func TestTraceIDRatioInclusive(t *testing.T) {
	// A trace sampled at a lower ratio is sampled at every higher ratio.
	low, err := TraceIDRatio(0.25)
	require.NoError(t, err)
	high, err := TraceIDRatio(0.75)
	require.NoError(t, err)

	rnd := rand.New(rand.NewSource(3))
	var sampledLow int
	for i := 0; i < 1000; i++ {
		p := Parameters{TraceID: randomTraceID(rnd)}
		if low.ShouldSample(p).Decision == RecordAndSample {
			sampledLow++
			require.Equal(t, RecordAndSample, high.ShouldSample(p).Decision)
		}
	}
	require.Greater(t, sampledLow, 0)
}

func TestTraceIDRatioIgnoresParentFlag(t *testing.T) {
	s, err := TraceIDRatio(1)
	require.NoError(t, err)

	p := Parameters{
		Parent:  parentContext(t, false, false),
		TraceID: trace.TraceID{1},
	}
	require.Equal(t, RecordAndSample, s.ShouldSample(p).Decision)
}

func TestParentBasedDelegation(t *testing.T) {
	pb := ParentBased(AlwaysOff())

	for _, tc := range []struct {
		name string
		p    Parameters
		want Decision
	}{
		{"no parent uses root", Parameters{TraceID: trace.TraceID{1}}, Drop},
		{"local sampled", Parameters{Parent: parentContext(t, true, false)}, RecordAndSample},
		{"local not sampled", Parameters{Parent: parentContext(t, false, false)}, Drop},
		{"remote sampled", Parameters{Parent: parentContext(t, true, true)}, RecordAndSample},
		{"remote not sampled", Parameters{Parent: parentContext(t, false, true)}, Drop},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, pb.ShouldSample(tc.p).Decision)
		})
	}
}

func TestParentBasedOverrides(t *testing.T) {
	pb := ParentBased(AlwaysOn(),
		WithRemoteParentSampled(AlwaysOff()),
		WithRemoteParentNotSampled(AlwaysOn()),
		WithLocalParentSampled(AlwaysOff()),
		WithLocalParentNotSampled(AlwaysOn()),
	)

	require.Equal(t, Drop, pb.ShouldSample(Parameters{Parent: parentContext(t, true, true)}).Decision)
	require.Equal(t, RecordAndSample, pb.ShouldSample(Parameters{Parent: parentContext(t, false, true)}).Decision)
	require.Equal(t, Drop, pb.ShouldSample(Parameters{Parent: parentContext(t, true, false)}).Decision)
	require.Equal(t, RecordAndSample, pb.ShouldSample(Parameters{Parent: parentContext(t, false, false)}).Decision)
}

func TestTraceStatePassThrough(t *testing.T) {
	ts, err := trace.ParseTraceState("a=1")
	require.NoError(t, err)
	parent := parentContext(t, true, false).WithTraceState(ts)

	for _, s := range []Sampler{AlwaysOn(), AlwaysOff(), ParentBased(AlwaysOn())} {
		res := s.ShouldSample(Parameters{Parent: parent, TraceID: parent.TraceID()})
		require.Equal(t, "1", res.TraceState.Get("a"), s.Description())
	}
}

func TestDescriptions(t *testing.T) {
	require.Equal(t, "AlwaysOnSampler", AlwaysOn().Description())
	require.Equal(t, "AlwaysOffSampler", AlwaysOff().Description())

	s, err := TraceIDRatio(0.5)
	require.NoError(t, err)
	require.Equal(t, "TraceIDRatioBased{0.5}", s.Description())

	require.Contains(t, ParentBased(s).Description(), "ParentBased{root:TraceIDRatioBased{0.5}")
}
