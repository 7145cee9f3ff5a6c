package tracer

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sync"

	"github.com/spanstream/spanstream-go/pkg/trace"
)

// Generator mints trace and span identifiers. Implementations must never
// return the all-zero invalid values.
type Generator interface {
	// NewIDs returns identifiers for the root span of a new trace.
	NewIDs(ctx context.Context) (trace.TraceID, trace.SpanID)

	// NewSpanID returns an identifier for a child span in trace tid.
	NewSpanID(ctx context.Context, tid trace.TraceID) trace.SpanID
}

// randomGenerator draws ids from a math/rand source seeded once from
// crypto/rand. The mutex makes it safe for concurrent span starts, and the
// all-zero values are re-rolled so an invalid id is never handed out.
type randomGenerator struct {
	mtx sync.Mutex
	rnd *rand.Rand
}

func newRandomGenerator() *randomGenerator {
	var seed int64
	_ = binary.Read(crand.Reader, binary.LittleEndian, &seed)
	return &randomGenerator{rnd: rand.New(rand.NewSource(seed))}
}

func (g *randomGenerator) NewIDs(_ context.Context) (trace.TraceID, trace.SpanID) {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	var tid trace.TraceID
	for !tid.IsValid() {
		_, _ = g.rnd.Read(tid[:])
	}
	var sid trace.SpanID
	for !sid.IsValid() {
		_, _ = g.rnd.Read(sid[:])
	}
	return tid, sid
}

func (g *randomGenerator) NewSpanID(_ context.Context, _ trace.TraceID) trace.SpanID {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	var sid trace.SpanID
	for !sid.IsValid() {
		_, _ = g.rnd.Read(sid[:])
	}
	return sid
}
