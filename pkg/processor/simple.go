package processor

import (
	"context"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/spanstream/spanstream-go/pkg/exporter"
	"github.com/spanstream/spanstream-go/pkg/trace"
)

// Simple exports each sampled span synchronously as it ends, one span per
// batch. The export happens on the goroutine that ended the span, so this
// is for development and tests, not production traffic.
type Simple struct {
	mtx    sync.Mutex
	exp    exporter.SpanExporter
	logger log.Logger
}

// NewSimple returns a synchronous processor delivering to exp.
func NewSimple(exp exporter.SpanExporter, logger log.Logger) *Simple {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Simple{exp: exp, logger: logger}
}

// OnStart is a no-op.
func (s *Simple) OnStart(context.Context, trace.Span) {}

// OnEnd exports sd immediately. Unsampled spans are skipped and export
// failures are logged, never surfaced to the instrumented code.
func (s *Simple) OnEnd(sd *trace.SpanData) {
	if sd == nil || !sd.Sampled() {
		return
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.exp == nil {
		return
	}
	if err := s.exp.Export(context.Background(), []*trace.SpanData{sd}); err != nil {
		level.Warn(s.logger).Log("msg", "failed to export span", "span", sd.Name, "err", err)
	}
}

// Shutdown stops the processor and shuts the exporter down. The first
// call wins; later calls are no-ops.
func (s *Simple) Shutdown(ctx context.Context) error {
	s.mtx.Lock()
	exp := s.exp
	s.exp = nil
	s.mtx.Unlock()
	if exp == nil {
		return nil
	}
	return exp.Shutdown(ctx)
}

// ForceFlush delegates to the exporter; nothing is buffered here.
func (s *Simple) ForceFlush(ctx context.Context) error {
	s.mtx.Lock()
	exp := s.exp
	s.mtx.Unlock()
	if exp == nil {
		return nil
	}
	return exp.ForceFlush(ctx)
}
