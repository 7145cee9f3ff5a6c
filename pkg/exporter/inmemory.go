package exporter

import (
	"context"
	"sync"

	"github.com/spanstream/spanstream-go/pkg/trace"
)

// InMemoryExporter collects exported batches for inspection in tests. It
// can be told to fail or to stall to exercise the error and backpressure
// paths of whatever feeds it.
type InMemoryExporter struct {
	mtx           sync.Mutex
	batches       [][]*trace.SpanData
	exportErr     error
	block         chan struct{}
	exportCalls   int
	shutdownCalls int
	flushCalls    int
}

// NewInMemory returns an empty collecting exporter.
func NewInMemory() *InMemoryExporter {
	return &InMemoryExporter{}
}

// Export appends a copy of the batch, or returns the injected error
// without keeping anything. When stalled it first waits for release or
// for ctx to end.
func (e *InMemoryExporter) Export(ctx context.Context, batch []*trace.SpanData) error {
	e.mtx.Lock()
	e.exportCalls++
	block := e.block
	e.mtx.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	e.mtx.Lock()
	defer e.mtx.Unlock()
	if e.exportErr != nil {
		return e.exportErr
	}
	cp := make([]*trace.SpanData, len(batch))
	copy(cp, batch)
	e.batches = append(e.batches, cp)
	return nil
}

func (e *InMemoryExporter) Shutdown(context.Context) error {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	e.shutdownCalls++
	return nil
}

func (e *InMemoryExporter) ForceFlush(context.Context) error {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	e.flushCalls++
	return nil
}

// SetExportError makes every following Export fail with err. Pass nil to
// heal the exporter.
func (e *InMemoryExporter) SetExportError(err error) {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	e.exportErr = err
}

// Stall blocks every following Export until the returned release function
// runs or the export context ends.
func (e *InMemoryExporter) Stall() (release func()) {
	ch := make(chan struct{})
	e.mtx.Lock()
	e.block = ch
	e.mtx.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(ch)
			e.mtx.Lock()
			e.block = nil
			e.mtx.Unlock()
		})
	}
}

// Spans returns every exported span in delivery order.
func (e *InMemoryExporter) Spans() []*trace.SpanData {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	var out []*trace.SpanData
	for _, b := range e.batches {
		out = append(out, b...)
	}
	return out
}

// Batches returns the exported batches with their boundaries preserved.
func (e *InMemoryExporter) Batches() [][]*trace.SpanData {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	out := make([][]*trace.SpanData, len(e.batches))
	for i, b := range e.batches {
		cp := make([]*trace.SpanData, len(b))
		copy(cp, b)
		out[i] = cp
	}
	return out
}

// ExportCalls returns how many Export calls began, failed and stalled
// ones included.
func (e *InMemoryExporter) ExportCalls() int {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.exportCalls
}

// ShutdownCalls returns how many times Shutdown ran.
func (e *InMemoryExporter) ShutdownCalls() int {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.shutdownCalls
}

// FlushCalls returns how many times ForceFlush ran.
func (e *InMemoryExporter) FlushCalls() int {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.flushCalls
}

// Reset drops everything collected so far.
func (e *InMemoryExporter) Reset() {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	e.batches = nil
	e.exportCalls = 0
	e.shutdownCalls = 0
	e.flushCalls = 0
}
