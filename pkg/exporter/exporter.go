// Package exporter defines the interface that delivers finished span
// batches to a backend, plus adapters for fan-out, retrying, debugging and
// testing. Exporters own their delivery semantics: the batch processor
// upstream hands a batch over exactly once and never retries.
package exporter

import (
	"context"

	"github.com/spanstream/spanstream-go/pkg/trace"
)

// SpanExporter delivers batches of ended, sampled spans. Implementations
// must honor the context deadline, return errors instead of panicking, and
// tolerate calls after Shutdown (returning quickly, exporting nothing).
type SpanExporter interface {
	// Export delivers a batch. The slice must not be retained after the
	// call returns.
	Export(ctx context.Context, batch []*trace.SpanData) error

	// Shutdown flushes whatever the exporter buffers and releases its
	// resources. Further exports are discarded.
	Shutdown(ctx context.Context) error

	// ForceFlush pushes any buffered telemetry out now.
	ForceFlush(ctx context.Context) error
}

type noopExporter struct{}

// NewNoop returns an exporter that discards everything.
func NewNoop() SpanExporter {
	return noopExporter{}
}

func (noopExporter) Export(context.Context, []*trace.SpanData) error { return nil }

func (noopExporter) Shutdown(context.Context) error { return nil }

func (noopExporter) ForceFlush(context.Context) error { return nil }
