package exporter

import (
	"context"
	"io"
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/spanstream/spanstream-go/pkg/trace"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// StdoutOption configures the stdout exporter.
type StdoutOption func(*stdoutExporter)

// WithPrettyPrint indents the JSON output for human reading.
func WithPrettyPrint() StdoutOption {
	return func(e *stdoutExporter) { e.pretty = true }
}

type stdoutExporter struct {
	mtx     sync.Mutex
	w       io.Writer
	pretty  bool
	stopped bool
}

// NewStdout returns a debugging exporter that writes one JSON object per
// span to w, or to standard output when w is nil. Writes are serialized;
// this is not a backend wire format.
func NewStdout(w io.Writer, opts ...StdoutOption) SpanExporter {
	if w == nil {
		w = os.Stdout
	}
	e := &stdoutExporter{w: w}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *stdoutExporter) Export(ctx context.Context, batch []*trace.SpanData) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mtx.Lock()
	defer e.mtx.Unlock()
	if e.stopped {
		return nil
	}

	enc := json.NewEncoder(e.w)
	if e.pretty {
		enc.SetIndent("", "\t")
	}
	for _, sd := range batch {
		if err := enc.Encode(sd); err != nil {
			return err
		}
	}
	return nil
}

func (e *stdoutExporter) Shutdown(ctx context.Context) error {
	e.mtx.Lock()
	e.stopped = true
	e.mtx.Unlock()
	return ctx.Err()
}

func (e *stdoutExporter) ForceFlush(context.Context) error {
	return nil
}
