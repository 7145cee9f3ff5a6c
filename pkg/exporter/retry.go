package exporter

import (
	"context"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/grafana/dskit/backoff"
	"github.com/pkg/errors"

	"github.com/spanstream/spanstream-go/pkg/trace"
)

type permanentError struct {
	err error
}

func (e permanentError) Error() string { return e.err.Error() }

func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as non-retryable: a retrying exporter returns it
// immediately instead of backing off. A nil err stays nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

type retryExporter struct {
	next   SpanExporter
	cfg    backoff.Config
	logger log.Logger
}

// NewRetry wraps next with backoff-and-retry on Export failures. Retries
// stop when the attempt succeeds, the error is Permanent, the context
// ends, or the configured retries are exhausted; the batch is then
// abandoned with the last error.
func NewRetry(next SpanExporter, cfg backoff.Config, logger log.Logger) SpanExporter {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &retryExporter{next: next, cfg: cfg, logger: logger}
}

func (r *retryExporter) Export(ctx context.Context, batch []*trace.SpanData) error {
	var lastErr error
	b := backoff.New(ctx, r.cfg)
	for b.Ongoing() {
		err := r.next.Export(ctx, batch)
		if err == nil {
			return nil
		}
		var perm permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		lastErr = err
		level.Warn(r.logger).Log("msg", "export attempt failed", "retries", b.NumRetries(), "err", err)
		b.Wait()
	}
	if lastErr != nil {
		return errors.Wrap(lastErr, "export abandoned")
	}
	return b.Err()
}

func (r *retryExporter) Shutdown(ctx context.Context) error {
	return r.next.Shutdown(ctx)
}

func (r *retryExporter) ForceFlush(ctx context.Context) error {
	return r.next.ForceFlush(ctx)
}
