package trace

import "context"

type currentSpanKey struct{}

// ContextWithSpan returns a copy of parent carrying s as the current span.
func ContextWithSpan(parent context.Context, s Span) context.Context {
	return context.WithValue(parent, currentSpanKey{}, s)
}

// ContextWithSpanContext returns a copy of parent carrying sc wrapped in a
// non-recording span.
func ContextWithSpanContext(parent context.Context, sc SpanContext) context.Context {
	return ContextWithSpan(parent, NewNonRecordingSpan(sc))
}

// ContextWithRemoteSpanContext returns a copy of parent carrying sc marked
// remote, for use after extracting a context from an incoming request.
func ContextWithRemoteSpanContext(parent context.Context, sc SpanContext) context.Context {
	return ContextWithSpanContext(parent, sc.WithRemote(true))
}

// SpanFromContext returns the current span. When none is present it
// returns a non-recording span with an invalid context, never nil, so
// callers can use the result unconditionally.
func SpanFromContext(ctx context.Context) Span {
	if ctx == nil {
		return NewNonRecordingSpan(SpanContext{})
	}
	if s, ok := ctx.Value(currentSpanKey{}).(Span); ok {
		return s
	}
	return NewNonRecordingSpan(SpanContext{})
}

// SpanContextFromContext returns the current span's context, or the
// invalid zero SpanContext when no span is present.
func SpanContextFromContext(ctx context.Context) SpanContext {
	return SpanFromContext(ctx).SpanContext()
}
