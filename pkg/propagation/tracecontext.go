package propagation

import (
	"context"
	"fmt"

	"github.com/spanstream/spanstream-go/pkg/trace"
)

const (
	traceparentHeader = "traceparent"
	tracestateHeader  = "tracestate"

	supportedVersion = 0
)

// TraceContext propagates span identity through the W3C trace context
// headers. Inject writes version 00. Extract accepts any version except
// the reserved ff, ignoring fields a future version may append after the
// flags.
type TraceContext struct{}

var _ TextMapPropagator = TraceContext{}

// Inject writes the traceparent header for the span identity in ctx, plus
// the tracestate header when the state is non-empty. Only the sampled flag
// is propagated.
func (TraceContext) Inject(ctx context.Context, carrier TextMapCarrier) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return
	}
	flags := sc.TraceFlags() & trace.FlagsSampled
	carrier.Set(traceparentHeader, fmt.Sprintf("%02x-%s-%s-%s", supportedVersion, sc.TraceID(), sc.SpanID(), flags))
	if ts := sc.TraceState().String(); ts != "" {
		carrier.Set(tracestateHeader, ts)
	}
}

// Extract parses the traceparent and tracestate headers into a remote span
// context carried by the returned context. Missing or malformed headers
// return ctx unchanged; a malformed tracestate alone does not invalidate
// the traceparent.
func (TraceContext) Extract(ctx context.Context, carrier TextMapCarrier) context.Context {
	sc, ok := parseTraceparent(carrier.Get(traceparentHeader))
	if !ok {
		return ctx
	}
	if raw := carrier.Get(tracestateHeader); raw != "" {
		if ts, err := trace.ParseTraceState(raw); err == nil {
			sc = sc.WithTraceState(ts)
		}
	}
	return trace.ContextWithRemoteSpanContext(ctx, sc)
}

// Fields returns the header names Inject may set.
func (TraceContext) Fields() []string {
	return []string{traceparentHeader, tracestateHeader}
}

// parseTraceparent parses the dash-separated version, trace id, span id
// and flags fields, all lowercase hex. Version 00 is exactly 55 bytes;
// later versions may append further dash-separated fields, which are
// ignored.
func parseTraceparent(h string) (trace.SpanContext, bool) {
	const headerLen = 55
	if len(h) < headerLen {
		return trace.SpanContext{}, false
	}
	if h[2] != '-' || h[35] != '-' || h[52] != '-' {
		return trace.SpanContext{}, false
	}
	version, ok := parseHexByte(h[0:2])
	switch {
	case !ok:
		return trace.SpanContext{}, false
	case version == 0xff:
		// ff is reserved and never valid.
		return trace.SpanContext{}, false
	case version == supportedVersion && len(h) != headerLen:
		return trace.SpanContext{}, false
	case version > supportedVersion && len(h) > headerLen && h[headerLen] != '-':
		return trace.SpanContext{}, false
	}
	tid, err := trace.TraceIDFromHex(h[3:35])
	if err != nil {
		return trace.SpanContext{}, false
	}
	sid, err := trace.SpanIDFromHex(h[36:52])
	if err != nil {
		return trace.SpanContext{}, false
	}
	flags, ok := parseHexByte(h[53:55])
	if !ok {
		return trace.SpanContext{}, false
	}
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: tid,
		SpanID:  sid,
		// Flag bits beyond sampled belong to future versions.
		TraceFlags: trace.TraceFlags(flags) & trace.FlagsSampled,
	}), true
}

// parseHexByte decodes exactly two lowercase hex characters.
func parseHexByte(s string) (byte, bool) {
	if len(s) != 2 {
		return 0, false
	}
	hi, ok := hexNibble(s[0])
	if !ok {
		return 0, false
	}
	lo, ok := hexNibble(s[1])
	if !ok {
		return 0, false
	}
	return hi<<4 | lo, true
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	}
	return 0, false
}
