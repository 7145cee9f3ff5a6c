package trace

import (
	"encoding/hex"
	"encoding/json"
)

// TraceFlags is the 8-bit field of trace options carried alongside the
// identifiers. Only the sampled bit is defined.
type TraceFlags byte

// FlagsSampled marks a trace selected for export by the sampler.
const FlagsSampled = TraceFlags(0x01)

// IsSampled reports whether the sampled bit is set.
func (tf TraceFlags) IsSampled() bool {
	return tf&FlagsSampled == FlagsSampled
}

// WithSampled returns a copy of the flags with the sampled bit set or
// cleared.
func (tf TraceFlags) WithSampled(sampled bool) TraceFlags {
	if sampled {
		return tf | FlagsSampled
	}
	return tf &^ FlagsSampled
}

// String returns the flags as two lowercase hex characters.
func (tf TraceFlags) String() string {
	return hex.EncodeToString([]byte{byte(tf)})
}

// MarshalJSON encodes the flags as their hex form.
func (tf TraceFlags) MarshalJSON() ([]byte, error) {
	return json.Marshal(tf.String())
}

// SpanContextConfig holds the fields of a SpanContext for construction.
type SpanContextConfig struct {
	TraceID    TraceID
	SpanID     SpanID
	TraceFlags TraceFlags
	TraceState TraceState
	Remote     bool
}

// NewSpanContext builds an immutable SpanContext from cfg.
func NewSpanContext(cfg SpanContextConfig) SpanContext {
	return SpanContext{
		traceID:    cfg.TraceID,
		spanID:     cfg.SpanID,
		traceFlags: cfg.TraceFlags,
		traceState: cfg.TraceState,
		remote:     cfg.Remote,
	}
}

// SpanContext is the immutable identity of a span: trace id, span id,
// flags, trace state and whether it arrived from a remote process. The
// zero value is invalid.
type SpanContext struct {
	traceID    TraceID
	spanID     SpanID
	traceFlags TraceFlags
	traceState TraceState
	remote     bool
}

// TraceID returns the trace id.
func (sc SpanContext) TraceID() TraceID {
	return sc.traceID
}

// HasTraceID reports whether the trace id is non-zero.
func (sc SpanContext) HasTraceID() bool {
	return sc.traceID.IsValid()
}

// SpanID returns the span id.
func (sc SpanContext) SpanID() SpanID {
	return sc.spanID
}

// HasSpanID reports whether the span id is non-zero.
func (sc SpanContext) HasSpanID() bool {
	return sc.spanID.IsValid()
}

// TraceFlags returns the flags.
func (sc SpanContext) TraceFlags() TraceFlags {
	return sc.traceFlags
}

// TraceState returns the trace state.
func (sc SpanContext) TraceState() TraceState {
	return sc.traceState
}

// IsSampled reports whether the sampled flag is set.
func (sc SpanContext) IsSampled() bool {
	return sc.traceFlags.IsSampled()
}

// IsRemote reports whether the context was extracted from another process.
func (sc SpanContext) IsRemote() bool {
	return sc.remote
}

// IsValid reports whether both identifiers are non-zero. Only valid
// contexts participate in parenting and propagation.
func (sc SpanContext) IsValid() bool {
	return sc.HasTraceID() && sc.HasSpanID()
}

// WithTraceID returns a copy with the trace id replaced.
func (sc SpanContext) WithTraceID(id TraceID) SpanContext {
	sc.traceID = id
	return sc
}

// WithSpanID returns a copy with the span id replaced.
func (sc SpanContext) WithSpanID(id SpanID) SpanContext {
	sc.spanID = id
	return sc
}

// WithTraceFlags returns a copy with the flags replaced.
func (sc SpanContext) WithTraceFlags(flags TraceFlags) SpanContext {
	sc.traceFlags = flags
	return sc
}

// WithTraceState returns a copy with the trace state replaced.
func (sc SpanContext) WithTraceState(state TraceState) SpanContext {
	sc.traceState = state
	return sc
}

// WithRemote returns a copy with the remote marker replaced.
func (sc SpanContext) WithRemote(remote bool) SpanContext {
	sc.remote = remote
	return sc
}

// Equal reports whether two contexts are identical, including the remote
// marker.
func (sc SpanContext) Equal(other SpanContext) bool {
	return sc.traceID == other.traceID &&
		sc.spanID == other.spanID &&
		sc.traceFlags == other.traceFlags &&
		sc.traceState.String() == other.traceState.String() &&
		sc.remote == other.remote
}

// MarshalJSON encodes the context with its hex-rendered identifiers.
func (sc SpanContext) MarshalJSON() ([]byte, error) {
	return json.Marshal(SpanContextConfig{
		TraceID:    sc.traceID,
		SpanID:     sc.spanID,
		TraceFlags: sc.traceFlags,
		TraceState: sc.traceState,
		Remote:     sc.remote,
	})
}
