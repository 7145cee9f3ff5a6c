package trace

import (
	"time"

	"github.com/spanstream/spanstream-go/pkg/attribute"
)

// Span is the writable handle to an in-flight operation. Implementations
// never panic and never block: misuse is dropped and reported through the
// SDK's diagnostic channel instead. All methods are safe for concurrent
// use.
type Span interface {
	// SpanContext returns the span's immutable identity. Valid even after
	// End and on non-recording spans.
	SpanContext() SpanContext

	// IsRecording reports whether mutations are currently being kept.
	// False before start would be observable, after End, and on
	// non-recording spans.
	IsRecording() bool

	// SetName renames the span. Empty names are rejected.
	SetName(name string)

	// SetAttributes upserts attributes. Pairs with an empty key are
	// rejected individually; on duplicate keys the last write wins.
	SetAttributes(kv ...attribute.KeyValue)

	// AddEvent appends a timestamped annotation.
	AddEvent(name string, opts ...EventOption)

	// RecordError adds an exception event describing err. A nil err is
	// ignored. The span status is untouched unless WithErrorStatus is
	// given.
	RecordError(err error, opts ...EventOption)

	// SetStatus records the span outcome. Severity only increases: an
	// error status is never overwritten, and its description can only be
	// filled in when previously empty.
	SetStatus(code StatusCode, description string)

	// End freezes the span and hands its snapshot to the processor chain.
	// The first call wins; later calls and any mutation after End are
	// no-ops.
	End(opts ...EndOption)
}

// EventConfig collects the options of AddEvent and RecordError.
type EventConfig struct {
	Time       time.Time
	Attributes []attribute.KeyValue
	StackTrace bool
	SetError   bool
}

// NewEventConfig applies opts and fills the timestamp if none was given.
func NewEventConfig(opts ...EventOption) EventConfig {
	var c EventConfig
	for _, opt := range opts {
		opt.applyEvent(&c)
	}
	if c.Time.IsZero() {
		c.Time = time.Now()
	}
	return c
}

// EventOption configures an event added to a span.
type EventOption interface {
	applyEvent(*EventConfig)
}

// EndConfig collects the options of End.
type EndConfig struct {
	Time time.Time
}

// NewEndConfig applies opts without defaulting the timestamp; a zero time
// means End uses the clock.
func NewEndConfig(opts ...EndOption) EndConfig {
	var c EndConfig
	for _, opt := range opts {
		opt.applyEnd(&c)
	}
	return c
}

// EndOption configures the End of a span.
type EndOption interface {
	applyEnd(*EndConfig)
}

// TimestampOption overrides the wall-clock reading for an event or for
// span end.
type TimestampOption interface {
	EventOption
	EndOption
}

type timestampOption time.Time

func (o timestampOption) applyEvent(c *EventConfig) { c.Time = time.Time(o) }
func (o timestampOption) applyEnd(c *EndConfig)     { c.Time = time.Time(o) }

// WithTimestamp uses t instead of the current time.
func WithTimestamp(t time.Time) TimestampOption {
	return timestampOption(t)
}

type eventAttributesOption []attribute.KeyValue

func (o eventAttributesOption) applyEvent(c *EventConfig) {
	c.Attributes = append(c.Attributes, o...)
}

// WithAttributes attaches attributes to an event.
func WithAttributes(kv ...attribute.KeyValue) EventOption {
	return eventAttributesOption(kv)
}

type stackTraceOption struct{}

func (stackTraceOption) applyEvent(c *EventConfig) { c.StackTrace = true }

// WithStackTrace makes RecordError capture the calling goroutine's stack.
func WithStackTrace() EventOption {
	return stackTraceOption{}
}

type errorStatusOption struct{}

func (errorStatusOption) applyEvent(c *EventConfig) { c.SetError = true }

// WithErrorStatus makes RecordError also set the span status to error with
// the error's text.
func WithErrorStatus() EventOption {
	return errorStatusOption{}
}

// nonRecordingSpan carries a SpanContext for parenting and propagation but
// keeps nothing. Mutations disappear silently.
type nonRecordingSpan struct {
	sc SpanContext
}

// NewNonRecordingSpan wraps sc in a Span that records nothing. Used for
// remote parents and for spans the sampler dropped.
func NewNonRecordingSpan(sc SpanContext) Span {
	return nonRecordingSpan{sc: sc}
}

func (s nonRecordingSpan) SpanContext() SpanContext { return s.sc }

func (nonRecordingSpan) IsRecording() bool { return false }

func (nonRecordingSpan) SetName(string) {}

func (nonRecordingSpan) SetAttributes(...attribute.KeyValue) {}

func (nonRecordingSpan) AddEvent(string, ...EventOption) {}

func (nonRecordingSpan) RecordError(error, ...EventOption) {}

func (nonRecordingSpan) SetStatus(StatusCode, string) {}

func (nonRecordingSpan) End(...EndOption) {}
