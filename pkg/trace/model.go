package trace

import (
	"encoding/json"
	"time"

	"github.com/spanstream/spanstream-go/pkg/attribute"
)

// SpanKind describes the relationship between a span and its trace
// neighbours.
type SpanKind int

const (
	// SpanKindUnspecified is the zero value; it is normalized to
	// SpanKindInternal when a span starts.
	SpanKindUnspecified SpanKind = iota
	// SpanKindInternal is an operation internal to the application.
	SpanKindInternal
	// SpanKindServer handles a request from a remote client.
	SpanKindServer
	// SpanKindClient issues a request to a remote server.
	SpanKindClient
	// SpanKindProducer enqueues work picked up asynchronously.
	SpanKindProducer
	// SpanKindConsumer processes asynchronously produced work.
	SpanKindConsumer
)

// ValidateSpanKind maps unspecified or unknown kinds to SpanKindInternal.
func ValidateSpanKind(k SpanKind) SpanKind {
	if k < SpanKindInternal || k > SpanKindConsumer {
		return SpanKindInternal
	}
	return k
}

func (k SpanKind) String() string {
	switch k {
	case SpanKindInternal:
		return "internal"
	case SpanKindServer:
		return "server"
	case SpanKindClient:
		return "client"
	case SpanKindProducer:
		return "producer"
	case SpanKindConsumer:
		return "consumer"
	}
	return "unspecified"
}

// MarshalJSON encodes the kind as its name.
func (k SpanKind) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// StatusCode grades the outcome of a span. Codes are ordered by severity:
// unset below ok below error. Span status transitions only move up this
// order.
type StatusCode int

const (
	// StatusUnset means no status was recorded.
	StatusUnset StatusCode = iota
	// StatusOK marks an explicitly successful operation.
	StatusOK
	// StatusError marks a failed operation.
	StatusError
)

func (c StatusCode) String() string {
	switch c {
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	}
	return "unset"
}

// MarshalJSON encodes the code as its name.
func (c StatusCode) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// Status is the recorded outcome of a span. The description is only
// meaningful together with StatusError.
type Status struct {
	Code        StatusCode `json:"code"`
	Description string     `json:"description,omitempty"`
}

// Event is a timestamped annotation on a span.
type Event struct {
	Name              string               `json:"name"`
	Time              time.Time            `json:"time"`
	Attributes        []attribute.KeyValue `json:"attributes,omitempty"`
	DroppedAttributes int                  `json:"dropped_attributes,omitempty"`
}

// Link points from a span to a span in this or another trace. Links are
// fixed when the span starts.
type Link struct {
	SpanContext       SpanContext          `json:"span_context"`
	Attributes        []attribute.KeyValue `json:"attributes,omitempty"`
	DroppedAttributes int                  `json:"dropped_attributes,omitempty"`
}

// InstrumentationScope names the instrumented library a tracer reports
// for.
type InstrumentationScope struct {
	Name    string `json:"name"`
	Version string `json:"version,omitempty"`
}
