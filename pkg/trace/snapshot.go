package trace

import (
	"time"

	"github.com/spanstream/spanstream-go/pkg/attribute"
	"github.com/spanstream/spanstream-go/pkg/resource"
)

// SpanData is the immutable snapshot of an ended span. Ownership passes to
// the processor chain when the span ends; the tracer keeps no reference
// and processors must not mutate it.
type SpanData struct {
	SpanContext SpanContext          `json:"span_context"`
	Parent      SpanContext          `json:"parent,omitempty"`
	Name        string               `json:"name"`
	Kind        SpanKind             `json:"kind"`
	StartTime   time.Time            `json:"start_time"`
	EndTime     time.Time            `json:"end_time"`
	Attributes  []attribute.KeyValue `json:"attributes,omitempty"`
	Events      []Event              `json:"events,omitempty"`
	Links       []Link               `json:"links,omitempty"`
	Status      Status               `json:"status"`
	Resource    *resource.Resource   `json:"resource,omitempty"`
	Scope       InstrumentationScope `json:"scope"`

	DroppedAttributes int `json:"dropped_attributes,omitempty"`
	DroppedEvents     int `json:"dropped_events,omitempty"`
	DroppedLinks      int `json:"dropped_links,omitempty"`
}

// Sampled reports whether the span was selected for export.
func (sd *SpanData) Sampled() bool {
	return sd.SpanContext.IsSampled()
}

// Duration returns the span's elapsed wall-clock time.
func (sd *SpanData) Duration() time.Duration {
	return sd.EndTime.Sub(sd.StartTime)
}
