package exporter

import (
	"github.com/spanstream/spanstream-go/pkg/trace"
)

func testSpan(name string, n byte) *trace.SpanData {
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1},
		SpanID:     trace.SpanID{n},
		TraceFlags: trace.FlagsSampled,
	})
	return &trace.SpanData{
		Name:        name,
		SpanContext: sc,
		Kind:        trace.SpanKindInternal,
	}
}
