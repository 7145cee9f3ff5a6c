package tracer

import (
	"fmt"
	"runtime/debug"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/spanstream/spanstream-go/pkg/attribute"
	"github.com/spanstream/spanstream-go/pkg/trace"
)

// span is the recording trace.Span implementation. One mutex guards all
// mutable state; no operation blocks or panics. After End the state is
// frozen and every mutator returns without effect.
type span struct {
	tracer *Tracer
	sc     trace.SpanContext
	parent trace.SpanContext
	limits SpanLimits

	mtx       sync.Mutex
	name      string
	kind      trace.SpanKind
	startTime time.Time
	attrs     []attribute.KeyValue
	events    []trace.Event
	links     []trace.Link
	status    trace.Status
	ended     bool

	droppedAttrs  int
	droppedEvents int
	droppedLinks  int
}

var _ trace.Span = (*span)(nil)

// SpanContext returns the identity assigned at start. It never changes.
func (s *span) SpanContext() trace.SpanContext {
	return s.sc
}

// IsRecording reports whether the span still accepts mutations.
func (s *span) IsRecording() bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	return !s.ended
}

// SetName renames the span. Empty names are rejected and counted.
func (s *span) SetName(name string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.ended {
		return
	}
	if name == "" {
		s.tracer.provider.invalidOperation(invalidReasonEmptyName)
		return
	}
	s.name = name
}

// SetAttributes upserts kv pairs one at a time: invalid pairs are rejected
// individually, duplicate keys update in place, and a new key arriving
// over the limit evicts the oldest attribute.
func (s *span) SetAttributes(kv ...attribute.KeyValue) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.ended {
		return
	}
	s.upsertAttributes(kv)
}

// upsertAttributes applies the SetAttributes rules. Caller must hold
// s.mtx.
func (s *span) upsertAttributes(kvs []attribute.KeyValue) {
	for _, kv := range kvs {
		if !kv.Valid() {
			s.tracer.provider.invalidOperation(invalidReasonAttribute)
			continue
		}
		kv.Value = truncateValue(kv.Value, s.limits.AttributeValueLengthLimit)
		if i := indexAttr(s.attrs, kv.Key); i >= 0 {
			s.attrs[i].Value = kv.Value
			continue
		}
		limit := s.limits.AttributeCountLimit
		if len(s.attrs) >= limit {
			s.droppedAttrs++
			if limit == 0 {
				continue
			}
			copy(s.attrs, s.attrs[1:])
			s.attrs[len(s.attrs)-1] = kv
			continue
		}
		s.attrs = append(s.attrs, kv)
	}
}

// AddEvent appends a timestamped annotation, evicting the oldest event
// once EventCountLimit is reached.
func (s *span) AddEvent(name string, opts ...trace.EventOption) {
	cfg := trace.NewEventConfig(opts...)
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.ended {
		return
	}
	s.appendEvent(name, cfg)
}

// appendEvent caps the event's attributes and stores it. Caller must hold
// s.mtx.
func (s *span) appendEvent(name string, cfg trace.EventConfig) {
	attrs, dropped := s.capAttributes(cfg.Attributes)
	ev := trace.Event{
		Name:              name,
		Time:              cfg.Time,
		Attributes:        attrs,
		DroppedAttributes: dropped,
	}
	limit := s.limits.EventCountLimit
	if len(s.events) >= limit {
		s.droppedEvents++
		if limit == 0 {
			return
		}
		copy(s.events, s.events[1:])
		s.events[len(s.events)-1] = ev
		return
	}
	s.events = append(s.events, ev)
}

// RecordError adds an exception event describing err. WithStackTrace also
// captures the calling goroutine's stack, and WithErrorStatus marks the
// span failed with the error's text. A nil err is ignored.
func (s *span) RecordError(err error, opts ...trace.EventOption) {
	if err == nil {
		return
	}
	cfg := trace.NewEventConfig(opts...)
	attrs := []attribute.KeyValue{
		attribute.String("exception.type", fmt.Sprintf("%T", err)),
		attribute.String("exception.message", err.Error()),
	}
	if cfg.StackTrace {
		attrs = append(attrs, attribute.String("exception.stacktrace", string(debug.Stack())))
	}
	cfg.Attributes = append(attrs, cfg.Attributes...)

	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.ended {
		return
	}
	if cfg.SetError {
		s.applyStatus(trace.StatusError, err.Error())
	}
	s.appendEvent("exception", cfg)
}

// SetStatus records the span outcome. Severity only moves up the unset,
// ok, error order; an error is never downgraded and its description can
// only be filled in while still empty.
func (s *span) SetStatus(code trace.StatusCode, description string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if s.ended {
		return
	}
	s.applyStatus(code, description)
}

// applyStatus enforces the status transition rules. Caller must hold
// s.mtx.
func (s *span) applyStatus(code trace.StatusCode, description string) {
	if code < s.status.Code {
		s.tracer.provider.invalidOperation(invalidReasonStatusDowngrade)
		return
	}
	if code != trace.StatusError {
		// Descriptions are only meaningful on errors.
		s.status = trace.Status{Code: code}
		return
	}
	if s.status.Code == trace.StatusError {
		if s.status.Description == "" {
			s.status.Description = description
		}
		return
	}
	s.status = trace.Status{Code: trace.StatusError, Description: description}
}

// End freezes the span and hands its snapshot to the processor chain
// exactly once. The first call fixes the end time; later calls are no-ops.
func (s *span) End(opts ...trace.EndOption) {
	cfg := trace.NewEndConfig(opts...)

	s.mtx.Lock()
	if s.ended {
		s.mtx.Unlock()
		return
	}
	s.ended = true
	endTime := cfg.Time
	if endTime.IsZero() {
		endTime = time.Now()
	}
	sd := s.snapshot(endTime)
	s.mtx.Unlock()

	p := s.tracer.provider
	p.metrics.spansEnded.Inc()
	p.procs.OnEnd(sd)
}

// appendLinks stores creation-time links up to LinkCountLimit, bounding
// each link's attributes on the way in. Links that carry neither a valid
// span context nor attributes are skipped. Caller must hold s.mtx.
func (s *span) appendLinks(links []trace.Link) {
	for _, l := range links {
		if !l.SpanContext.IsValid() && len(l.Attributes) == 0 {
			continue
		}
		if len(s.links) >= s.limits.LinkCountLimit {
			s.droppedLinks++
			continue
		}
		attrs, dropped := s.capAttributes(l.Attributes)
		l.Attributes = attrs
		l.DroppedAttributes += dropped
		s.links = append(s.links, l)
	}
}

// capAttributes bounds a detached attribute list: invalid pairs rejected,
// duplicate keys last-write-wins, values truncated, anything over
// AttributeCountLimit dropped. Caller must hold s.mtx.
func (s *span) capAttributes(kvs []attribute.KeyValue) ([]attribute.KeyValue, int) {
	var out []attribute.KeyValue
	dropped := 0
	for _, kv := range kvs {
		if !kv.Valid() {
			s.tracer.provider.invalidOperation(invalidReasonAttribute)
			continue
		}
		kv.Value = truncateValue(kv.Value, s.limits.AttributeValueLengthLimit)
		if i := indexAttr(out, kv.Key); i >= 0 {
			out[i].Value = kv.Value
			continue
		}
		if len(out) >= s.limits.AttributeCountLimit {
			dropped++
			continue
		}
		out = append(out, kv)
	}
	return out, dropped
}

// snapshot copies the recorded state into an immutable SpanData. Caller
// must hold s.mtx.
func (s *span) snapshot(endTime time.Time) *trace.SpanData {
	sd := &trace.SpanData{
		SpanContext:       s.sc,
		Parent:            s.parent,
		Name:              s.name,
		Kind:              s.kind,
		StartTime:         s.startTime,
		EndTime:           endTime,
		Status:            s.status,
		Resource:          s.tracer.provider.res,
		Scope:             s.tracer.scope,
		DroppedAttributes: s.droppedAttrs,
		DroppedEvents:     s.droppedEvents,
		DroppedLinks:      s.droppedLinks,
	}
	if len(s.attrs) > 0 {
		sd.Attributes = make([]attribute.KeyValue, len(s.attrs))
		copy(sd.Attributes, s.attrs)
	}
	if len(s.events) > 0 {
		sd.Events = make([]trace.Event, len(s.events))
		copy(sd.Events, s.events)
	}
	if len(s.links) > 0 {
		sd.Links = make([]trace.Link, len(s.links))
		copy(sd.Links, s.links)
	}
	return sd
}

func indexAttr(attrs []attribute.KeyValue, key attribute.Key) int {
	for i := range attrs {
		if attrs[i].Key == key {
			return i
		}
	}
	return -1
}

// truncateValue clamps string payloads to limit bytes, backing up so a
// multi-byte rune is never split. A limit of -1 keeps values whole.
func truncateValue(v attribute.Value, limit int) attribute.Value {
	if limit < 0 {
		return v
	}
	switch v.Kind() {
	case attribute.KindString:
		if str := v.AsString(); len(str) > limit {
			return attribute.StringValue(truncateString(str, limit))
		}
	case attribute.KindStringSlice:
		ss := v.AsStringSlice()
		over := false
		for _, str := range ss {
			if len(str) > limit {
				over = true
				break
			}
		}
		if over {
			cp := make([]string, len(ss))
			for i, str := range ss {
				cp[i] = truncateString(str, limit)
			}
			return attribute.StringSliceValue(cp)
		}
	}
	return v
}

func truncateString(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
