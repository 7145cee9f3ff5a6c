// Package sampler decides which spans are recorded and exported. Samplers
// are pure: the decision depends only on the inputs in Parameters, so the
// same trace id always yields the same outcome.
package sampler

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/spanstream/spanstream-go/pkg/attribute"
	"github.com/spanstream/spanstream-go/pkg/trace"
)

// Decision is the outcome of a sampling call.
type Decision int

const (
	// Drop discards the span: it is neither recorded nor exported.
	Drop Decision = iota
	// RecordOnly records the span but leaves the sampled flag unset, so
	// exporters never see it.
	RecordOnly
	// RecordAndSample records the span and marks it for export.
	RecordAndSample
)

func (d Decision) String() string {
	switch d {
	case RecordOnly:
		return "record_only"
	case RecordAndSample:
		return "record_and_sample"
	}
	return "drop"
}

// Parameters carries everything a sampler may consult. All fields are
// read-only values; samplers must not retain or mutate them.
type Parameters struct {
	Parent     trace.SpanContext
	TraceID    trace.TraceID
	Name       string
	Kind       trace.SpanKind
	Attributes []attribute.KeyValue
	Links      []trace.Link
}

// Result is a sampling decision plus attributes to merge into the new span
// and the trace state it starts with.
type Result struct {
	Decision   Decision
	Attributes []attribute.KeyValue
	TraceState trace.TraceState
}

// Sampler selects spans at start time, before any work is recorded.
type Sampler interface {
	ShouldSample(p Parameters) Result
	Description() string
}

type alwaysOnSampler struct{}

// AlwaysOn returns a sampler that samples every span.
func AlwaysOn() Sampler {
	return alwaysOnSampler{}
}

func (alwaysOnSampler) ShouldSample(p Parameters) Result {
	return Result{Decision: RecordAndSample, TraceState: p.Parent.TraceState()}
}

func (alwaysOnSampler) Description() string {
	return "AlwaysOnSampler"
}

type alwaysOffSampler struct{}

// AlwaysOff returns a sampler that drops every span.
func AlwaysOff() Sampler {
	return alwaysOffSampler{}
}

func (alwaysOffSampler) ShouldSample(p Parameters) Result {
	return Result{Decision: Drop, TraceState: p.Parent.TraceState()}
}

func (alwaysOffSampler) Description() string {
	return "AlwaysOffSampler"
}

type traceIDRatioSampler struct {
	threshold   uint64
	description string
}

// TraceIDRatio returns a sampler that samples the given fraction of
// traces, decided deterministically from the trace id so every participant
// in a trace that uses the same ratio agrees. A ratio outside [0, 1] is a
// construction error.
func TraceIDRatio(ratio float64) (Sampler, error) {
	if math.IsNaN(ratio) || ratio < 0 || ratio > 1 {
		return nil, errors.Errorf("sampling ratio must be in [0, 1], got %v", ratio)
	}
	return traceIDRatioSampler{
		threshold:   uint64(ratio * (1 << 63)),
		description: fmt.Sprintf("TraceIDRatioBased{%g}", ratio),
	}, nil
}

func (s traceIDRatioSampler) ShouldSample(p Parameters) Result {
	// Big-endian integer of the low 8 id bytes, shifted into [0, 2^63).
	x := binary.BigEndian.Uint64(p.TraceID[8:16]) >> 1
	if x < s.threshold {
		return Result{Decision: RecordAndSample, TraceState: p.Parent.TraceState()}
	}
	return Result{Decision: Drop, TraceState: p.Parent.TraceState()}
}

func (s traceIDRatioSampler) Description() string {
	return s.description
}

type parentBasedConfig struct {
	remoteParentSampled    Sampler
	remoteParentNotSampled Sampler
	localParentSampled     Sampler
	localParentNotSampled  Sampler
}

// ParentBasedOption overrides one of the four delegate samplers.
type ParentBasedOption func(*parentBasedConfig)

// WithRemoteParentSampled sets the delegate for sampled remote parents.
func WithRemoteParentSampled(s Sampler) ParentBasedOption {
	return func(c *parentBasedConfig) { c.remoteParentSampled = s }
}

// WithRemoteParentNotSampled sets the delegate for unsampled remote
// parents.
func WithRemoteParentNotSampled(s Sampler) ParentBasedOption {
	return func(c *parentBasedConfig) { c.remoteParentNotSampled = s }
}

// WithLocalParentSampled sets the delegate for sampled local parents.
func WithLocalParentSampled(s Sampler) ParentBasedOption {
	return func(c *parentBasedConfig) { c.localParentSampled = s }
}

// WithLocalParentNotSampled sets the delegate for unsampled local parents.
func WithLocalParentNotSampled(s Sampler) ParentBasedOption {
	return func(c *parentBasedConfig) { c.localParentNotSampled = s }
}

type parentBasedSampler struct {
	root   Sampler
	config parentBasedConfig
}

// ParentBased returns a sampler that follows the parent's decision when
// one exists and asks root for trace roots. The default delegates honor
// the parent's sampled flag; options override them individually.
func ParentBased(root Sampler, opts ...ParentBasedOption) Sampler {
	c := parentBasedConfig{
		remoteParentSampled:    AlwaysOn(),
		remoteParentNotSampled: AlwaysOff(),
		localParentSampled:     AlwaysOn(),
		localParentNotSampled:  AlwaysOff(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return parentBasedSampler{root: root, config: c}
}

func (s parentBasedSampler) ShouldSample(p Parameters) Result {
	if !p.Parent.IsValid() {
		return s.root.ShouldSample(p)
	}
	if p.Parent.IsRemote() {
		if p.Parent.IsSampled() {
			return s.config.remoteParentSampled.ShouldSample(p)
		}
		return s.config.remoteParentNotSampled.ShouldSample(p)
	}
	if p.Parent.IsSampled() {
		return s.config.localParentSampled.ShouldSample(p)
	}
	return s.config.localParentNotSampled.ShouldSample(p)
}

func (s parentBasedSampler) Description() string {
	return fmt.Sprintf(
		"ParentBased{root:%s,remoteParentSampled:%s,remoteParentNotSampled:%s,localParentSampled:%s,localParentNotSampled:%s}",
		s.root.Description(),
		s.config.remoteParentSampled.Description(),
		s.config.remoteParentNotSampled.Description(),
		s.config.localParentSampled.Description(),
		s.config.localParentNotSampled.Description(),
	)
}
