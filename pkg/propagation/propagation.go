// Package propagation moves span identity across process boundaries as
// text key/value pairs, with the W3C trace context headers as the default
// format.
package propagation

import (
	"context"
	"net/http"
)

// TextMapCarrier is the medium a propagator reads and writes, typically
// the headers of a transport request.
type TextMapCarrier interface {
	// Get returns the value for key, or the empty string when absent.
	Get(key string) string

	// Set stores a key/value pair, replacing any previous value.
	Set(key, value string)

	// Keys lists the keys present in the carrier.
	Keys() []string
}

// MapCarrier adapts a plain string map to the TextMapCarrier interface.
type MapCarrier map[string]string

// Get returns the value for key, or the empty string when absent.
func (c MapCarrier) Get(key string) string { return c[key] }

// Set stores a key/value pair, replacing any previous value.
func (c MapCarrier) Set(key, value string) { c[key] = value }

// Keys lists the keys present in the carrier in no particular order.
func (c MapCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// HeaderCarrier adapts http.Header to the TextMapCarrier interface,
// keeping its canonical key folding.
type HeaderCarrier http.Header

// Get returns the first value for the canonical form of key.
func (c HeaderCarrier) Get(key string) string { return http.Header(c).Get(key) }

// Set replaces any values under the canonical form of key.
func (c HeaderCarrier) Set(key, value string) { http.Header(c).Set(key, value) }

// Keys lists the canonical header names present in the carrier.
func (c HeaderCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// TextMapPropagator moves span identity in and out of a carrier.
// Implementations never fail: identity that is absent or malformed is
// simply not carried over.
type TextMapPropagator interface {
	// Inject writes the span identity in ctx into the carrier. An invalid
	// or absent identity writes nothing.
	Inject(ctx context.Context, carrier TextMapCarrier)

	// Extract reads span identity from the carrier into a derived
	// context. A missing or malformed identity returns ctx unchanged.
	Extract(ctx context.Context, carrier TextMapCarrier) context.Context

	// Fields lists the carrier keys Inject may set.
	Fields() []string
}

// Composite combines propagators into one: Inject runs all of them
// against the same carrier, and Extract applies them in order, each
// reading the context produced by the one before it.
func Composite(propagators ...TextMapPropagator) TextMapPropagator {
	return composite(propagators)
}

type composite []TextMapPropagator

func (c composite) Inject(ctx context.Context, carrier TextMapCarrier) {
	for _, p := range c {
		p.Inject(ctx, carrier)
	}
}

func (c composite) Extract(ctx context.Context, carrier TextMapCarrier) context.Context {
	for _, p := range c {
		ctx = p.Extract(ctx, carrier)
	}
	return ctx
}

func (c composite) Fields() []string {
	fields := make([]string, 0, len(c))
	for _, p := range c {
		fields = append(fields, p.Fields()...)
	}
	return fields
}
