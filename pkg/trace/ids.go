// Package trace defines the span data model shared across the SDK:
// trace and span identifiers, the immutable SpanContext, the span event,
// link and status types, the SpanData snapshot handed to processors and
// exporters, the writable Span interface, and context carriage helpers.
package trace

import (
	"encoding/hex"
	"encoding/json"

	"github.com/pkg/errors"
)

var (
	errInvalidTraceIDLength = errors.New("hex encoded trace id must be 32 characters")
	errNilTraceID           = errors.New("trace id can't be all zero")
	errInvalidSpanIDLength  = errors.New("hex encoded span id must be 16 characters")
	errNilSpanID            = errors.New("span id can't be all zero")
	errInvalidHexID         = errors.New("trace and span ids must be lowercase hex")
)

// TraceID identifies a trace. The all-zero value is invalid and is never
// assigned to a started span.
type TraceID [16]byte

var nilTraceID TraceID

// IsValid reports whether the id is non-zero.
func (t TraceID) IsValid() bool {
	return t != nilTraceID
}

// String returns the id as 32 lowercase hex characters.
func (t TraceID) String() string {
	return hex.EncodeToString(t[:])
}

// MarshalJSON encodes the id as its hex form.
func (t TraceID) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// SpanID identifies a span within a trace. The all-zero value is invalid.
type SpanID [8]byte

var nilSpanID SpanID

// IsValid reports whether the id is non-zero.
func (s SpanID) IsValid() bool {
	return s != nilSpanID
}

// String returns the id as 16 lowercase hex characters.
func (s SpanID) String() string {
	return hex.EncodeToString(s[:])
}

// MarshalJSON encodes the id as its hex form.
func (s SpanID) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// TraceIDFromHex parses a 32-character lowercase hex string into a TraceID.
// The id must be non-zero.
func TraceIDFromHex(h string) (TraceID, error) {
	t := TraceID{}
	if len(h) != 32 {
		return t, errInvalidTraceIDLength
	}
	if err := decodeHex(h, t[:]); err != nil {
		return t, err
	}
	if !t.IsValid() {
		return t, errNilTraceID
	}
	return t, nil
}

// SpanIDFromHex parses a 16-character lowercase hex string into a SpanID.
// The id must be non-zero.
func SpanIDFromHex(h string) (SpanID, error) {
	s := SpanID{}
	if len(h) != 16 {
		return s, errInvalidSpanIDLength
	}
	if err := decodeHex(h, s[:]); err != nil {
		return s, err
	}
	if !s.IsValid() {
		return s, errNilSpanID
	}
	return s, nil
}

func decodeHex(h string, b []byte) error {
	for _, r := range h {
		switch {
		case 'a' <= r && r <= 'f':
			continue
		case '0' <= r && r <= '9':
			continue
		default:
			return errInvalidHexID
		}
	}
	decoded, err := hex.DecodeString(h)
	if err != nil {
		return err
	}
	copy(b, decoded)
	return nil
}
