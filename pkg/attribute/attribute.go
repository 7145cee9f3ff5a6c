// Package attribute implements the typed key/value pairs attached to spans,
// events, links and resources.
package attribute

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind describes the type of a Value.
type Kind int

const (
	KindInvalid Kind = iota
	KindBool
	KindInt64
	KindFloat64
	KindString
	KindBoolSlice
	KindInt64Slice
	KindFloat64Slice
	KindStringSlice
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt64:
		return "int64"
	case KindFloat64:
		return "float64"
	case KindString:
		return "string"
	case KindBoolSlice:
		return "bool_slice"
	case KindInt64Slice:
		return "int64_slice"
	case KindFloat64Slice:
		return "float64_slice"
	case KindStringSlice:
		return "string_slice"
	}
	return "invalid"
}

// Key is an attribute name.
type Key string

// KeyValue is a single attribute.
type KeyValue struct {
	Key   Key   `json:"key"`
	Value Value `json:"value"`
}

// Valid reports whether the pair can be stored on a span. An empty key or an
// invalid value never is.
func (kv KeyValue) Valid() bool {
	return kv.Key != "" && kv.Value.Kind() != KindInvalid
}

// Value holds one typed attribute value. The zero Value is invalid.
type Value struct {
	kind  Kind
	num   uint64
	str   string
	slice any
}

func Bool(key string, v bool) KeyValue {
	return KeyValue{Key: Key(key), Value: BoolValue(v)}
}

func Int(key string, v int) KeyValue {
	return Int64(key, int64(v))
}

func Int64(key string, v int64) KeyValue {
	return KeyValue{Key: Key(key), Value: Int64Value(v)}
}

func Float64(key string, v float64) KeyValue {
	return KeyValue{Key: Key(key), Value: Float64Value(v)}
}

func String(key, v string) KeyValue {
	return KeyValue{Key: Key(key), Value: StringValue(v)}
}

func BoolSlice(key string, v []bool) KeyValue {
	return KeyValue{Key: Key(key), Value: BoolSliceValue(v)}
}

func Int64Slice(key string, v []int64) KeyValue {
	return KeyValue{Key: Key(key), Value: Int64SliceValue(v)}
}

func Float64Slice(key string, v []float64) KeyValue {
	return KeyValue{Key: Key(key), Value: Float64SliceValue(v)}
}

func StringSlice(key string, v []string) KeyValue {
	return KeyValue{Key: Key(key), Value: StringSliceValue(v)}
}

func BoolValue(v bool) Value {
	var n uint64
	if v {
		n = 1
	}
	return Value{kind: KindBool, num: n}
}

func Int64Value(v int64) Value {
	return Value{kind: KindInt64, num: uint64(v)}
}

func Float64Value(v float64) Value {
	return Value{kind: KindFloat64, num: math.Float64bits(v)}
}

func StringValue(v string) Value {
	return Value{kind: KindString, str: v}
}

// Slice constructors copy their input so later mutation of the caller's
// slice cannot alter a stored attribute.

func BoolSliceValue(v []bool) Value {
	cp := make([]bool, len(v))
	copy(cp, v)
	return Value{kind: KindBoolSlice, slice: cp}
}

func Int64SliceValue(v []int64) Value {
	cp := make([]int64, len(v))
	copy(cp, v)
	return Value{kind: KindInt64Slice, slice: cp}
}

func Float64SliceValue(v []float64) Value {
	cp := make([]float64, len(v))
	copy(cp, v)
	return Value{kind: KindFloat64Slice, slice: cp}
}

func StringSliceValue(v []string) Value {
	cp := make([]string, len(v))
	copy(cp, v)
	return Value{kind: KindStringSlice, slice: cp}
}

// Kind returns the stored type.
func (v Value) Kind() Kind { return v.kind }

func (v Value) AsBool() bool { return v.num != 0 }

func (v Value) AsInt64() int64 { return int64(v.num) }

func (v Value) AsFloat64() float64 { return math.Float64frombits(v.num) }

func (v Value) AsString() string { return v.str }

func (v Value) AsBoolSlice() []bool {
	s, _ := v.slice.([]bool)
	return s
}

func (v Value) AsInt64Slice() []int64 {
	s, _ := v.slice.([]int64)
	return s
}

func (v Value) AsFloat64Slice() []float64 {
	s, _ := v.slice.([]float64)
	return s
}

func (v Value) AsStringSlice() []string {
	s, _ := v.slice.([]string)
	return s
}

// AsInterface returns the value as a plain Go value, for JSON encoders and
// log sinks that take any.
func (v Value) AsInterface() any {
	switch v.kind {
	case KindBool:
		return v.AsBool()
	case KindInt64:
		return v.AsInt64()
	case KindFloat64:
		return v.AsFloat64()
	case KindString:
		return v.str
	case KindBoolSlice, KindInt64Slice, KindFloat64Slice, KindStringSlice:
		return v.slice
	}
	return nil
}

// MarshalJSON encodes the value with its kind so decoders do not lose the
// int64/float64 distinction.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type  string `json:"type"`
		Value any    `json:"value"`
	}{Type: v.kind.String(), Value: v.AsInterface()})
}

// Emit renders the value for human-readable output.
func (v Value) Emit() string {
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.AsBool())
	case KindInt64:
		return strconv.FormatInt(v.AsInt64(), 10)
	case KindFloat64:
		return strconv.FormatFloat(v.AsFloat64(), 'g', -1, 64)
	case KindString:
		return v.str
	case KindBoolSlice, KindInt64Slice, KindFloat64Slice, KindStringSlice:
		return fmt.Sprint(v.slice)
	}
	return "<invalid>"
}

// Equal reports whether two values hold the same kind and contents.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBool, KindInt64, KindFloat64:
		return v.num == o.num
	case KindString:
		return v.str == o.str
	case KindBoolSlice:
		return boolSliceEqual(v.AsBoolSlice(), o.AsBoolSlice())
	case KindInt64Slice:
		return int64SliceEqual(v.AsInt64Slice(), o.AsInt64Slice())
	case KindFloat64Slice:
		return float64SliceEqual(v.AsFloat64Slice(), o.AsFloat64Slice())
	case KindStringSlice:
		return stringSliceEqual(v.AsStringSlice(), o.AsStringSlice())
	}
	return true
}

func boolSliceEqual(a, b []bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func int64SliceEqual(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func float64SliceEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// String renders the pair as key=value.
func (kv KeyValue) String() string {
	var sb strings.Builder
	sb.Grow(len(kv.Key) + 1 + len(kv.Value.Emit()))
	sb.WriteString(string(kv.Key))
	sb.WriteString("=")
	sb.WriteString(kv.Value.Emit())
	return sb.String()
}
