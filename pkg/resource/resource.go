// Package resource describes the process producing telemetry as an immutable
// set of attributes, attached to every span snapshot a provider emits.
package resource

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/spanstream/spanstream-go/pkg/attribute"
)

// Well-known resource attribute keys.
const (
	ServiceNameKey       = "service.name"
	ServiceInstanceIDKey = "service.instance.id"
	SDKNameKey           = "telemetry.sdk.name"
	SDKLanguageKey       = "telemetry.sdk.language"
	SDKVersionKey        = "telemetry.sdk.version"
)

const (
	sdkName     = "spanstream"
	sdkLanguage = "go"
	sdkVersion  = "0.1.0"

	defaultServiceName = "unknown_service"
)

// Resource is an immutable attribute set. The zero value and nil are both
// the empty resource.
type Resource struct {
	attrs []attribute.KeyValue
}

// New builds a resource from the given attributes. Invalid pairs are
// discarded, duplicate keys keep the last value, and the result is sorted
// by key.
func New(attrs ...attribute.KeyValue) *Resource {
	byKey := make(map[attribute.Key]attribute.Value, len(attrs))
	for _, kv := range attrs {
		if !kv.Valid() {
			continue
		}
		byKey[kv.Key] = kv.Value
	}
	out := make([]attribute.KeyValue, 0, len(byKey))
	for k, v := range byKey {
		out = append(out, attribute.KeyValue{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return &Resource{attrs: out}
}

// Empty returns a resource with no attributes.
func Empty() *Resource {
	return &Resource{}
}

// Default returns the fallback resource used when the caller supplies none:
// an unknown service name, the SDK identity, and a fresh random instance id
// for this process.
func Default() *Resource {
	return New(
		attribute.String(ServiceNameKey, defaultServiceName),
		attribute.String(ServiceInstanceIDKey, uuid.NewString()),
		attribute.String(SDKNameKey, sdkName),
		attribute.String(SDKLanguageKey, sdkLanguage),
		attribute.String(SDKVersionKey, sdkVersion),
	)
}

// Merge combines two resources. Attributes from b win over a on key
// conflicts. Either argument may be nil.
func Merge(a, b *Resource) *Resource {
	combined := make([]attribute.KeyValue, 0, a.Len()+b.Len())
	combined = append(combined, a.Attributes()...)
	combined = append(combined, b.Attributes()...)
	return New(combined...)
}

// Attributes returns a copy of the attribute set, sorted by key.
func (r *Resource) Attributes() []attribute.KeyValue {
	if r == nil || len(r.attrs) == 0 {
		return nil
	}
	cp := make([]attribute.KeyValue, len(r.attrs))
	copy(cp, r.attrs)
	return cp
}

// Len returns the number of attributes.
func (r *Resource) Len() int {
	if r == nil {
		return 0
	}
	return len(r.attrs)
}

// Value looks up a key, reporting whether it is present.
func (r *Resource) Value(key attribute.Key) (attribute.Value, bool) {
	if r == nil {
		return attribute.Value{}, false
	}
	i := sort.Search(len(r.attrs), func(i int) bool { return r.attrs[i].Key >= key })
	if i < len(r.attrs) && r.attrs[i].Key == key {
		return r.attrs[i].Value, true
	}
	return attribute.Value{}, false
}

// Equal reports whether two resources carry the same attributes.
func (r *Resource) Equal(o *Resource) bool {
	if r.Len() != o.Len() {
		return false
	}
	for i := range r.attrs {
		if r.attrs[i].Key != o.attrs[i].Key || !r.attrs[i].Value.Equal(o.attrs[i].Value) {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the resource as its attribute list.
func (r *Resource) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Attributes())
}

// String renders the attribute set as a comma-separated k=v list.
func (r *Resource) String() string {
	if r == nil {
		return ""
	}
	parts := make([]string, 0, len(r.attrs))
	for _, kv := range r.attrs {
		parts = append(parts, kv.String())
	}
	return strings.Join(parts, ",")
}
