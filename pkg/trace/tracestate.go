package trace

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

const maxTraceStateMembers = 32

// Key and value grammar from the W3C trace context specification. A key is
// either a simple lowercase identifier or a tenant@system pair; a value is
// printable ASCII without comma or equals and without a trailing space.
var (
	traceStateKeyRe   = regexp.MustCompile(`^([a-z][a-z0-9_\-*/]{0,255}|[a-z0-9][a-z0-9_\-*/]{0,240}@[a-z][a-z0-9_\-*/]{0,13})$`)
	traceStateValueRe = regexp.MustCompile(`^[\x20-\x2b\x2d-\x3c\x3e-\x7e]{0,255}[\x21-\x2b\x2d-\x3c\x3e-\x7e]$`)
)

var (
	errInvalidTraceStateKey    = errors.New("invalid tracestate key")
	errInvalidTraceStateValue  = errors.New("invalid tracestate value")
	errInvalidTraceStateMember = errors.New("invalid tracestate member")
	errDuplicateTraceStateKey  = errors.New("duplicate tracestate key")
	errTraceStateTooLong       = errors.New("tracestate exceeds 32 members")
)

type traceStateMember struct {
	key   string
	value string
}

func parseTraceStateMember(m string) (traceStateMember, error) {
	key, value, found := strings.Cut(m, "=")
	if !found {
		return traceStateMember{}, errInvalidTraceStateMember
	}
	if !traceStateKeyRe.MatchString(key) {
		return traceStateMember{}, errInvalidTraceStateKey
	}
	if !traceStateValueRe.MatchString(value) {
		return traceStateMember{}, errInvalidTraceStateValue
	}
	return traceStateMember{key: key, value: value}, nil
}

// TraceState carries vendor-specific trace context as an ordered list of
// unique key/value members. The zero value is an empty, usable state. All
// mutating operations return a new TraceState and leave the receiver
// untouched.
type TraceState struct {
	list []traceStateMember
}

// ParseTraceState parses the W3C tracestate header value. Empty input
// yields an empty state. Malformed members, duplicate keys and lists over
// 32 members are errors.
func ParseTraceState(ts string) (TraceState, error) {
	if ts == "" {
		return TraceState{}, nil
	}

	var members []traceStateMember
	seen := make(map[string]struct{})
	for _, m := range strings.Split(ts, ",") {
		m = strings.Trim(m, " \t")
		if m == "" {
			continue
		}
		member, err := parseTraceStateMember(m)
		if err != nil {
			return TraceState{}, errors.Wrap(err, "failed to parse tracestate")
		}
		if _, ok := seen[member.key]; ok {
			return TraceState{}, errDuplicateTraceStateKey
		}
		seen[member.key] = struct{}{}
		members = append(members, member)
	}
	if len(members) > maxTraceStateMembers {
		return TraceState{}, errTraceStateTooLong
	}
	return TraceState{list: members}, nil
}

// String serializes the state back to its header form.
func (ts TraceState) String() string {
	if len(ts.list) == 0 {
		return ""
	}
	var b strings.Builder
	for i, m := range ts.list {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(m.key)
		b.WriteByte('=')
		b.WriteString(m.value)
	}
	return b.String()
}

// MarshalJSON encodes the state as its header form.
func (ts TraceState) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.String())
}

// Get returns the value for key, or the empty string when absent.
func (ts TraceState) Get(key string) string {
	for _, m := range ts.list {
		if m.key == key {
			return m.value
		}
	}
	return ""
}

// Len returns the number of members.
func (ts TraceState) Len() int {
	return len(ts.list)
}

// Insert returns a state with key set to value, placed at the front of the
// list. An existing member with the same key is removed first. When the
// insert would exceed 32 members the oldest member is dropped. Invalid
// keys or values are errors and leave the state unchanged.
func (ts TraceState) Insert(key, value string) (TraceState, error) {
	if !traceStateKeyRe.MatchString(key) {
		return ts, errInvalidTraceStateKey
	}
	if !traceStateValueRe.MatchString(value) {
		return ts, errInvalidTraceStateValue
	}

	pruned := ts.Delete(key)
	list := make([]traceStateMember, 0, len(pruned.list)+1)
	list = append(list, traceStateMember{key: key, value: value})
	list = append(list, pruned.list...)
	if len(list) > maxTraceStateMembers {
		list = list[:maxTraceStateMembers]
	}
	return TraceState{list: list}, nil
}

// Delete returns a state without the member for key.
func (ts TraceState) Delete(key string) TraceState {
	list := make([]traceStateMember, 0, len(ts.list))
	for _, m := range ts.list {
		if m.key != key {
			list = append(list, m)
		}
	}
	return TraceState{list: list}
}
