package dataset

import (
	"bytes"
	"maps"
	"slices"

	"github.com/peerdata/yyy/codec"
)

// Content is an open mapping of platform-defined fields.
type Content map[string]any

// Clone returns a deep copy. Nested maps and slices produced by JSON decoding
// are copied; other values are shared.
func (c Content) Clone() Content {
	if c == nil {
		return nil
	}
	out := make(Content, len(c))
	for k, v := range c {
		out[k] = cloneValue(v)
	}
	return out
}

// Keys returns the field names in sorted order.
func (c Content) Keys() []string {
	return slices.Sorted(maps.Keys(c))
}

// Equal compares the canonical JSON encodings of c and o, so 1 and 1.0 are
// equal and nil equals an empty mapping.
func (c Content) Equal(o Content) bool {
	if len(c) == 0 && len(o) == 0 {
		return true
	}
	a, errA := codec.Canonical(c)
	b, errB := codec.Canonical(o)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(a, b)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, vv := range t {
			out[k] = cloneValue(vv)
		}
		return out
	case Content:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i, vv := range t {
			out[i] = cloneValue(vv)
		}
		return out
	case []string:
		return slices.Clone(t)
	default:
		return v
	}
}

// CloneDesc deep-copies a description mapping.
func CloneDesc(desc map[string]any) map[string]any {
	if desc == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(desc))
	for k, v := range desc {
		out[k] = cloneValue(v)
	}
	return out
}
