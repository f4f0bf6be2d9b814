// Package codec centralizes JSON encoding of vault payloads.
//
// Every JSON document stored in an archive (review data, parameters, stats)
// goes through a Codec. Both built-in codecs emit object keys in sorted order,
// so encoding the same value twice yields the same bytes.
package codec

import "fmt"

// Codec encodes/decodes values.
// Implementations must be safe for concurrent use.
type Codec interface {
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
	Name() string
}

// ByName returns a built-in codec by its stable name.
func ByName(name string) (Codec, bool) {
	switch name {
	case "json":
		return JSON{}, true
	case "go-json":
		return GoJSON{}, true
	default:
		return nil, false
	}
}

// Canonical encodes v with the default codec. Map keys are sorted, which
// makes the result usable for content comparison.
func Canonical(v any) ([]byte, error) {
	return Default.Marshal(v)
}

// MustMarshal is a helper for tests and fixtures.
func MustMarshal(c Codec, v any) []byte {
	if c == nil {
		c = Default
	}
	b, err := c.Marshal(v)
	if err != nil {
		panic(fmt.Errorf("codec %s marshal failed: %w", c.Name(), err))
	}
	return b
}
