package anon

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Algorithm is a named hash construction.
type Algorithm interface {
	Name() string
	New() hash.Hash
}

type algorithm struct {
	name string
	fn   func() hash.Hash
}

func (a algorithm) Name() string   { return a.name }
func (a algorithm) New() hash.Hash { return a.fn() }

var (
	// SHA512 is the default algorithm.
	SHA512 Algorithm = algorithm{name: "SHA-512", fn: sha512.New}
	// SHA256 trades digest length for speed.
	SHA256 Algorithm = algorithm{name: "SHA-256", fn: sha256.New}
	// SHA3_512 is SHA3-512.
	SHA3_512 Algorithm = algorithm{name: "SHA3-512", fn: sha3.New512} //nolint:revive // mirrors the algorithm name
)

var algorithms = []Algorithm{SHA512, SHA256, SHA3_512}

// AlgorithmByName returns the built-in algorithm with the given name.
// Matching ignores case and dashes, so "sha512" and "SHA-512" are equal.
func AlgorithmByName(name string) (Algorithm, error) {
	norm := func(s string) string { return strings.ReplaceAll(strings.ToUpper(s), "-", "") }
	for _, a := range algorithms {
		if norm(a.Name()) == norm(name) {
			return a, nil
		}
	}
	return nil, fmt.Errorf("anon: unknown algorithm %q", name)
}
