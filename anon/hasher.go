package anon

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const (
	// DefaultRepetitions is the number of hash applications per identifier.
	DefaultRepetitions = 10000
	// DefaultSaltLength is the length of salts drawn by RandomSalt.
	DefaultSaltLength = 32

	saltAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Anonymizer maps an identifier to its stored, de-identified form.
type Anonymizer interface {
	Hash(id string) string
	// String describes the configuration for run parameters.
	String() string
}

// Hasher is a salted, iterated one-way transform.
//
// Hash computes alg(salt || id), hex encodes it, then re-hashes the hex string
// Repetitions-1 more times. A Hasher holds no per-run cache: the same input
// always yields the same output for a fixed configuration.
type Hasher struct {
	Algorithm   Algorithm
	Salt        []byte
	Repetitions int
}

// New returns a Hasher. A nil algorithm selects SHA512; repetitions below 1
// are treated as 1.
func New(alg Algorithm, salt []byte, repetitions int) *Hasher {
	if alg == nil {
		alg = SHA512
	}
	if repetitions < 1 {
		repetitions = 1
	}
	return &Hasher{Algorithm: alg, Salt: salt, Repetitions: repetitions}
}

// NewRandom returns a SHA-512 Hasher with DefaultRepetitions and a fresh
// random salt.
func NewRandom() (*Hasher, error) {
	salt, err := RandomSalt(DefaultSaltLength)
	if err != nil {
		return nil, err
	}
	return New(SHA512, salt, DefaultRepetitions), nil
}

// Hash returns the hex digest of id.
func (h *Hasher) Hash(id string) string {
	alg := h.Algorithm
	if alg == nil {
		alg = SHA512
	}
	reps := max(h.Repetitions, 1)

	d := alg.New()
	d.Write(h.Salt)
	d.Write([]byte(id))
	sum := d.Sum(nil)

	buf := make([]byte, hex.EncodedLen(len(sum)))
	hex.Encode(buf, sum)
	for range reps - 1 {
		d.Reset()
		d.Write(buf)
		sum = d.Sum(sum[:0])
		hex.Encode(buf, sum)
	}
	return string(buf)
}

func (h *Hasher) String() string { return h.Descriptor().String() }

// Descriptor returns the reproducibility descriptor. It carries a salt
// fingerprint, never the salt itself.
func (h *Hasher) Descriptor() Descriptor {
	alg := h.Algorithm
	if alg == nil {
		alg = SHA512
	}
	return Descriptor{
		Algorithm:       alg.Name(),
		Repetitions:     max(h.Repetitions, 1),
		SaltFingerprint: Fingerprint(h.Salt),
	}
}

// Wipe overwrites the salt in memory.
func (h *Hasher) Wipe() {
	clear(h.Salt)
	h.Salt = nil
}

// RandomSalt returns n characters drawn uniformly from [A-Z0-9].
func RandomSalt(n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("anon: salt length must be positive, got %d", n)
	}
	out := make([]byte, n)
	// Rejection sampling keeps the draw uniform: 252 = 7 * 36.
	var b [1]byte
	for i := 0; i < n; {
		if _, err := rand.Read(b[:]); err != nil {
			return nil, fmt.Errorf("anon: draw salt: %w", err)
		}
		if b[0] >= 252 {
			continue
		}
		out[i] = saltAlphabet[int(b[0])%len(saltAlphabet)]
		i++
	}
	return out, nil
}

type identity struct{}

func (identity) Hash(id string) string { return id }
func (identity) String() string        { return "IDENTITY" }

// Identity stores identifiers unchanged. Use it only for data that is
// already de-identified.
var Identity Anonymizer = identity{}
