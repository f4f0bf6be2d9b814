package anon

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

const fingerprintPrefix = "sha256:"

// Descriptor records a Hasher configuration in run parameters:
//
//	ALGO:SHA-512;REPETITIONS:10000;SALT:sha256:0123456789abcdef
type Descriptor struct {
	Algorithm       string
	Repetitions     int
	SaltFingerprint string
}

func (d Descriptor) String() string {
	return fmt.Sprintf("ALGO:%s;REPETITIONS:%d;SALT:%s", d.Algorithm, d.Repetitions, d.SaltFingerprint)
}

// MatchesSalt reports whether salt produced this descriptor's fingerprint.
func (d Descriptor) MatchesSalt(salt []byte) bool {
	return subtle.ConstantTimeCompare([]byte(Fingerprint(salt)), []byte(d.SaltFingerprint)) == 1
}

// Hasher rebuilds the Hasher described by d from the operator's salt.
func (d Descriptor) Hasher(salt []byte) (*Hasher, error) {
	if !d.MatchesSalt(salt) {
		return nil, fmt.Errorf("anon: salt does not match descriptor")
	}
	alg, err := AlgorithmByName(d.Algorithm)
	if err != nil {
		return nil, err
	}
	return New(alg, salt, d.Repetitions), nil
}

// Fingerprint returns "sha256:" and the first 16 hex digits of SHA-256(salt).
func Fingerprint(salt []byte) string {
	sum := sha256.Sum256(salt)
	return fingerprintPrefix + hex.EncodeToString(sum[:8])
}

// ParseDescriptor parses the output of Descriptor.String.
func ParseDescriptor(s string) (Descriptor, error) {
	var d Descriptor
	fields := strings.Split(s, ";")
	if len(fields) != 3 {
		return d, fmt.Errorf("anon: malformed descriptor %q", s)
	}
	for _, f := range fields {
		key, val, ok := strings.Cut(f, ":")
		if !ok {
			return d, fmt.Errorf("anon: malformed descriptor field %q", f)
		}
		switch key {
		case "ALGO":
			d.Algorithm = val
		case "REPETITIONS":
			n, err := strconv.Atoi(val)
			if err != nil || n < 1 {
				return d, fmt.Errorf("anon: invalid repetitions %q", val)
			}
			d.Repetitions = n
		case "SALT":
			d.SaltFingerprint = val
		default:
			return d, fmt.Errorf("anon: unknown descriptor field %q", key)
		}
	}
	if d.Algorithm == "" || d.Repetitions == 0 || d.SaltFingerprint == "" {
		return d, fmt.Errorf("anon: incomplete descriptor %q", s)
	}
	return d, nil
}
