package archive

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// MinKDFIterations is the lowest accepted PBKDF2 iteration count.
	MinKDFIterations = 1000
	// MaxKDFIterations is the highest accepted PBKDF2 iteration count. Records
	// claiming more are treated as corrupt.
	MaxKDFIterations = 10_000_000

	saltSize     = 16
	keySize      = 32 // AES-256
	verifierSize = 4
)

// keyMaterial derives the AES key and the password verifier for one entry.
// The caller must clear the returned key.
func keyMaterial(password, salt []byte, iterations int) ([]byte, [verifierSize]byte) {
	dk := pbkdf2.Key(password, salt, iterations, keySize+verifierSize, sha256.New)
	var verifier [verifierSize]byte
	copy(verifier[:], dk[keySize:])
	key := dk[:keySize:keySize]
	clear(dk[keySize:])
	return key, verifier
}

// sealRecord encrypts rec.payload in place of its plaintext.
func sealRecord(rec *record, password []byte, iterations int) error {
	rec.salt = make([]byte, saltSize)
	if _, err := rand.Read(rec.salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	rec.kdfIterations = uint32(iterations) //nolint:gosec // bounded by options

	key, verifier := keyMaterial(password, rec.salt, iterations)
	defer clear(key)

	gcm, err := newGCM(key)
	if err != nil {
		return err
	}
	rec.nonce = make([]byte, gcm.NonceSize())
	if _, err := rand.Read(rec.nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}

	rec.verifier = verifier
	rec.payload = gcm.Seal(nil, rec.nonce, rec.payload, []byte(rec.name))
	rec.flags |= flagEncrypted
	return nil
}

// checkPassword reports whether password matches the entry's verifier.
// It costs one key derivation.
func checkPassword(rec *record, password []byte) bool {
	if len(password) == 0 {
		return false
	}
	key, verifier := keyMaterial(password, rec.salt, int(rec.kdfIterations))
	clear(key)
	return subtle.ConstantTimeCompare(verifier[:], rec.verifier[:]) == 1
}

// openRecord returns the decrypted (still compressed) payload.
func openRecord(rec *record, password []byte) ([]byte, error) {
	if !rec.encrypted() {
		return rec.payload, nil
	}
	if len(password) == 0 {
		return nil, ErrAuthFailure
	}

	key, verifier := keyMaterial(password, rec.salt, int(rec.kdfIterations))
	defer clear(key)

	if subtle.ConstantTimeCompare(verifier[:], rec.verifier[:]) != 1 {
		return nil, ErrAuthFailure
	}

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(rec.nonce) != gcm.NonceSize() {
		return nil, &CorruptError{Offset: rec.offset, Reason: "invalid nonce size"}
	}
	plain, err := gcm.Open(nil, rec.nonce, rec.payload, []byte(rec.name))
	if err != nil {
		// The verifier is only 32 bits; the GCM tag is authoritative.
		return nil, ErrAuthFailure
	}
	return plain, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return gcm, nil
}
