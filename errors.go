package yyy

import (
	"errors"
	"fmt"

	"github.com/peerdata/yyy/archive"
	"github.com/peerdata/yyy/license"
	"github.com/peerdata/yyy/vault"
)

var (
	// ErrAuthFailure is returned when a password does not open an archive entry.
	ErrAuthFailure = errors.New("authentication failed")

	// ErrNotFound is returned when an archive file does not exist.
	ErrNotFound = errors.New("not found")

	// ErrEntryMissing is returned when a requested archive entry does not exist.
	ErrEntryMissing = errors.New("entry missing")

	// ErrConfiguration is returned for missing or malformed required setup.
	ErrConfiguration = errors.New("configuration error")

	// ErrValidation is returned for invalid task configurations.
	ErrValidation = errors.New("validation error")

	// ErrCorrupt is returned for structurally damaged archives.
	ErrCorrupt = errors.New("archive corrupt")
)

// EntryError names the archive entry an error is about.
//
// The underlying error can be accessed via errors.Unwrap.
type EntryError struct {
	Name  string
	cause error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("entry %q: %v", e.Name, e.cause)
}

func (e *EntryError) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var ee *archive.EntryError
	if errors.As(err, &ee) {
		if errors.Is(err, archive.ErrEntryMissing) {
			return &EntryError{Name: ee.Name, cause: fmt.Errorf("%w: %w", ErrEntryMissing, err)}
		}
		if errors.Is(err, archive.ErrAuthFailure) {
			return &EntryError{Name: ee.Name, cause: fmt.Errorf("%w: %w", ErrAuthFailure, err)}
		}
	}

	switch {
	case errors.Is(err, archive.ErrAuthFailure):
		return fmt.Errorf("%w: %w", ErrAuthFailure, err)
	case errors.Is(err, archive.ErrEntryMissing):
		return fmt.Errorf("%w: %w", ErrEntryMissing, err)
	case errors.Is(err, archive.ErrNotFound):
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case errors.Is(err, archive.ErrCorrupt):
		return fmt.Errorf("%w: %w", ErrCorrupt, err)
	case errors.Is(err, vault.ErrConfiguration):
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	case errors.Is(err, license.ErrValidation):
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return err
}
