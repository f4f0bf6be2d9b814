package archive

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the archive file does not exist.
	ErrNotFound = errors.New("archive not found")

	// ErrAuthFailure is returned when a password does not open an entry.
	// It is never retried: retrying needs a human to re-enter the password.
	ErrAuthFailure = errors.New("archive authentication failed")

	// ErrEntryMissing is returned when a requested entry is absent.
	ErrEntryMissing = errors.New("archive entry missing")

	// ErrCorrupt is returned when the file structure or a checksum is invalid.
	ErrCorrupt = errors.New("archive corrupt")

	// ErrInvalidArgument is returned for malformed Write/Read arguments.
	ErrInvalidArgument = errors.New("invalid argument")
)

// EntryError annotates an error with the entry it concerns.
//
// The underlying sentinel can be matched with errors.Is.
type EntryError struct {
	Name string
	Err  error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("entry %q: %v", e.Name, e.Err)
}

func (e *EntryError) Unwrap() error { return e.Err }

// CorruptError reports structural damage at a file offset.
type CorruptError struct {
	Offset int64
	Reason string
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("archive corrupt at offset %d: %s", e.Offset, e.Reason)
}

func (e *CorruptError) Unwrap() error { return ErrCorrupt }
