package publish

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrConcurrentModification is returned when the version was committed
	// by someone else first.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrNoVersion is returned when nothing was published yet.
	ErrNoVersion = errors.New("no published version")
)

// Version is one published archive.
type Version struct {
	Number uint64 `json:"number"`
	// Name is the blob name in the store.
	Name   string    `json:"name"`
	SHA256 string    `json:"sha256"`
	Size   int64     `json:"size"`
	Time   time.Time `json:"time"`
}

// Ledger records published versions per base.
type Ledger interface {
	// Latest returns the highest committed version; ok is false when
	// nothing was committed yet.
	Latest(ctx context.Context, base string) (v Version, ok bool, err error)

	// Commit records v. It fails with ErrConcurrentModification when
	// v.Number is already taken.
	Commit(ctx context.Context, base string, v Version) error
}

// MemoryLedger is an in-process Ledger.
type MemoryLedger struct {
	mu       sync.Mutex
	versions map[string]map[uint64]Version
}

// NewMemoryLedger creates an empty ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{versions: make(map[string]map[uint64]Version)}
}

// Latest implements Ledger.
func (l *MemoryLedger) Latest(_ context.Context, base string) (Version, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var (
		latest Version
		ok     bool
	)
	for n, v := range l.versions[base] {
		if !ok || n > latest.Number {
			latest, ok = v, true
		}
	}
	return latest, ok, nil
}

// Commit implements Ledger.
func (l *MemoryLedger) Commit(_ context.Context, base string, v Version) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	vs := l.versions[base]
	if vs == nil {
		vs = make(map[uint64]Version)
		l.versions[base] = vs
	}
	if _, exists := vs[v.Number]; exists {
		return ErrConcurrentModification
	}
	vs[v.Number] = v
	return nil
}
