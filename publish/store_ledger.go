package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"slices"

	"github.com/peerdata/yyy/blobstore"
	"github.com/peerdata/yyy/codec"
)

// StoreLedger keeps version records as JSON blobs next to the archives,
// under <base>/versions/. The existence check and the put are separate
// calls, so it is only safe with a single publisher per base.
type StoreLedger struct {
	store blobstore.BlobStore
	codec codec.Codec
}

var _ Ledger = (*StoreLedger)(nil)

// NewStoreLedger creates a ledger in store.
func NewStoreLedger(store blobstore.BlobStore) *StoreLedger {
	return &StoreLedger{store: store, codec: codec.Default}
}

func versionsDir(base string) string { return path.Join(base, "versions") + "/" }

func recordName(base string, n uint64) string {
	return versionsDir(base) + fmt.Sprintf("%06d.json", n)
}

// Latest implements Ledger.
func (l *StoreLedger) Latest(ctx context.Context, base string) (Version, bool, error) {
	names, err := l.store.List(ctx, versionsDir(base))
	if err != nil {
		return Version{}, false, err
	}
	if len(names) == 0 {
		return Version{}, false, nil
	}

	// Zero-padded names sort by version.
	var buf bytes.Buffer
	if _, err := blobstore.Download(ctx, l.store, slices.Max(names), &buf); err != nil {
		return Version{}, false, err
	}
	var v Version
	if err := l.codec.Unmarshal(buf.Bytes(), &v); err != nil {
		return Version{}, false, fmt.Errorf("version record %s: %w", slices.Max(names), err)
	}
	return v, true, nil
}

// Commit implements Ledger.
func (l *StoreLedger) Commit(ctx context.Context, base string, v Version) error {
	name := recordName(base, v.Number)
	b, err := l.store.Open(ctx, name)
	switch {
	case err == nil:
		_ = b.Close()
		return ErrConcurrentModification
	case !errors.Is(err, blobstore.ErrNotFound):
		return err
	}

	data, err := l.codec.Marshal(v)
	if err != nil {
		return err
	}
	return l.store.Put(ctx, name, bytes.NewReader(data), int64(len(data)))
}
