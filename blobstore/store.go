package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
)

// ErrNotFound is returned when a blob does not exist.
//
// Implementations return an error that satisfies `errors.Is(err, ErrNotFound)`.
var ErrNotFound = os.ErrNotExist

// BlobStore stores immutable named blobs. Implementations must be safe for
// concurrent use.
type BlobStore interface {
	// Open opens a blob for reading.
	Open(ctx context.Context, name string) (Blob, error)

	// Put writes size bytes from r under name, replacing any previous blob.
	// A blob is visible only once Put returned successfully.
	Put(ctx context.Context, name string, r io.Reader, size int64) error

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the sorted names starting with prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read-only handle to a blob.
type Blob interface {
	ReadAt(ctx context.Context, p []byte, off int64) (int, error)
	io.Closer
	// Size returns the size of the blob in bytes.
	Size() int64
}

// copyChunk is the read size of Copy.
const copyChunk = 1 << 20

// Copy writes the whole blob to w.
func Copy(ctx context.Context, w io.Writer, b Blob) (int64, error) {
	buf := make([]byte, min(copyChunk, max(b.Size(), 1)))
	var written int64
	for written < b.Size() {
		n, err := b.ReadAt(ctx, buf[:min(int64(len(buf)), b.Size()-written)], written)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return written, werr
			}
			written += int64(n)
		}
		if err != nil && err != io.EOF {
			return written, err
		}
		if n == 0 {
			return written, fmt.Errorf("blobstore: short read at %d of %d", written, b.Size())
		}
	}
	return written, nil
}

// Download copies the blob name from s into w.
func Download(ctx context.Context, s BlobStore, name string, w io.Writer) (int64, error) {
	b, err := s.Open(ctx, name)
	if err != nil {
		return 0, err
	}
	defer func() { _ = b.Close() }()
	return Copy(ctx, w, b)
}
