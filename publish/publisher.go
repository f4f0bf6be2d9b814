package publish

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/peerdata/yyy/archive"
	"github.com/peerdata/yyy/blobstore"
)

// Publisher uploads archives under base in a store and versions them in a
// ledger.
type Publisher struct {
	store  blobstore.BlobStore
	ledger Ledger
	base   string
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the logger. nil means silent.
func WithLogger(l *slog.Logger) Option {
	return func(p *Publisher) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(p *Publisher) { p.now = now } }

// New creates a Publisher.
func New(store blobstore.BlobStore, ledger Ledger, base string, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		ledger: ledger,
		base:   base,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// BlobName is the store name of a version: the base, the zero-padded
// version and a digest prefix.
func BlobName(base string, number uint64, sha string) string {
	return path.Join(base, fmt.Sprintf("v%06d-%s.vault", number, sha[:min(12, len(sha))]))
}

// Publish uploads the archive at archivePath as the next version. The
// archive must scan cleanly; a torn tail is refused.
func (p *Publisher) Publish(ctx context.Context, archivePath string) (Version, error) {
	if err := verify(archivePath); err != nil {
		return Version{}, err
	}

	f, err := os.Open(archivePath)
	if err != nil {
		return Version{}, err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return Version{}, err
	}
	sum := hex.EncodeToString(h.Sum(nil))

	latest, ok, err := p.ledger.Latest(ctx, p.base)
	if err != nil {
		return Version{}, err
	}
	if ok && latest.SHA256 == sum {
		p.logger.InfoContext(ctx, "archive unchanged, not publishing", "version", latest.Number)
		return latest, nil
	}

	v := Version{Number: latest.Number + 1, SHA256: sum, Size: size, Time: p.now().UTC()}
	v.Name = BlobName(p.base, v.Number, sum)

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return Version{}, err
	}
	if err := p.store.Put(ctx, v.Name, f, size); err != nil {
		return Version{}, fmt.Errorf("upload %s: %w", v.Name, err)
	}

	if err := p.ledger.Commit(ctx, p.base, v); err != nil {
		if errors.Is(err, ErrConcurrentModification) {
			if derr := p.store.Delete(ctx, v.Name); derr != nil {
				p.logger.WarnContext(ctx, "failed to remove orphaned upload", "blob", v.Name, "error", derr)
			}
		}
		return Version{}, err
	}

	p.logger.InfoContext(ctx, "published archive", "version", v.Number, "blob", v.Name, "bytes", v.Size)
	return v, nil
}

// Latest returns the latest published version.
func (p *Publisher) Latest(ctx context.Context) (Version, error) {
	v, ok, err := p.ledger.Latest(ctx, p.base)
	if err != nil {
		return Version{}, err
	}
	if !ok {
		return Version{}, ErrNoVersion
	}
	return v, nil
}

// Fetch downloads the latest version to dst, verifying its digest. dst is
// replaced only by a complete, verified copy.
func (p *Publisher) Fetch(ctx context.Context, dst string) (Version, error) {
	v, err := p.Latest(ctx)
	if err != nil {
		return Version{}, err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Version{}, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".fetch-*")
	if err != nil {
		return Version{}, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	h := sha256.New()
	n, err := blobstore.Download(ctx, p.store, v.Name, io.MultiWriter(tmp, h))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Version{}, fmt.Errorf("download %s: %w", v.Name, err)
	}
	if got := hex.EncodeToString(h.Sum(nil)); got != v.SHA256 || n != v.Size {
		return Version{}, fmt.Errorf("%w: %s has digest %s, ledger says %s", archive.ErrCorrupt, v.Name, got, v.SHA256)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return Version{}, err
	}
	p.logger.InfoContext(ctx, "fetched archive", "version", v.Number, "path", dst)
	return v, nil
}

func verify(archivePath string) error {
	arc := archive.Open(archivePath)
	if err := arc.Verify(); err != nil {
		return err
	}
	entries, err := arc.Entries()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("%w: %s has no entries", archive.ErrInvalidArgument, archivePath)
	}
	return nil
}
