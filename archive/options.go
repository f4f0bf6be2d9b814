package archive

import (
	"log/slog"
	"os"

	"github.com/peerdata/yyy/internal/fs"
)

// Options configures an Archive.
type Options struct {
	// Compression is applied to new entries before encryption.
	// Payloads that do not shrink below 90% are stored raw.
	Compression Compression

	// CompressionLevel sets the zstd level (1-22) for CompressionZSTD.
	CompressionLevel int

	// KDFIterations is the PBKDF2 iteration count for new encrypted entries.
	// It is clamped to [MinKDFIterations, MaxKDFIterations]. Existing entries keep
	// the count recorded in their header.
	KDFIterations int

	// Perm is the permission used when the file is created.
	Perm os.FileMode

	// FileSystem is used for all file access. Defaults to the local disk.
	FileSystem fs.FileSystem

	// Logger receives warnings about torn records. Nil disables logging.
	Logger *slog.Logger
}

// DefaultOptions returns default archive options.
var DefaultOptions = Options{
	Compression:      CompressionZSTD,
	CompressionLevel: 3,
	KDFIterations:    200_000,
	Perm:             0o600,
}

// WithCompression sets the compression used for new entries.
func WithCompression(c Compression) func(*Options) {
	return func(o *Options) { o.Compression = c }
}

// WithKDFIterations sets the PBKDF2 iteration count for new entries.
func WithKDFIterations(n int) func(*Options) {
	return func(o *Options) { o.KDFIterations = n }
}

// WithFileSystem sets the file system implementation.
func WithFileSystem(fsys fs.FileSystem) func(*Options) {
	return func(o *Options) { o.FileSystem = fsys }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) func(*Options) {
	return func(o *Options) { o.Logger = l }
}

func applyOptions(optFns []func(*Options)) Options {
	o := DefaultOptions
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.FileSystem == nil {
		o.FileSystem = fs.Default
	}
	o.KDFIterations = min(max(o.KDFIterations, MinKDFIterations), MaxKDFIterations)
	if o.Perm == 0 {
		o.Perm = DefaultOptions.Perm
	}
	return o
}
