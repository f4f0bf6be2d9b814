package yyy

import (
	"log/slog"
	"slices"

	"github.com/peerdata/yyy/archive"
	"github.com/peerdata/yyy/codec"
)

type options struct {
	codec            codec.Codec
	metricsCollector MetricsCollector
	logger           *Logger
	archiveOptions   []func(*archive.Options)
}

// Option configures the package-level operations.
type Option func(*options)

// WithCodec configures the codec used by Export.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithMetricsCollector sets a metrics collector.
//
// If nil is passed, metrics are discarded.
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger sets a logger.
//
// If nil is passed, logs are discarded.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithLogLevel logs as text to stderr at level.
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithArchiveOptions configures every archive opened by an operation, e.g.
// the compression or the KDF work factor of new entries.
func WithArchiveOptions(optFns ...func(*archive.Options)) Option {
	return func(o *options) {
		o.archiveOptions = append(o.archiveOptions, optFns...)
	}
}

func applyOptions(opts []Option) options {
	o := options{
		codec:            codec.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// archiveOpts returns the archive options with the logger prepended, so
// explicit options can still override it.
func (o options) archiveOpts() []func(*archive.Options) {
	return slices.Concat([]func(*archive.Options){archive.WithLogger(o.logger.Logger)}, o.archiveOptions)
}
