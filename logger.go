package yyy

import (
	"context"
	"log/slog"
	"os"

	"github.com/peerdata/yyy/dataset"
	"github.com/peerdata/yyy/vault"
)

// Logger wraps slog.Logger with collection-specific helpers.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	return &Logger{
		Logger: slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	return &Logger{
		Logger: slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})),
	}
}

// NoopLogger creates a Logger that discards all log output.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithVenue adds a venue field to the logger.
func (l *Logger) WithVenue(venue string) *Logger {
	return &Logger{
		Logger: l.Logger.With("venue", venue),
	}
}

// LogCollect logs the outcome of a collection run.
func (l *Logger) LogCollect(ctx context.Context, venue string, stats vault.Stats, skipped int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "collection failed",
			"venue", venue,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "collection completed",
		"venue", venue,
		"reviewers_agreed", stats.NumReviewersAgreed,
		"reviews", stats.NumRevsAgreedEffective,
		"submissions", stats.NumSubsAgreed,
		"skipped", skipped,
	)
}

// LogArchiveWrite logs an archive append.
func (l *Logger) LogArchiveWrite(ctx context.Context, path string, entries int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "archive write failed",
			"path", path,
			"entries", entries,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "archive write completed",
			"path", path,
			"entries", entries,
		)
	}
}

// LogLoad logs a vault load.
func (l *Logger) LogLoad(ctx context.Context, dir string, venues int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "vault load failed",
			"dir", dir,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "vault loaded",
			"dir", dir,
			"venues", venues,
		)
	}
}

// LogMerge logs the collisions of a venue merge. Clean merges log at debug.
func (l *Logger) LogMerge(ctx context.Context, venue string, report dataset.MergeReport) {
	if report.Empty() {
		l.DebugContext(ctx, "merge completed", "venue", venue)
		return
	}
	l.WarnContext(ctx, "merge kept left side on collisions",
		"venue", venue,
		"conflicting_submissions", len(report.ConflictingSubmissions),
		"overlapping_submissions", len(report.OverlappingSubmissions),
		"overlapping_reviews", len(report.OverlappingReviews),
	)
}

// LogSkip logs a dropped row at debug level; the collector itself warns
// with the row details.
func (l *Logger) LogSkip(ctx context.Context, reason string) {
	l.DebugContext(ctx, "row skipped", "reason", reason)
}
