package yyy

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/peerdata/yyy/collect"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// metrics/prom package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordCollect is called after each collection run. reviews is the
	// number of stored reviews.
	RecordCollect(venue string, reviews int, duration time.Duration, err error)

	// RecordFetch is called after each data source call.
	RecordFetch(op string, duration time.Duration, err error)

	// RecordArchiveWrite is called after each archive append.
	RecordArchiveWrite(entries int, duration time.Duration, err error)

	// RecordArchiveRead is called after each vault load.
	RecordArchiveRead(venues int, duration time.Duration, err error)

	// RecordMerge is called after each merge.
	RecordMerge(venues, collisions int, duration time.Duration)

	// RecordSkip is called for every row dropped during collection.
	RecordSkip(reason string)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordCollect(string, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordFetch(string, time.Duration, error)        {}
func (NoopMetricsCollector) RecordArchiveWrite(int, time.Duration, error)    {}
func (NoopMetricsCollector) RecordArchiveRead(int, time.Duration, error)     {}
func (NoopMetricsCollector) RecordMerge(int, int, time.Duration)             {}
func (NoopMetricsCollector) RecordSkip(string)                               {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	CollectCount       atomic.Int64
	CollectErrors      atomic.Int64
	ReviewsStored      atomic.Int64
	FetchCount         atomic.Int64
	FetchErrors        atomic.Int64
	FetchTotalNanos    atomic.Int64
	ArchiveWrites      atomic.Int64
	ArchiveWriteErrors atomic.Int64
	EntriesWritten     atomic.Int64
	ArchiveReads       atomic.Int64
	ArchiveReadErrors  atomic.Int64
	MergeCount         atomic.Int64
	MergeCollisions    atomic.Int64
	SkipCount          atomic.Int64

	mu    sync.Mutex
	skips map[string]int64
}

// RecordCollect implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCollect(_ string, reviews int, _ time.Duration, err error) {
	b.CollectCount.Add(1)
	if err != nil {
		b.CollectErrors.Add(1)
		return
	}
	b.ReviewsStored.Add(int64(reviews))
}

// RecordFetch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFetch(_ string, duration time.Duration, err error) {
	b.FetchCount.Add(1)
	b.FetchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FetchErrors.Add(1)
	}
}

// RecordArchiveWrite implements MetricsCollector.
func (b *BasicMetricsCollector) RecordArchiveWrite(entries int, _ time.Duration, err error) {
	b.ArchiveWrites.Add(1)
	if err != nil {
		b.ArchiveWriteErrors.Add(1)
		return
	}
	b.EntriesWritten.Add(int64(entries))
}

// RecordArchiveRead implements MetricsCollector.
func (b *BasicMetricsCollector) RecordArchiveRead(_ int, _ time.Duration, err error) {
	b.ArchiveReads.Add(1)
	if err != nil {
		b.ArchiveReadErrors.Add(1)
	}
}

// RecordMerge implements MetricsCollector.
func (b *BasicMetricsCollector) RecordMerge(_, collisions int, _ time.Duration) {
	b.MergeCount.Add(1)
	b.MergeCollisions.Add(int64(collisions))
}

// RecordSkip implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSkip(reason string) {
	b.SkipCount.Add(1)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.skips == nil {
		b.skips = make(map[string]int64)
	}
	b.skips[reason]++
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	b.mu.Lock()
	skips := make(map[string]int64, len(b.skips))
	for k, v := range b.skips {
		skips[k] = v
	}
	b.mu.Unlock()

	return BasicMetricsStats{
		CollectCount:       b.CollectCount.Load(),
		CollectErrors:      b.CollectErrors.Load(),
		ReviewsStored:      b.ReviewsStored.Load(),
		FetchCount:         b.FetchCount.Load(),
		FetchErrors:        b.FetchErrors.Load(),
		FetchAvgNanos:      b.getAvgFetchNanos(),
		ArchiveWrites:      b.ArchiveWrites.Load(),
		ArchiveWriteErrors: b.ArchiveWriteErrors.Load(),
		EntriesWritten:     b.EntriesWritten.Load(),
		ArchiveReads:       b.ArchiveReads.Load(),
		ArchiveReadErrors:  b.ArchiveReadErrors.Load(),
		MergeCount:         b.MergeCount.Load(),
		MergeCollisions:    b.MergeCollisions.Load(),
		SkipCount:          b.SkipCount.Load(),
		SkipsByReason:      skips,
	}
}

func (b *BasicMetricsCollector) getAvgFetchNanos() int64 {
	count := b.FetchCount.Load()
	if count == 0 {
		return 0
	}
	return b.FetchTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	CollectCount       int64
	CollectErrors      int64
	ReviewsStored      int64
	FetchCount         int64
	FetchErrors        int64
	FetchAvgNanos      int64
	ArchiveWrites      int64
	ArchiveWriteErrors int64
	EntriesWritten     int64
	ArchiveReads       int64
	ArchiveReadErrors  int64
	MergeCount         int64
	MergeCollisions    int64
	SkipCount          int64
	SkipsByReason      map[string]int64
}

// collectObserver adapts a MetricsCollector (and the logger) to the
// collector's observer interface.
type collectObserver struct {
	m      MetricsCollector
	logger *Logger
}

var _ collect.MetricsObserver = collectObserver{}

func (o collectObserver) OnFetch(op string, d time.Duration, err error) { o.m.RecordFetch(op, d, err) }

func (o collectObserver) OnSkip(reason string) {
	o.m.RecordSkip(reason)
	o.logger.LogSkip(context.Background(), reason)
}

func (o collectObserver) OnStore(entries int, d time.Duration, err error) {
	o.m.RecordArchiveWrite(entries, d, err)
}
