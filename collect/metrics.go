package collect

import "time"

// Skip reasons reported to MetricsObserver.OnSkip.
const (
	SkipMalformedResponse = "malformed_response"
	SkipUnknownSubmission = "unknown_submission"
	SkipUnsignedReview    = "unsigned_review"
)

// MetricsObserver observes collection runs.
type MetricsObserver interface {
	// OnFetch is called after each Source call.
	OnFetch(op string, duration time.Duration, err error)

	// OnSkip is called for every skipped row.
	OnSkip(reason string)

	// OnStore is called after the archive write.
	OnStore(entries int, duration time.Duration, err error)
}

// NoopMetricsObserver is a no-op implementation of MetricsObserver.
type NoopMetricsObserver struct{}

func (NoopMetricsObserver) OnFetch(string, time.Duration, error) {}
func (NoopMetricsObserver) OnSkip(string)                        {}
func (NoopMetricsObserver) OnStore(int, time.Duration, error)    {}
