package collect

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/peerdata/yyy/anon"
	"github.com/peerdata/yyy/archive"
	"github.com/peerdata/yyy/vault"
)

// ErrConfiguration is returned for missing or malformed required setup.
// It aborts a run before anything is written.
var ErrConfiguration = vault.ErrConfiguration

// DefaultConcurrency bounds concurrent reviewer-id lookups.
const DefaultConcurrency = 4

// Config configures one collection run.
type Config struct {
	// Venue is the platform id of the venue, e.g. "ICLR.cc/2024/Conference".
	Venue string
	// TargetDir receives the archive; it is created when missing.
	TargetDir string
	// ArchiveName defaults to vault.DefaultArchiveName.
	ArchiveName string

	// Anonymizer transforms every stored identifier.
	Anonymizer anon.Anonymizer

	// StoreAgreements also stores the raw consent records (license group).
	StoreAgreements bool
	Passwords       vault.Passwords

	// RequireAttribution keeps only reviewers who also agreed to attribution.
	RequireAttribution bool

	// Concurrency bounds reviewer-id lookups. Defaults to DefaultConcurrency.
	Concurrency int
	// RequestsPerSecond limits reviewer-id lookups. Zero means unlimited.
	RequestsPerSecond float64

	// WipeSecrets clears passwords and the anonymizer salt after the run.
	WipeSecrets bool

	Now            func() time.Time
	Logger         *slog.Logger
	Metrics        MetricsObserver
	ArchiveOptions []func(*archive.Options)
}

// Validate checks required fields.
func (c *Config) Validate() error {
	switch {
	case c.Venue == "":
		return fmt.Errorf("%w: venue is required", ErrConfiguration)
	case c.TargetDir == "":
		return fmt.Errorf("%w: target directory is required", ErrConfiguration)
	case c.Anonymizer == nil:
		return fmt.Errorf("%w: anonymizer is required", ErrConfiguration)
	case c.Concurrency < 0:
		return fmt.Errorf("%w: concurrency must not be negative", ErrConfiguration)
	case c.RequestsPerSecond < 0:
		return fmt.Errorf("%w: requests per second must not be negative", ErrConfiguration)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.ArchiveName == "" {
		c.ArchiveName = vault.DefaultArchiveName
	}
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.DiscardHandler)
	}
	if c.Metrics == nil {
		c.Metrics = NoopMetricsObserver{}
	}
	return c
}
