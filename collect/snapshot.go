package collect

import (
	"context"
	"fmt"
	"os"

	"github.com/peerdata/yyy/codec"
)

// Snapshot is a JSON export of one venue's platform data. It lets a
// collection run offline against data fetched earlier.
type Snapshot struct {
	Venue     string                 `json:"venue"`
	User      string                 `json:"user"`
	BaseURL   string                 `json:"base_url"`
	Responses []RegistrationResponse `json:"registration_responses"`
	// Reviews are keyed by the reviewer who submitted them.
	Reviews     map[string][]ReviewNote `json:"reviews"`
	Submissions []SubmissionNote        `json:"submissions"`
	Reviewers   []string                `json:"reviewers"`
	// Authors maps review ids to their true author. Reviews not listed
	// resolve to the reviewer they are filed under.
	Authors map[string]string `json:"authors,omitempty"`
}

// SnapshotSource serves a Snapshot as a Source.
type SnapshotSource struct {
	snap    *Snapshot
	authors map[string]string
}

var _ Source = (*SnapshotSource)(nil)

// NewSnapshotSource indexes snap. Responses are keyed by their first
// signature; a response without one is an error.
func NewSnapshotSource(snap *Snapshot) (*SnapshotSource, error) {
	authors := make(map[string]string)
	for reviewer, revs := range snap.Reviews {
		for _, r := range revs {
			authors[r.ID] = reviewer
		}
	}
	for id, a := range snap.Authors {
		authors[id] = a
	}
	for _, r := range snap.Responses {
		if len(r.Signatures) == 0 {
			return nil, fmt.Errorf("%w: response %s has no signature", ErrConfiguration, r.ID)
		}
	}
	return &SnapshotSource{snap: snap, authors: authors}, nil
}

// LoadSnapshot reads a Snapshot file decoded with codec.Default.
func LoadSnapshot(path string) (*SnapshotSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := codec.Default.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: snapshot %s: %v", ErrConfiguration, path, err)
	}
	return NewSnapshotSource(&snap)
}

// Venue returns the venue the snapshot was taken of; it may be empty.
func (s *SnapshotSource) Venue() string { return s.snap.Venue }

func (s *SnapshotSource) Identity() (string, string) { return s.snap.User, s.snap.BaseURL }

func (s *SnapshotSource) check(venue string) error {
	if s.snap.Venue != "" && venue != s.snap.Venue {
		return fmt.Errorf("%w: snapshot is of %q, not %q", ErrConfiguration, s.snap.Venue, venue)
	}
	return nil
}

func (s *SnapshotSource) RegistrationResponses(_ context.Context, venue string) (map[string]RegistrationResponse, error) {
	if err := s.check(venue); err != nil {
		return nil, err
	}
	out := make(map[string]RegistrationResponse, len(s.snap.Responses))
	for _, r := range s.snap.Responses {
		out[r.Signatures[0]] = r
	}
	return out, nil
}

func (s *SnapshotSource) ReviewsByReviewer(_ context.Context, venue string) (map[string][]ReviewNote, []SubmissionNote, error) {
	if err := s.check(venue); err != nil {
		return nil, nil, err
	}
	return s.snap.Reviews, s.snap.Submissions, nil
}

func (s *SnapshotSource) ReviewerIDForReview(_ context.Context, _ string, _ SubmissionNote, review ReviewNote) (string, error) {
	if a, ok := s.authors[review.ID]; ok {
		return a, nil
	}
	return "", fmt.Errorf("review %s: author unknown", review.ID)
}

func (s *SnapshotSource) Reviewers(_ context.Context, venue string) ([]string, error) {
	if err := s.check(venue); err != nil {
		return nil, err
	}
	return s.snap.Reviewers, nil
}
