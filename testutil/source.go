package testutil

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/peerdata/yyy/collect"
)

// Source operation names, as used by FakeSource.Fail and Calls.
const (
	OpRegistrationResponses = "registration_responses"
	OpReviewsByReviewer     = "reviews_by_reviewer"
	OpReviewerID            = "reviewer_id"
	OpReviewers             = "reviewers"
)

// FakeSource is an in-memory review platform. It is safe for concurrent use.
type FakeSource struct {
	User    string
	BaseURL string

	Responses   map[string]collect.RegistrationResponse
	Reviews     map[string][]collect.ReviewNote
	Submissions []collect.SubmissionNote
	Members     []string
	// Authors maps review ids to their true author. Reviews not listed
	// resolve to the reviewer they are filed under.
	Authors map[string]string

	mu    sync.Mutex
	fail  map[string]error
	calls map[string]int
}

var _ collect.Source = (*FakeSource)(nil)

// NewFakeSource creates an empty platform.
func NewFakeSource() *FakeSource {
	return &FakeSource{
		User:      "~Program_Chair1",
		BaseURL:   "https://api.example.org",
		Responses: make(map[string]collect.RegistrationResponse),
		Reviews:   make(map[string][]collect.ReviewNote),
		Authors:   make(map[string]string),
	}
}

// Fail makes every later call of op return err.
func (s *FakeSource) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail == nil {
		s.fail = make(map[string]error)
	}
	s.fail[op] = err
}

// Calls returns how often op was called.
func (s *FakeSource) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

func (s *FakeSource) call(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[op]++
	return s.fail[op]
}

// AddSubmission registers a submission and returns its id.
func (s *FakeSource) AddSubmission(id string) string {
	s.Submissions = append(s.Submissions, collect.SubmissionNote{
		ID:      id,
		Number:  len(s.Submissions) + 1,
		Content: map[string]any{"title": "Paper " + id},
	})
	return id
}

// AddReviewer adds a reviewer group member with a registration response.
// An empty agreement adds the member without a response.
func (s *FakeSource) AddReviewer(id, agreement, attribution string) {
	s.Members = append(s.Members, id)
	if agreement == "" {
		return
	}
	content := map[string]any{collect.FieldAgreement: agreement}
	if attribution != "" {
		content[collect.FieldAttribution] = attribution
	}
	s.Responses[id] = collect.RegistrationResponse{
		ID:         "resp-" + id,
		Signatures: []string{id},
		Writers:    []string{"Venue", id},
		CDate:      1_700_000_000_000 + int64(len(s.Responses)),
		Content:    content,
	}
}

// AddReview files a review of forum by reviewer and returns its id.
func (s *FakeSource) AddReview(reviewer, forum string) string {
	n := 0
	for _, revs := range s.Reviews {
		n += len(revs)
	}
	id := fmt.Sprintf("rev%03d", n+1)
	s.Reviews[reviewer] = append(s.Reviews[reviewer], collect.ReviewNote{
		ID:         id,
		Forum:      forum,
		Number:     n + 1,
		CDate:      1_700_100_000_000 + int64(n),
		TMDate:     1_700_200_000_000 + int64(n),
		Signatures: []string{"Venue/Paper/Reviewer_" + id},
		Content:    map[string]any{"rating": "6: marginally above", "review": "Solid work by " + forum},
	})
	return id
}

func (s *FakeSource) Identity() (string, string) { return s.User, s.BaseURL }

func (s *FakeSource) RegistrationResponses(_ context.Context, _ string) (map[string]collect.RegistrationResponse, error) {
	if err := s.call(OpRegistrationResponses); err != nil {
		return nil, err
	}
	return s.Responses, nil
}

func (s *FakeSource) ReviewsByReviewer(_ context.Context, _ string) (map[string][]collect.ReviewNote, []collect.SubmissionNote, error) {
	if err := s.call(OpReviewsByReviewer); err != nil {
		return nil, nil, err
	}
	return s.Reviews, s.Submissions, nil
}

func (s *FakeSource) ReviewerIDForReview(ctx context.Context, _ string, _ collect.SubmissionNote, review collect.ReviewNote) (string, error) {
	if err := s.call(OpReviewerID); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if a, ok := s.Authors[review.ID]; ok {
		return a, nil
	}
	for reviewer, revs := range s.Reviews {
		if slices.ContainsFunc(revs, func(r collect.ReviewNote) bool { return r.ID == review.ID }) {
			return reviewer, nil
		}
	}
	return "", fmt.Errorf("unknown review %s", review.ID)
}

func (s *FakeSource) Reviewers(_ context.Context, _ string) ([]string, error) {
	if err := s.call(OpReviewers); err != nil {
		return nil, err
	}
	return s.Members, nil
}
