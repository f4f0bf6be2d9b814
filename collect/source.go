package collect

import (
	"context"
	"fmt"
	"strings"
)

// Registration response fields.
const (
	FieldAgreement   = "Agreement"
	FieldAttribution = "attribution"
)

// RegistrationResponse is a reviewer's answer to the registration task.
type RegistrationResponse struct {
	ID         string         `json:"id"`
	Signatures []string       `json:"signatures"`
	Writers    []string       `json:"writers"`
	CDate      int64          `json:"cdate"`
	Content    map[string]any `json:"content"`
}

// Agreed reports whether the reviewer answered "I agree" (case and
// surrounding space ignored). A missing or non-text answer is an error.
func (r RegistrationResponse) Agreed() (bool, error) {
	v, ok := r.Content[FieldAgreement]
	if !ok {
		return false, fmt.Errorf("response %s: no %q field", r.ID, FieldAgreement)
	}
	s, ok := v.(string)
	if !ok {
		return false, fmt.Errorf("response %s: %q is %T, not text", r.ID, FieldAgreement, v)
	}
	return strings.ToLower(strings.TrimSpace(s)) == "i agree", nil
}

// Attributed reports whether the reviewer asked to be named as author of
// their reviews.
func (r RegistrationResponse) Attributed() bool {
	s, ok := r.Content[FieldAttribution].(string)
	return ok && strings.HasPrefix(strings.ToLower(strings.TrimSpace(s)), "yes")
}

// AttributionAnswer returns the raw attribution answer, "No" when absent.
func (r RegistrationResponse) AttributionAnswer() string {
	if s, ok := r.Content[FieldAttribution].(string); ok {
		return s
	}
	return "No"
}

// ReviewNote is a review as returned by the platform.
type ReviewNote struct {
	ID         string         `json:"id"`
	Forum      string         `json:"forum"` // id of the reviewed submission
	Number     int            `json:"number"`
	CDate      int64          `json:"cdate"`
	TMDate     int64          `json:"tmdate"`
	Signatures []string       `json:"signatures"`
	Content    map[string]any `json:"content"`
}

// SubmissionNote is a (blind) submission as returned by the platform.
type SubmissionNote struct {
	ID      string         `json:"id"`
	Number  int            `json:"number"`
	Content map[string]any `json:"content"`
}

// Source is the review platform.
type Source interface {
	// Identity returns the operator's user name and the platform base URL.
	Identity() (user, baseURL string)

	// RegistrationResponses maps reviewer ids to their registration response.
	RegistrationResponses(ctx context.Context, venue string) (map[string]RegistrationResponse, error)

	// ReviewsByReviewer maps reviewer ids to the reviews they submitted and
	// lists the venue's submissions.
	ReviewsByReviewer(ctx context.Context, venue string) (map[string][]ReviewNote, []SubmissionNote, error)

	// ReviewerIDForReview resolves the true author of a review.
	ReviewerIDForReview(ctx context.Context, venue string, sub SubmissionNote, review ReviewNote) (string, error)

	// Reviewers lists every member of the venue's reviewer group.
	Reviewers(ctx context.Context, venue string) ([]string, error)
}
