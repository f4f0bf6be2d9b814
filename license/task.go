package license

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/peerdata/yyy/collect"
)

// AuthorTaskName is the invitation suffix of the per-submission author task.
const AuthorTaskName = "License_Agreement"

// Invitation is a task as posted to the platform.
type Invitation struct {
	ID       string
	Invitees []string
	Readers  []string
	// Forum is the submission an author task is attached to; empty for the
	// venue-wide reviewer task.
	Forum        string
	Title        string
	Instructions string
	Form         map[string]any
	Start        time.Time
	Due          time.Time
	Expiry       time.Time
}

// TaskPoster is the platform side of task setup.
type TaskPoster interface {
	// Submissions lists the venue's (blind) submissions.
	Submissions(ctx context.Context, venue string) ([]collect.SubmissionNote, error)

	// PostInvitation creates or replaces an invitation.
	PostInvitation(ctx context.Context, inv Invitation) error
}

// ReviewerInvitation builds the venue-wide reviewer registration task.
func ReviewerInvitation(venue string, c TaskConfig) Invitation {
	reviewers := venue + "/Reviewers"
	return Invitation{
		ID:           reviewers + "/-/Registration",
		Invitees:     []string{reviewers, venue + "/Program_Chairs"},
		Readers:      []string{venue, reviewers},
		Title:        c.Title,
		Instructions: c.Instructions,
		Form:         c.Form,
		Start:        c.Start,
		Due:          c.Due,
		Expiry:       c.Expiry,
	}
}

// AuthorInvitation builds the license task for the authors of one submission.
func AuthorInvitation(venue string, sub collect.SubmissionNote, c TaskConfig) Invitation {
	base := fmt.Sprintf("%s/Paper%d", venue, sub.Number)
	return Invitation{
		ID:       base + "/-/" + AuthorTaskName,
		Invitees: []string{base + "/Authors"},
		Readers:  []string{venue + "/Program_Chairs", base + "/Authors"},
		Forum:    sub.ID,
		Form:     c.Form,
		Start:    c.Start,
		Due:      c.Due,
		Expiry:   c.Expiry,
	}
}

// SetupReviewerTask validates c and posts the reviewer task.
func SetupReviewerTask(ctx context.Context, p TaskPoster, venue string, c TaskConfig, logger *slog.Logger) (Invitation, error) {
	if err := c.Validate(RoleReviewers); err != nil {
		return Invitation{}, err
	}
	if venue == "" {
		return Invitation{}, &ValidationError{Field: "venue", Reason: "is mandatory"}
	}
	inv := ReviewerInvitation(venue, c)
	if err := p.PostInvitation(ctx, inv); err != nil {
		return Invitation{}, fmt.Errorf("post %s: %w", inv.ID, err)
	}
	loggerOrDiscard(logger).InfoContext(ctx, "posted reviewer license task", "venue", venue, "invitation", inv.ID)
	return inv, nil
}

// SetupAuthorTasks validates c and posts one author task per submission. A
// non-nil only restricts the tasks to those submission ids; ids the venue
// does not list are rejected before anything is posted.
func SetupAuthorTasks(ctx context.Context, p TaskPoster, venue string, c TaskConfig, only []string, logger *slog.Logger) ([]Invitation, error) {
	if err := c.Validate(RoleAuthors); err != nil {
		return nil, err
	}
	if venue == "" {
		return nil, &ValidationError{Field: "venue", Reason: "is mandatory"}
	}
	log := loggerOrDiscard(logger).With("venue", venue)

	subs, err := p.Submissions(ctx, venue)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	if only != nil {
		subs, err = restrict(subs, only)
		if err != nil {
			return nil, err
		}
	}

	invs := make([]Invitation, 0, len(subs))
	for _, sub := range subs {
		inv := AuthorInvitation(venue, sub, c)
		if err := p.PostInvitation(ctx, inv); err != nil {
			return invs, fmt.Errorf("post %s: %w", inv.ID, err)
		}
		invs = append(invs, inv)
	}
	log.InfoContext(ctx, "posted author license tasks", "submissions", len(invs))
	return invs, nil
}

func restrict(subs []collect.SubmissionNote, only []string) ([]collect.SubmissionNote, error) {
	byID := make(map[string]collect.SubmissionNote, len(subs))
	for _, s := range subs {
		byID[s.ID] = s
	}
	var unknown []string
	out := make([]collect.SubmissionNote, 0, len(only))
	for _, id := range only {
		s, ok := byID[id]
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		out = append(out, s)
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		return nil, &ValidationError{Field: "submissions", Reason: fmt.Sprintf("unknown submission ids %v", unknown)}
	}
	return out, nil
}

func loggerOrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}
