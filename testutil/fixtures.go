package testutil

import (
	"fmt"

	"github.com/peerdata/yyy/anon"
)

// TwoReviewerVenue builds a venue with two agreed reviewers, one of whom
// asked for attribution, each reviewing a different submission. A third
// member never responded and a fourth declined but reviewed.
func TwoReviewerVenue() *FakeSource {
	src := NewFakeSource()
	s1 := src.AddSubmission("forum1")
	s2 := src.AddSubmission("forum2")

	src.AddReviewer("~Alice_Attributed1", "I agree", "Yes, please name me")
	src.AddReviewer("~Bob_Anonymous1", "i agree ", "No")
	src.AddReviewer("~Carol_Silent1", "", "")
	src.AddReviewer("~Dave_Declined1", "I do not agree", "")

	src.AddReview("~Alice_Attributed1", s1)
	src.AddReview("~Bob_Anonymous1", s2)
	src.AddReview("~Dave_Declined1", s1)
	return src
}

// Venue builds a random venue: reviewers members, subs submissions, each
// member agreeing with probability agreeRate and reviewing one to three
// submissions with probability 0.8.
func (r *RNG) Venue(reviewers, subs int, agreeRate float64) *FakeSource {
	src := NewFakeSource()
	forums := make([]string, subs)
	for i := range forums {
		forums[i] = src.AddSubmission(fmt.Sprintf("forum%d", i))
	}
	for i := range reviewers {
		id := fmt.Sprintf("~Reviewer%d", i)
		switch {
		case r.Chance(agreeRate):
			attribution := "No"
			if r.Chance(0.5) {
				attribution = "Yes"
			}
			src.AddReviewer(id, "I agree", attribution)
		case r.Chance(0.5):
			src.AddReviewer(id, "I decline", "")
		default:
			src.AddReviewer(id, "", "")
		}
		if subs > 0 && r.Chance(0.8) {
			for range 1 + r.Intn(3) {
				src.AddReview(id, forums[r.Intn(subs)])
			}
		}
	}
	return src
}

// FastHasher is a cheap deterministic anonymizer for tests.
func FastHasher() *anon.Hasher {
	return anon.New(anon.SHA256, []byte("TESTSALT"), 2)
}
