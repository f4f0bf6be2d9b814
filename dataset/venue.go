package dataset

import (
	"errors"
	"fmt"
	"iter"
)

// ErrReviewerMismatch is returned when a review is stored under a reviewer
// other than its author.
var ErrReviewerMismatch = errors.New("review belongs to a different reviewer")

// VenueDataset is the collected corpus of one venue.
//
// submissions and reviews are kept in lock-step: every sid has a Submission
// (possibly a placeholder) and a ReviewSet (possibly empty). byReviewer is a
// secondary index over reviews maintained by writes through either view.
type VenueDataset struct {
	submissions map[string]*Submission
	reviews     map[string]ReviewSet
	byReviewer  map[string]map[string]map[string]struct{} // reviewer -> sid -> rids
	desc        map[string]any
}

// NewVenueDataset builds a dataset that takes ownership of the given maps.
// Review-only sids get placeholder submissions and review-less submissions
// get empty review sets. Nil maps are allowed.
func NewVenueDataset(submissions map[string]*Submission, reviews map[string]ReviewSet, desc map[string]any) *VenueDataset {
	if submissions == nil {
		submissions = make(map[string]*Submission)
	}
	if reviews == nil {
		reviews = make(map[string]ReviewSet)
	}
	if desc == nil {
		desc = make(map[string]any)
	}

	for sid := range reviews {
		if submissions[sid] == nil {
			submissions[sid] = Placeholder(sid)
		}
	}
	for sid := range submissions {
		if reviews[sid] == nil {
			reviews[sid] = ReviewSet{}
		}
	}

	d := &VenueDataset{submissions: submissions, reviews: reviews, desc: desc}
	d.Reindex()
	return d
}

// Desc returns the live description mapping.
func (d *VenueDataset) Desc() map[string]any { return d.desc }

// Name returns desc["full_name"] when set.
func (d *VenueDataset) Name() string {
	name, _ := d.desc["full_name"].(string)
	return name
}

// NumSubmissions returns the number of submissions, placeholders included.
func (d *VenueDataset) NumSubmissions() int { return len(d.submissions) }

// NumReviews returns the number of stored reviews.
func (d *VenueDataset) NumReviews() int {
	n := 0
	for _, rs := range d.reviews {
		n += len(rs)
	}
	return n
}

// Reindex rebuilds the reviewer index. Call it after mutating a ReviewSet
// obtained from a view directly.
func (d *VenueDataset) Reindex() {
	d.byReviewer = make(map[string]map[string]map[string]struct{})
	for sid, rs := range d.reviews {
		for rid, r := range rs {
			d.index(sid, rid, r)
		}
	}
}

// index records r under the key it has in the backing ReviewSet, which
// need not equal r.RID().
func (d *VenueDataset) index(sid, rid string, r *Review) {
	bySID, ok := d.byReviewer[r.reviewer]
	if !ok {
		bySID = make(map[string]map[string]struct{})
		d.byReviewer[r.reviewer] = bySID
	}
	rids, ok := bySID[sid]
	if !ok {
		rids = make(map[string]struct{})
		bySID[sid] = rids
	}
	rids[rid] = struct{}{}
}

func (d *VenueDataset) unindex(sid, rid string, r *Review) {
	bySID := d.byReviewer[r.reviewer]
	if bySID == nil {
		return
	}
	delete(bySID[sid], rid)
	if len(bySID[sid]) == 0 {
		delete(bySID, sid)
	}
	if len(bySID) == 0 {
		delete(d.byReviewer, r.reviewer)
	}
}

// Clone returns a deep copy of d with a rebuilt index.
func (d *VenueDataset) Clone() *VenueDataset {
	subs := make(map[string]*Submission, len(d.submissions))
	for sid, s := range d.submissions {
		subs[sid] = s.Clone()
	}
	revs := make(map[string]ReviewSet, len(d.reviews))
	for sid, rs := range d.reviews {
		revs[sid] = rs.Clone()
	}
	return NewVenueDataset(subs, revs, CloneDesc(d.desc))
}

// PerSubmission returns the submission-keyed view.
func (d *VenueDataset) PerSubmission() SubmissionView { return SubmissionView{d: d} }

// PerReviewer returns the reviewer-keyed view.
func (d *VenueDataset) PerReviewer() ReviewerView { return ReviewerView{d: d} }

// SubmissionView accesses a dataset per submission.
type SubmissionView struct{ d *VenueDataset }

// Get returns the submission and its live review set.
func (v SubmissionView) Get(sid string) (*Submission, ReviewSet, bool) {
	s, ok := v.d.submissions[sid]
	if !ok {
		return nil, nil, false
	}
	return s, v.d.reviews[sid], true
}

// Set replaces the submission and review set stored under sid. A nil
// submission stores a placeholder.
func (v SubmissionView) Set(sid string, sub *Submission, reviews ReviewSet) {
	v.Delete(sid)
	if sub == nil {
		sub = Placeholder(sid)
	}
	if reviews == nil {
		reviews = ReviewSet{}
	}
	v.d.submissions[sid] = sub
	v.d.reviews[sid] = reviews
	for rid, r := range reviews {
		v.d.index(sid, rid, r)
	}
}

// Delete removes a submission and its reviews.
func (v SubmissionView) Delete(sid string) {
	for rid, r := range v.d.reviews[sid] {
		v.d.unindex(sid, rid, r)
	}
	delete(v.d.submissions, sid)
	delete(v.d.reviews, sid)
}

// Keys returns the submission ids in sorted order.
func (v SubmissionView) Keys() []string { return sortedKeys(v.d.submissions) }

// Len returns the number of submissions.
func (v SubmissionView) Len() int { return len(v.d.submissions) }

// All iterates submissions in sid order.
func (v SubmissionView) All() iter.Seq2[*Submission, ReviewSet] {
	return func(yield func(*Submission, ReviewSet) bool) {
		for _, sid := range v.Keys() {
			if !yield(v.d.submissions[sid], v.d.reviews[sid]) {
				return
			}
		}
	}
}

// ReviewerView accesses a dataset per reviewer. It writes through to the
// same maps SubmissionView reads.
type ReviewerView struct{ d *VenueDataset }

// Get returns the submissions a reviewer reviewed (sorted by sid) and their
// reviews grouped by sid.
func (v ReviewerView) Get(reviewer string) ([]*Submission, map[string]ReviewSet, bool) {
	bySID, ok := v.d.byReviewer[reviewer]
	if !ok {
		return nil, nil, false
	}
	subs := make([]*Submission, 0, len(bySID))
	revs := make(map[string]ReviewSet, len(bySID))
	for _, sid := range sortedKeys(bySID) {
		subs = append(subs, v.d.submissions[sid])
		rs := make(ReviewSet, len(bySID[sid]))
		for rid := range bySID[sid] {
			rs[rid] = v.d.reviews[sid][rid]
		}
		revs[sid] = rs
	}
	return subs, revs, true
}

// Set replaces every review of reviewer. Submissions referenced by reviews
// but absent from the dataset are taken from subs, or synthesized as
// placeholders. Existing submissions are kept.
func (v ReviewerView) Set(reviewer string, subs map[string]*Submission, reviews map[string]ReviewSet) error {
	for sid, rs := range reviews {
		for rid, r := range rs {
			if r.reviewer != reviewer {
				return fmt.Errorf("%w: review %s of submission %s is by %s", ErrReviewerMismatch, rid, sid, r.reviewer)
			}
		}
	}

	v.Delete(reviewer)

	for sid, s := range subs {
		if _, ok := v.d.submissions[sid]; !ok {
			v.d.submissions[sid] = s
			v.d.reviews[sid] = ReviewSet{}
		}
	}
	for sid, rs := range reviews {
		if _, ok := v.d.submissions[sid]; !ok {
			v.d.submissions[sid] = Placeholder(sid)
		}
		if v.d.reviews[sid] == nil {
			v.d.reviews[sid] = ReviewSet{}
		}
		for rid, r := range rs {
			if old, ok := v.d.reviews[sid][rid]; ok {
				v.d.unindex(sid, rid, old)
			}
			v.d.reviews[sid][rid] = r
			v.d.index(sid, rid, r)
		}
	}
	return nil
}

// Delete removes every review of reviewer from the dataset. Submissions stay,
// possibly with an empty review set.
func (v ReviewerView) Delete(reviewer string) {
	for sid, rids := range v.d.byReviewer[reviewer] {
		for rid := range rids {
			delete(v.d.reviews[sid], rid)
		}
	}
	delete(v.d.byReviewer, reviewer)
}

// Keys returns the reviewer ids in sorted order.
func (v ReviewerView) Keys() []string { return sortedKeys(v.d.byReviewer) }

// Len returns the number of reviewers with at least one review.
func (v ReviewerView) Len() int { return len(v.d.byReviewer) }

// All iterates reviewers in sorted order with their reviews grouped by sid.
func (v ReviewerView) All() iter.Seq2[string, map[string]ReviewSet] {
	return func(yield func(string, map[string]ReviewSet) bool) {
		for _, reviewer := range v.Keys() {
			_, revs, _ := v.Get(reviewer)
			if !yield(reviewer, revs) {
				return
			}
		}
	}
}
