package dataset

import (
	"errors"
	"fmt"
)

// Review fields the model relies on.
const (
	FieldID     = "id"      // anonymized review id
	FieldAuthor = "tauthor" // anonymized true author
)

// ErrMalformed is returned when flat data lacks a required field.
var ErrMalformed = errors.New("malformed dataset")

// RevData is the rev_data.json layout: sid -> review objects.
type RevData map[string][]Content

// SubData is the sub_data.json layout: sid -> submission object.
type SubData map[string]Content

// FromFlat rebuilds a dataset from its stored form. Each review object must
// carry string "id" and "tauthor" fields.
func FromFlat(rev RevData, sub SubData, desc map[string]any) (*VenueDataset, error) {
	reviews := make(map[string]ReviewSet, len(rev))
	for sid, objs := range rev {
		rs := make(ReviewSet, len(objs))
		for i, obj := range objs {
			rid, ok := obj[FieldID].(string)
			if !ok || rid == "" {
				return nil, fmt.Errorf("%w: review %d of submission %s has no %q", ErrMalformed, i, sid, FieldID)
			}
			author, ok := obj[FieldAuthor].(string)
			if !ok {
				return nil, fmt.Errorf("%w: review %s has no %q", ErrMalformed, rid, FieldAuthor)
			}
			rs[rid] = NewReview(rid, author, obj)
		}
		reviews[sid] = rs
	}

	submissions := make(map[string]*Submission, len(sub))
	for sid, obj := range sub {
		submissions[sid] = NewSubmission(sid, obj)
	}
	return NewVenueDataset(submissions, reviews, desc), nil
}

// Flat returns deep copies of the stored form. Submissions without reviews
// are omitted from RevData and placeholders are omitted from SubData.
// Reviews are ordered by rid.
func (d *VenueDataset) Flat() (RevData, SubData) {
	rev := make(RevData)
	for sid, rs := range d.reviews {
		if len(rs) == 0 {
			continue
		}
		objs := make([]Content, 0, len(rs))
		for _, rid := range rs.IDs() {
			objs = append(objs, rs[rid].content.Clone())
		}
		rev[sid] = objs
	}

	sub := make(SubData)
	for sid, s := range d.submissions {
		if !s.IsPlaceholder() {
			sub[sid] = s.content.Clone()
		}
	}
	return rev, sub
}
