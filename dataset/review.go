package dataset

import (
	"maps"
	"slices"

	"github.com/peerdata/yyy/codec"
)

// Review is one review report. Its identity is the review id alone.
type Review struct {
	rid      string
	reviewer string
	content  Content
}

// NewReview returns a review owning content. A nil content is replaced by an
// empty mapping.
func NewReview(rid, reviewer string, content Content) *Review {
	if content == nil {
		content = Content{}
	}
	return &Review{rid: rid, reviewer: reviewer, content: content}
}

// RID returns the (anonymized) review id.
func (r *Review) RID() string { return r.rid }

// Reviewer returns the (anonymized) id of the reviewer who wrote r.
func (r *Review) Reviewer() string { return r.reviewer }

// Get returns the value of a content field.
func (r *Review) Get(field string) (any, bool) {
	v, ok := r.content[field]
	return v, ok
}

// Set sets a content field.
func (r *Review) Set(field string, v any) { r.content[field] = v }

// Delete removes a content field.
func (r *Review) Delete(field string) { delete(r.content, field) }

// Fields returns the content field names in sorted order.
func (r *Review) Fields() []string { return r.content.Keys() }

// Content returns the live content mapping.
func (r *Review) Content() Content { return r.content }

// Equal reports whether r and o have the same review id.
func (r *Review) Equal(o *Review) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.rid == o.rid
}

// Clone returns a deep copy of r.
func (r *Review) Clone() *Review {
	return &Review{rid: r.rid, reviewer: r.reviewer, content: r.content.Clone()}
}

// MarshalJSON encodes the content only, as stored in rev_data.json.
func (r *Review) MarshalJSON() ([]byte, error) { return codec.Default.Marshal(r.content) }

// Submission is one submission to a venue. Its identity is the submission id
// alone; its content may be empty when submission data is not collected.
type Submission struct {
	sid     string
	content Content
}

// NewSubmission returns a submission owning content.
func NewSubmission(sid string, content Content) *Submission {
	if content == nil {
		content = Content{}
	}
	return &Submission{sid: sid, content: content}
}

// Placeholder returns an empty submission for sid.
func Placeholder(sid string) *Submission { return NewSubmission(sid, nil) }

// SID returns the submission id.
func (s *Submission) SID() string { return s.sid }

// Get returns the value of a content field.
func (s *Submission) Get(field string) (any, bool) {
	v, ok := s.content[field]
	return v, ok
}

// Set sets a content field.
func (s *Submission) Set(field string, v any) { s.content[field] = v }

// Delete removes a content field.
func (s *Submission) Delete(field string) { delete(s.content, field) }

// Fields returns the content field names in sorted order.
func (s *Submission) Fields() []string { return s.content.Keys() }

// Content returns the live content mapping.
func (s *Submission) Content() Content { return s.content }

// IsPlaceholder reports whether s carries no content.
func (s *Submission) IsPlaceholder() bool { return len(s.content) == 0 }

// Equal reports whether s and o have the same submission id.
func (s *Submission) Equal(o *Submission) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.sid == o.sid
}

// ContentEqual reports whether s and o carry equal content.
func (s *Submission) ContentEqual(o *Submission) bool {
	return s.content.Equal(o.content)
}

// Clone returns a deep copy of s.
func (s *Submission) Clone() *Submission {
	return &Submission{sid: s.sid, content: s.content.Clone()}
}

// MarshalJSON encodes the content only, as stored in sub_data.json.
func (s *Submission) MarshalJSON() ([]byte, error) { return codec.Default.Marshal(s.content) }

// ReviewSet holds the reviews of one submission keyed by review id.
type ReviewSet map[string]*Review

// Clone returns a deep copy.
func (rs ReviewSet) Clone() ReviewSet {
	out := make(ReviewSet, len(rs))
	for rid, r := range rs {
		out[rid] = r.Clone()
	}
	return out
}

// IDs returns the review ids in sorted order.
func (rs ReviewSet) IDs() []string {
	return sortedKeys(rs)
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
