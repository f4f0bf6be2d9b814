package dataset

import "slices"

// Description keys attached by MergeWith.
const (
	DescConflictingSubmissions = "conflicting_submissions"
	DescOverlappingSubmissions = "overlapping_submissions"
	DescOverlappingReviews     = "overlapping_reviews"
)

// MergeReport lists the collisions found by a merge, in sorted order.
type MergeReport struct {
	// ConflictingSubmissions are sids present on both sides with different
	// content. The left content was kept.
	ConflictingSubmissions []string
	// OverlappingSubmissions are sids present on both sides with equal content,
	// or where the left side only held a placeholder.
	OverlappingSubmissions []string
	// OverlappingReviews are rids present on both sides under the same sid.
	// The left review was kept.
	OverlappingReviews []string
}

// Empty reports whether the merge saw no collision at all.
func (r MergeReport) Empty() bool {
	return len(r.ConflictingSubmissions) == 0 && len(r.OverlappingSubmissions) == 0 && len(r.OverlappingReviews) == 0
}

// MergeWith merges other into a copy of d. d is the preferred operand: its
// submissions and reviews are never overwritten. other's description fields
// update d's, then the collision lists are attached under the Desc* keys.
// Neither input is mutated.
func (d *VenueDataset) MergeWith(other *VenueDataset) *VenueDataset {
	out := d.Clone()
	if other == nil {
		return out
	}

	var report MergeReport

	for _, sid := range sortedKeys(other.submissions) {
		sub := other.submissions[sid]
		mine, ok := out.submissions[sid]
		switch {
		case !ok:
			out.submissions[sid] = sub.Clone()
		case mine.IsPlaceholder() && !sub.IsPlaceholder():
			// A placeholder has no content to prefer; the real submission fills it.
			out.submissions[sid] = sub.Clone()
			report.OverlappingSubmissions = append(report.OverlappingSubmissions, sid)
		case !mine.ContentEqual(sub):
			report.ConflictingSubmissions = append(report.ConflictingSubmissions, sid)
		default:
			report.OverlappingSubmissions = append(report.OverlappingSubmissions, sid)
		}
	}

	for _, sid := range sortedKeys(other.reviews) {
		target := out.reviews[sid]
		if target == nil {
			target = ReviewSet{}
			out.reviews[sid] = target
		}
		if _, ok := out.submissions[sid]; !ok {
			out.submissions[sid] = Placeholder(sid)
		}
		rs := other.reviews[sid]
		for _, rid := range rs.IDs() {
			if _, ok := target[rid]; ok {
				report.OverlappingReviews = append(report.OverlappingReviews, rid)
				continue
			}
			r := rs[rid].Clone()
			target[rid] = r
			out.index(sid, rid, r)
		}
	}

	for k, v := range other.desc {
		out.desc[k] = cloneValue(v)
	}
	out.desc[DescConflictingSubmissions] = nonNil(report.ConflictingSubmissions)
	out.desc[DescOverlappingSubmissions] = nonNil(report.OverlappingSubmissions)
	out.desc[DescOverlappingReviews] = nonNil(report.OverlappingReviews)

	return out
}

// MergeReport returns the collision lists a merge attached to d's
// description. ok is false when d is not a merge result.
func (d *VenueDataset) MergeReport() (report MergeReport, ok bool) {
	var found [3]bool
	report.ConflictingSubmissions, found[0] = stringList(d.desc[DescConflictingSubmissions])
	report.OverlappingSubmissions, found[1] = stringList(d.desc[DescOverlappingSubmissions])
	report.OverlappingReviews, found[2] = stringList(d.desc[DescOverlappingReviews])
	return report, found[0] && found[1] && found[2]
}

// Authorship is a (submission, reviewer) pair with more than one review id.
type Authorship struct {
	SID      string
	Reviewer string
	RIDs     []string
}

// DuplicateAuthorship lists reviewers holding several reviews of the same
// submission. Merges key collisions on review id only, so a review that was
// re-issued under a new id survives a merge next to its old copy; this
// reports such pairs for inspection.
func (d *VenueDataset) DuplicateAuthorship() []Authorship {
	var out []Authorship
	for _, reviewer := range sortedKeys(d.byReviewer) {
		bySID := d.byReviewer[reviewer]
		for _, sid := range sortedKeys(bySID) {
			if len(bySID[sid]) > 1 {
				out = append(out, Authorship{SID: sid, Reviewer: reviewer, RIDs: sortedKeys(bySID[sid])})
			}
		}
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// stringList accepts both in-memory and JSON-decoded lists.
func stringList(v any) ([]string, bool) {
	switch t := v.(type) {
	case []string:
		return slices.Clone(t), true
	case []any:
		out := make([]string, 0, len(t))
		for _, e := range t {
			s, ok := e.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}
