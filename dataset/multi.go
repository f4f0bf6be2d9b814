package dataset

import (
	"cmp"
	"iter"
	"maps"
	"slices"
)

// MultiVenueDataset maps venue keys to datasets. Keys are positional integers
// (FromList) or caller-supplied venue ids.
type MultiVenueDataset[K cmp.Ordered] struct {
	venues map[K]*VenueDataset
}

// NewMultiVenueDataset takes ownership of venues. A nil map is allowed.
func NewMultiVenueDataset[K cmp.Ordered](venues map[K]*VenueDataset) *MultiVenueDataset[K] {
	if venues == nil {
		venues = make(map[K]*VenueDataset)
	}
	return &MultiVenueDataset[K]{venues: venues}
}

// FromList keys datasets by their position in list.
func FromList(list []*VenueDataset) *MultiVenueDataset[int] {
	venues := make(map[int]*VenueDataset, len(list))
	for i, d := range list {
		venues[i] = d
	}
	return &MultiVenueDataset[int]{venues: venues}
}

// Get returns the dataset stored under key.
func (m *MultiVenueDataset[K]) Get(key K) (*VenueDataset, bool) {
	d, ok := m.venues[key]
	return d, ok
}

// Set stores a dataset under key.
func (m *MultiVenueDataset[K]) Set(key K, d *VenueDataset) { m.venues[key] = d }

// Delete removes key.
func (m *MultiVenueDataset[K]) Delete(key K) { delete(m.venues, key) }

// Keys returns the venue keys in sorted order.
func (m *MultiVenueDataset[K]) Keys() []K { return slices.Sorted(maps.Keys(m.venues)) }

// Len returns the number of venues.
func (m *MultiVenueDataset[K]) Len() int { return len(m.venues) }

// All iterates venues in key order.
func (m *MultiVenueDataset[K]) All() iter.Seq2[K, *VenueDataset] {
	return func(yield func(K, *VenueDataset) bool) {
		for _, k := range m.Keys() {
			if !yield(k, m.venues[k]) {
				return
			}
		}
	}
}

// Clone deep-copies every venue.
func (m *MultiVenueDataset[K]) Clone() *MultiVenueDataset[K] {
	out := make(map[K]*VenueDataset, len(m.venues))
	for k, d := range m.venues {
		out[k] = d.Clone()
	}
	return &MultiVenueDataset[K]{venues: out}
}

// MergeWith merges other into a copy of m. Venues present on both sides are
// merged with VenueDataset.MergeWith (m preferred); the others are copied.
// Collisions are reported per venue only, in each dataset's description.
func (m *MultiVenueDataset[K]) MergeWith(other *MultiVenueDataset[K]) *MultiVenueDataset[K] {
	if other == nil {
		return m.Clone()
	}
	out := make(map[K]*VenueDataset, len(m.venues)+len(other.venues))
	for _, k := range m.Keys() {
		if theirs, ok := other.venues[k]; ok {
			out[k] = m.venues[k].MergeWith(theirs)
		} else {
			out[k] = m.venues[k].Clone()
		}
	}
	for _, k := range other.Keys() {
		if _, ok := out[k]; !ok {
			out[k] = other.venues[k].Clone()
		}
	}
	return &MultiVenueDataset[K]{venues: out}
}
