// Package cohort tracks sets of reviewers as roaring bitmaps.
//
// Reviewer ids are interned into dense uint32 ids by a Registry; a Cohort is
// a set of those ids. Collection statistics are intersections and
// cardinalities of a handful of cohorts (agreed, attributed, active, ...).
package cohort

import (
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
)

// Registry interns reviewer ids. It is not safe for concurrent use.
type Registry struct {
	ids   map[string]uint32
	names []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ids: make(map[string]uint32)}
}

// ID returns the dense id of name, assigning one on first use.
func (r *Registry) ID(name string) uint32 {
	if id, ok := r.ids[name]; ok {
		return id
	}
	id := uint32(len(r.names)) //nolint:gosec // reviewer counts fit in uint32
	r.ids[name] = id
	r.names = append(r.names, name)
	return id
}

// Lookup returns the id of name without assigning one.
func (r *Registry) Lookup(name string) (uint32, bool) {
	id, ok := r.ids[name]
	return id, ok
}

// Name returns the reviewer id interned as id.
func (r *Registry) Name(id uint32) string { return r.names[id] }

// Len returns the number of interned ids.
func (r *Registry) Len() int { return len(r.names) }

// Cohort builds a cohort from reviewer ids, interning them.
func (r *Registry) Cohort(names ...string) *Cohort {
	c := New(r)
	for _, n := range names {
		c.Add(n)
	}
	return c
}

// Cohort is a set of reviewers.
type Cohort struct {
	reg *Registry
	rb  *roaring.Bitmap
}

// New creates an empty cohort over reg.
func New(reg *Registry) *Cohort {
	return &Cohort{reg: reg, rb: roaring.New()}
}

// Add adds a reviewer.
func (c *Cohort) Add(name string) { c.rb.Add(c.reg.ID(name)) }

// Contains reports membership. Unknown names are never members.
func (c *Cohort) Contains(name string) bool {
	id, ok := c.reg.Lookup(name)
	return ok && c.rb.Contains(id)
}

// Len returns the number of members.
func (c *Cohort) Len() int { return int(c.rb.GetCardinality()) } //nolint:gosec // bounded by registry size

// IsEmpty reports whether the cohort has no members.
func (c *Cohort) IsEmpty() bool { return c.rb.IsEmpty() }

// And returns the intersection of c and o.
func (c *Cohort) And(o *Cohort) *Cohort {
	return &Cohort{reg: c.reg, rb: roaring.And(c.rb, o.rb)}
}

// Or returns the union of c and o.
func (c *Cohort) Or(o *Cohort) *Cohort {
	return &Cohort{reg: c.reg, rb: roaring.Or(c.rb, o.rb)}
}

// AndNot returns the members of c not in o.
func (c *Cohort) AndNot(o *Cohort) *Cohort {
	return &Cohort{reg: c.reg, rb: roaring.AndNot(c.rb, o.rb)}
}

// Members returns the reviewer ids in sorted order.
func (c *Cohort) Members() []string {
	out := make([]string, 0, c.Len())
	it := c.rb.Iterator()
	for it.HasNext() {
		out = append(out, c.reg.Name(it.Next()))
	}
	slices.Sort(out)
	return out
}
