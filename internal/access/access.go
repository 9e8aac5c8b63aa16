// Package access implements the allow-list that gates uploads and statistics.
package access

import "slices"

// Policy is a static set of authorized user identities. It is built once at
// startup and only read afterwards, so it is safe for concurrent use.
type Policy struct {
	ids     []int64
	allowed map[int64]struct{}
}

// NewPolicy creates a Policy from the given identities. Duplicates are
// collapsed while preserving first-seen order.
func NewPolicy(ids []int64) *Policy {
	p := &Policy{
		ids:     make([]int64, 0, len(ids)),
		allowed: make(map[int64]struct{}, len(ids)),
	}
	for _, id := range ids {
		if _, ok := p.allowed[id]; ok {
			continue
		}
		p.allowed[id] = struct{}{}
		p.ids = append(p.ids, id)
	}
	return p
}

// Allowed reports whether id is on the allow-list.
func (p *Policy) Allowed(id int64) bool {
	_, ok := p.allowed[id]
	return ok
}

// IDs returns a copy of the allow-listed identities.
func (p *Policy) IDs() []int64 {
	return slices.Clone(p.ids)
}

// Len returns the number of allow-listed identities.
func (p *Policy) Len() int {
	return len(p.ids)
}
