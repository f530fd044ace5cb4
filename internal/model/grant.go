package model

// Grant is one (resource, scope) permission unit held by a role.
type Grant struct {
	Resource string `json:"resource"`
	Scope    string `json:"scope"`
}

// GrantSet is a deduplicated set of grants that remembers first-seen order
// so listings stay stable.  The zero value is an empty set.
type GrantSet struct {
	order []Grant
	index map[Grant]struct{}
}

// NewGrantSet builds a set from grants, dropping duplicates.
func NewGrantSet(grants ...Grant) GrantSet {
	var s GrantSet
	for _, g := range grants {
		s.Add(g)
	}
	return s
}

// Add inserts g unless it is already present.
func (s *GrantSet) Add(g Grant) {
	if s.index == nil {
		s.index = make(map[Grant]struct{})
	}
	if _, ok := s.index[g]; ok {
		return
	}
	s.index[g] = struct{}{}
	s.order = append(s.order, g)
}

// Has reports an exact match.  Scopes do not imply each other.
func (s GrantSet) Has(resource, scope string) bool {
	_, ok := s.index[Grant{Resource: resource, Scope: scope}]
	return ok
}

// Len returns the number of distinct grants.
func (s GrantSet) Len() int { return len(s.order) }

// List returns the grants in first-seen order.  The result is never nil.
func (s GrantSet) List() []Grant {
	out := make([]Grant, len(s.order))
	copy(out, s.order)
	return out
}
