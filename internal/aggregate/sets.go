package aggregate

import "grimdex/internal/catalog"

// refSet accumulates unique name/slug pairs in insertion order.
// Uniqueness is keyed on the slug, falling back to the name for entries
// without one.
type refSet struct {
	seen  map[string]bool
	names []string
	slugs []string
}

func newRefSet() *refSet {
	return &refSet{seen: make(map[string]bool)}
}

func (s *refSet) add(ref catalog.Ref) {
	if ref.Name == "" && ref.Slug == "" {
		return
	}
	key := ref.Slug
	if key == "" {
		key = ref.Name
	}
	if s.seen[key] {
		return
	}
	s.seen[key] = true
	s.names = append(s.names, ref.Name)
	s.slugs = append(s.slugs, ref.Slug)
}

// Names returns the accumulated names, never nil.
func (s *refSet) Names() []string {
	if s.names == nil {
		return []string{}
	}
	return s.names
}

// Slugs returns the accumulated slugs, never nil.
func (s *refSet) Slugs() []string {
	if s.slugs == nil {
		return []string{}
	}
	return s.slugs
}

// stringSet accumulates unique strings in insertion order.
type stringSet struct {
	seen map[string]bool
	vals []string
}

func newStringSet() *stringSet {
	return &stringSet{seen: make(map[string]bool)}
}

func (s *stringSet) add(v string) {
	if v == "" || s.seen[v] {
		return
	}
	s.seen[v] = true
	s.vals = append(s.vals, v)
}

// Values returns the accumulated values, never nil.
func (s *stringSet) Values() []string {
	if s.vals == nil {
		return []string{}
	}
	return s.vals
}
