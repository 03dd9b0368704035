package access

import "sort"

// Set is an unordered set of usernames.
type Set map[string]struct{}

// NewSet builds a set holding names.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

func (s Set) Add(name string) { s[name] = struct{}{} }

func (s Set) Remove(name string) { delete(s, name) }

// Sorted returns the members in ascending order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Encode converts the matrix to its persisted form. Sequences are sorted so
// the output is stable; order carries no meaning.
func Encode(grants map[string]Set) map[string][]string {
	out := make(map[string][]string, len(grants))
	for owner, viewers := range grants {
		out[owner] = viewers.Sorted()
	}
	return out
}

// Decode rebuilds the set-valued matrix from its persisted form. Duplicate
// entries collapse.
func Decode(persisted map[string][]string) map[string]Set {
	out := make(map[string]Set, len(persisted))
	for owner, viewers := range persisted {
		out[owner] = NewSet(viewers...)
	}
	return out
}
