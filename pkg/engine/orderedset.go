package engine

// orderedSet is a set of strings that remembers insertion order.
type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]struct{})}
}

// Add inserts the items not already present, keeping their first position.
func (s *orderedSet) Add(items ...string) {
	for _, item := range items {
		if _, ok := s.seen[item]; ok {
			continue
		}
		s.seen[item] = struct{}{}
		s.items = append(s.items, item)
	}
}

// Items returns the items in insertion order. The slice is owned by the set.
func (s *orderedSet) Items() []string {
	return s.items
}
