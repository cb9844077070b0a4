package episodes

import "sort"

// EpisodeSet is an insertion-ordered set of episodes with structural identity.
type EpisodeSet struct {
	items []Episode
	index map[string]int
}

func NewEpisodeSet(episodes ...Episode) *EpisodeSet {
	s := &EpisodeSet{index: make(map[string]int)}
	for _, ep := range episodes {
		s.Add(ep)
	}
	return s
}

// Add inserts ep and reports whether it was not yet present.
func (s *EpisodeSet) Add(ep Episode) bool {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	key := ep.Key()
	if _, ok := s.index[key]; ok {
		return false
	}
	s.index[key] = len(s.items)
	s.items = append(s.items, ep)
	return true
}

func (s *EpisodeSet) Contains(ep Episode) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[ep.Key()]
	return ok
}

func (s *EpisodeSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Items returns the episodes in insertion order.
func (s *EpisodeSet) Items() []Episode {
	if s == nil {
		return nil
	}
	return append([]Episode(nil), s.items...)
}

// Equal reports whether both sets hold the same episodes, ignoring order.
func (s *EpisodeSet) Equal(other *EpisodeSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	for _, ep := range s.Items() {
		if !other.Contains(ep) {
			return false
		}
	}
	return true
}

// EpisodesBySize groups episodes by their number of events.
type EpisodesBySize map[int]*EpisodeSet

// Sizes returns the size classes in ascending order.
func (m EpisodesBySize) Sizes() []int {
	sizes := make([]int, 0, len(m))
	for k := range m {
		sizes = append(sizes, k)
	}
	sort.Ints(sizes)
	return sizes
}

// Total counts the episodes over all size classes.
func (m EpisodesBySize) Total() int {
	n := 0
	for _, set := range m {
		n += set.Len()
	}
	return n
}

// Add files ep under its number of events.
func (m EpisodesBySize) Add(ep Episode) {
	size := ep.NumEvents()
	set, ok := m[size]
	if !ok {
		set = NewEpisodeSet()
		m[size] = set
	}
	set.Add(ep)
}

// Equal compares two groupings class by class.
func (m EpisodesBySize) Equal(other EpisodesBySize) bool {
	if len(m) != len(other) {
		return false
	}
	for size, set := range m {
		o, ok := other[size]
		if !ok || !set.Equal(o) {
			return false
		}
	}
	return true
}
