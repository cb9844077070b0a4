package episodes

import (
	"sort"
	"sync"
)

//
// ==============================
// Occurrence memory
// ==============================
//

// OccurrenceIndex is an inverted index from leaf facts to the windows that
// contain them. Windows with fewer than two facts are never indexed: they
// cannot witness an ordering.
//
// The revision counter is bumped on every Add, so callers caching counts can
// tell when the index changed underneath them.
type OccurrenceIndex struct {
	mu sync.RWMutex

	rev      uint64
	windows  []Occurrence
	postings map[Fact][]int
}

func NewOccurrenceIndex(occurrences ...Occurrence) *OccurrenceIndex {
	idx := &OccurrenceIndex{postings: make(map[Fact][]int)}
	idx.Add(occurrences...)
	return idx
}

// Add indexes more windows. Window positions continue from the previous Add.
func (x *OccurrenceIndex) Add(occurrences ...Occurrence) {
	x.mu.Lock()
	defer x.mu.Unlock()

	for _, occ := range occurrences {
		pos := len(x.windows)
		x.windows = append(x.windows, occ)
		if occ.Len() < 2 {
			continue
		}
		for f := range occ.facts {
			x.postings[f] = append(x.postings[f], pos)
		}
	}
	x.rev++
}

func (x *OccurrenceIndex) Rev() uint64 {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.rev
}

// Len counts all added windows, indexed or not.
func (x *OccurrenceIndex) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.windows)
}

// Window returns the window at position i.
func (x *OccurrenceIndex) Window(i int) (Occurrence, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if i < 0 || i >= len(x.windows) {
		return Occurrence{}, false
	}
	return x.windows[i], true
}

// Witnesses returns the positions of the windows that contain every given
// fact, ascending. Only leaf facts are looked up; relations are ignored.
func (x *OccurrenceIndex) Witnesses(facts []Fact) []int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	var lists [][]int
	for _, f := range facts {
		if !f.IsEvent() {
			continue
		}
		p, ok := x.postings[f]
		if !ok {
			return nil
		}
		lists = append(lists, p)
	}
	if len(lists) == 0 {
		return nil
	}

	// intersect from the shortest posting list
	sort.Slice(lists, func(i, j int) bool { return len(lists[i]) < len(lists[j]) })
	out := append([]int(nil), lists[0]...)
	for _, l := range lists[1:] {
		out = intersectSorted(out, l)
		if len(out) == 0 {
			return nil
		}
	}
	return out
}

// Count is len(Witnesses(facts)).
func (x *OccurrenceIndex) Count(facts []Fact) int {
	return len(x.Witnesses(facts))
}

// EventCounts returns in how many indexed windows each leaf fact occurs.
func (x *OccurrenceIndex) EventCounts() map[Fact]int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make(map[Fact]int, len(x.postings))
	for f, p := range x.postings {
		out[f] = len(p)
	}
	return out
}

func intersectSorted(a, b []int) []int {
	out := a[:0]
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}
