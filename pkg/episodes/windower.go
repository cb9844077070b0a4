package episodes

import (
	"fmt"
	"math"
	"sort"
)

const (
	// DefaultTimeout is the gap that separates two method windows.
	DefaultTimeout = 0.5
	// DefaultDelta is the clock advance between two events of the same window.
	DefaultDelta = 0.001
	// DefaultEpsilon is the boundary tolerance of the windower. Zero keeps the
	// exact rule: only a gap of at least the timeout starts a new window.
	DefaultEpsilon = 0.0
)

// WindowConfig holds the windowing constants.
type WindowConfig struct {
	Timeout float64
	Epsilon float64
}

func DefaultWindowConfig() WindowConfig {
	return WindowConfig{Timeout: DefaultTimeout, Epsilon: DefaultEpsilon}
}

func (c WindowConfig) Validate() error {
	if !(c.Timeout > 0) || math.IsInf(c.Timeout, 0) {
		return fmt.Errorf("%w: window timeout must be positive, got %v", ErrPrecondition, c.Timeout)
	}
	if c.Epsilon < 0 || c.Epsilon >= c.Timeout {
		return fmt.Errorf("%w: window epsilon %v must be in [0, timeout)", ErrPrecondition, c.Epsilon)
	}
	return nil
}

// StreamEvent is one line of the encoded stream.
type StreamEvent struct {
	ID        EventID
	Timestamp float64
}

// Occurrence is the set of leaf facts of one method window.
type Occurrence struct {
	facts map[Fact]struct{}
}

func NewOccurrence(facts ...Fact) Occurrence {
	return Occurrence{facts: toSet(facts)}
}

func (o Occurrence) Len() int { return len(o.facts) }

func (o Occurrence) Contains(f Fact) bool {
	_, ok := o.facts[f]
	return ok
}

// ContainsAll reports whether every given fact is in the window.
func (o Occurrence) ContainsAll(facts []Fact) bool {
	return isSubset(facts, o.facts)
}

// Facts returns the window facts in ascending order.
func (o Occurrence) Facts() []Fact { return sortedFacts(o.facts) }

func (o Occurrence) String() string { return "[" + joinFacts(o.Facts()) + "]" }

// StreamWindower segments a stream into method windows.
type StreamWindower struct {
	cfg WindowConfig
}

func NewStreamWindower(cfg WindowConfig) (*StreamWindower, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &StreamWindower{cfg: cfg}, nil
}

// Segment splits events into occurrences. A gap of at least Timeout-Epsilon
// between two consecutive events closes the current window, so with a positive
// Epsilon gaps in [Timeout-Epsilon, Timeout) also split. The gap is always
// measured from the previous event, not from the window start.
//
// An empty stream yields no occurrences; otherwise the last window is always
// emitted.
func (w *StreamWindower) Segment(events []StreamEvent) []Occurrence {
	if len(events) == 0 {
		return nil
	}

	var out []Occurrence
	current := make(map[Fact]struct{})
	timer := events[0].Timestamp

	for _, ev := range events {
		if ev.Timestamp-timer >= w.cfg.Timeout-w.cfg.Epsilon {
			out = append(out, Occurrence{facts: current})
			current = make(map[Fact]struct{})
		}
		timer = ev.Timestamp
		current[NewEventFact(ev.ID)] = struct{}{}
	}
	return append(out, Occurrence{facts: current})
}

// SegmentWindows is Segment that also returns, for each occurrence, its
// declaration event id: the smallest id of the window whose mapped event is a
// declaration. Windows without a declaration get -1.
func (w *StreamWindower) SegmentWindows(events []StreamEvent, mapping []Event) ([]Occurrence, []EventID) {
	occs := w.Segment(events)
	decls := make([]EventID, len(occs))
	for i, occ := range occs {
		decls[i] = -1
		ids := make([]int, 0, occ.Len())
		for f := range occ.facts {
			ids = append(ids, int(f.ID()))
		}
		sort.Ints(ids)
		for _, id := range ids {
			if id < len(mapping) && mapping[id].Kind.IsDeclaration() {
				decls[i] = EventID(id)
				break
			}
		}
	}
	return occs, decls
}
