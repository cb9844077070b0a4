package episodes

import (
	"fmt"
	"strconv"
	"strings"
)

// EventID indexes into the event mapping of a corpus.
type EventID int

type factKind uint8

const (
	eventFact factKind = iota + 1
	relationFact
)

// Fact is the atomic unit of an episode: either a single event (leaf fact) or a
// precedence relation between two events, written "a>b".
//
// Fact is a comparable value type; two facts are equal when they have the same
// kind and the same ids, so a Fact can be used directly as a map key.
type Fact struct {
	kind   factKind
	first  EventID
	second EventID
}

// NewEventFact returns the leaf fact for a single event.
func NewEventFact(id EventID) Fact {
	return Fact{kind: eventFact, first: id}
}

// NewRelationFact returns the relation fact "before(first, second)".
func NewRelationFact(first, second EventID) Fact {
	return Fact{kind: relationFact, first: first, second: second}
}

// Before is a shorthand for NewRelationFact between two leaf facts.
func Before(first, second Fact) Fact {
	return NewRelationFact(first.first, second.first)
}

// ParseFact reads "12" as a leaf fact and "1>2" as a relation fact.
func ParseFact(s string) (Fact, error) {
	s = strings.TrimSpace(s)
	if left, right, ok := strings.Cut(s, ">"); ok {
		a, err := parseEventID(left)
		if err != nil {
			return Fact{}, fmt.Errorf("%w: relation fact %q: %v", ErrMalformedInput, s, err)
		}
		b, err := parseEventID(right)
		if err != nil {
			return Fact{}, fmt.Errorf("%w: relation fact %q: %v", ErrMalformedInput, s, err)
		}
		return NewRelationFact(a, b), nil
	}
	id, err := parseEventID(s)
	if err != nil {
		return Fact{}, fmt.Errorf("%w: event fact %q: %v", ErrMalformedInput, s, err)
	}
	return NewEventFact(id), nil
}

// MustParseFacts is ParseFact over several strings; it panics on malformed input
// and is meant for literals in tests and examples.
func MustParseFacts(values ...string) []Fact {
	out := make([]Fact, 0, len(values))
	for _, v := range values {
		f, err := ParseFact(v)
		if err != nil {
			panic(err)
		}
		out = append(out, f)
	}
	return out
}

func parseEventID(s string) (EventID, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative event id %d", n)
	}
	return EventID(n), nil
}

func (f Fact) IsZero() bool { return f.kind == 0 }

func (f Fact) IsEvent() bool { return f.kind == eventFact }

func (f Fact) IsRelation() bool { return f.kind == relationFact }

// ID returns the event id of a leaf fact.
func (f Fact) ID() EventID { return f.first }

// Endpoints returns the two leaf facts of a relation fact.
func (f Fact) Endpoints() (Fact, Fact) {
	return NewEventFact(f.first), NewEventFact(f.second)
}

// Reverse returns "b>a" for "a>b". Leaf facts are returned unchanged.
func (f Fact) Reverse() Fact {
	if f.kind != relationFact {
		return f
	}
	return NewRelationFact(f.second, f.first)
}

func (f Fact) String() string {
	switch f.kind {
	case eventFact:
		return strconv.Itoa(int(f.first))
	case relationFact:
		return strconv.Itoa(int(f.first)) + ">" + strconv.Itoa(int(f.second))
	default:
		return "<none>"
	}
}

// factLess orders leaf facts before relation facts, then by ids.
func factLess(a, b Fact) bool {
	if a.kind != b.kind {
		return a.kind < b.kind
	}
	if a.first != b.first {
		return a.first < b.first
	}
	return a.second < b.second
}

func (f Fact) MarshalText() ([]byte, error) {
	if f.IsZero() {
		return nil, fmt.Errorf("%w: empty fact", ErrInvalidEpisode)
	}
	return []byte(f.String()), nil
}

func (f *Fact) UnmarshalText(text []byte) error {
	parsed, err := ParseFact(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
