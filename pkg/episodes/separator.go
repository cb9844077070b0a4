package episodes

import "fmt"

// Separation splits the leaf facts of an episode into its declaration and its
// invocations.
type Separation struct {
	Declaration Fact
	Invocations []Fact
}

// FactsSeparator finds the declaration of a method-centred episode: the leaf
// fact that precedes every other event.
type FactsSeparator struct{}

// Separate fails with ErrPrecondition when no event, or more than one event,
// is the antecedent of exactly NumEvents()-1 relations. A single-event
// episode is its own declaration.
func (FactsSeparator) Separate(e Episode) (Separation, error) {
	events := e.Events()
	switch len(events) {
	case 0:
		return Separation{}, fmt.Errorf("%w: episode without events", ErrPrecondition)
	case 1:
		return Separation{Declaration: events[0]}, nil
	}

	antecedents := make(map[Fact]int)
	for _, rel := range e.Relations() {
		first, _ := rel.Endpoints()
		antecedents[first]++
	}

	var decl Fact
	found := 0
	for _, ev := range events {
		if antecedents[ev] == len(events)-1 {
			decl = ev
			found++
		}
	}
	switch {
	case found == 0:
		return Separation{}, fmt.Errorf("%w: no declaration fact in %s", ErrPrecondition, e)
	case found > 1:
		return Separation{}, fmt.Errorf("%w: %d declaration candidates in %s", ErrPrecondition, found, e)
	}

	invocations := make([]Fact, 0, len(events)-1)
	for _, ev := range events {
		if ev != decl {
			invocations = append(invocations, ev)
		}
	}
	return Separation{Declaration: decl, Invocations: invocations}, nil
}
