package episodes

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// percentageSteps is the ablation grid: 10%, 20%, ... 90%.
const percentageSteps = 10

// percEpsilon keeps a caller-computed 0.1*3 (0.30000000000000004) of 10
// invocations from rounding up to 4 removals.
const percEpsilon = 1e-9

// QueryGenerator builds ablation queries from a mined pattern by removing a
// share of its invocation facts.
type QueryGenerator struct {
	Subsets   *SubsetGenerator
	Separator FactsSeparator
	// Guard, when set, is held around every use of Subsets.
	Guard sync.Locker
}

func NewQueryGenerator(subsets *SubsetGenerator, guard sync.Locker) *QueryGenerator {
	if subsets == nil {
		subsets = NewSubsetGenerator()
	}
	return &QueryGenerator{Subsets: subsets, Guard: guard}
}

func (g *QueryGenerator) subsets(facts []Fact, k int) ([][]Fact, error) {
	if g.Guard != nil {
		g.Guard.Lock()
		defer g.Guard.Unlock()
	}
	return g.Subsets.Subsets(facts, k)
}

// GenerateQueries runs the percentage grid over target. A percentage is
// skipped when it removes nothing, removes every invocation or removes as many
// invocations as an earlier percentage. target needs more than two events.
func (g *QueryGenerator) GenerateQueries(target Episode) (map[float64]*EpisodeSet, error) {
	if target.NumEvents() <= 2 {
		return nil, fmt.Errorf("%w: ablation needs more than 2 events, %s has %d",
			ErrPrecondition, target, target.NumEvents())
	}
	sep, err := g.Separator.Separate(target)
	if err != nil {
		return nil, err
	}

	n := len(sep.Invocations)
	out := make(map[float64]*EpisodeSet)
	seen := make(map[int]struct{})
	for step := 1; step < percentageSteps; step++ {
		// integer ceil(step/10 * n)
		removed := (step*n + percentageSteps - 1) / percentageSteps
		if removed == 0 || removed == n {
			continue
		}
		if _, dup := seen[removed]; dup {
			continue
		}
		seen[removed] = struct{}{}

		set, err := g.queriesOfSize(target, sep, n-removed)
		if err != nil {
			return nil, err
		}
		out[float64(step)/percentageSteps] = set
	}
	return out, nil
}

// ForPercentage builds the queries for a single removal percentage. A two
// event target, or a percentage removing every invocation, yields the query
// holding only the declaration.
func (g *QueryGenerator) ForPercentage(target Episode, perc float64) (*EpisodeSet, error) {
	if math.IsNaN(perc) || perc < 0 || perc > 1 {
		return nil, fmt.Errorf("%w: percentage %v outside [0,1]", ErrPrecondition, perc)
	}
	if target.NumEvents() < 2 {
		return nil, fmt.Errorf("%w: %s has fewer than 2 events", ErrPrecondition, target)
	}
	sep, err := g.Separator.Separate(target)
	if err != nil {
		return nil, err
	}
	declOnly := newEpisodeUnchecked(0, 0, toSet([]Fact{sep.Declaration}))
	if target.NumEvents() == 2 {
		return NewEpisodeSet(declOnly), nil
	}

	n := len(sep.Invocations)
	removed := int(math.Ceil(perc*float64(n) - percEpsilon))
	if removed >= n {
		return NewEpisodeSet(declOnly), nil
	}
	return g.queriesOfSize(target, sep, n-removed)
}

// Queries flattens GenerateQueries into Query values, ordered by percentage.
func (g *QueryGenerator) Queries(target Episode) ([]Query, error) {
	grid, err := g.GenerateQueries(target)
	if err != nil {
		return nil, err
	}
	qt, err := NewQueryTarget(target)
	if err != nil {
		return nil, err
	}

	percs := make([]float64, 0, len(grid))
	for p := range grid {
		percs = append(percs, p)
	}
	sort.Float64s(percs)

	var out []Query
	for _, p := range percs {
		for _, ep := range grid[p].Items() {
			q, err := NewQuery(ep, qt, p)
			if err != nil {
				return nil, err
			}
			out = append(out, q)
		}
	}
	return out, nil
}

func (g *QueryGenerator) queriesOfSize(target Episode, sep Separation, k int) (*EpisodeSet, error) {
	subsets, err := g.subsets(sep.Invocations, k)
	if err != nil {
		return nil, err
	}
	relations := target.Relations()
	set := NewEpisodeSet()
	for _, subset := range subsets {
		set.Add(buildQuery(sep.Declaration, subset, relations))
	}
	return set, nil
}

// buildQuery keeps the declaration, the retained invocations, a declaration
// relation to each of them and every target relation between two retained
// invocations.
func buildQuery(decl Fact, subset []Fact, relations []Fact) Episode {
	kept := toSet(subset)
	facts := map[Fact]struct{}{decl: {}}
	for _, f := range subset {
		facts[f] = struct{}{}
		facts[Before(decl, f)] = struct{}{}
	}
	for _, rel := range relations {
		first, second := rel.Endpoints()
		_, okFirst := kept[first]
		_, okSecond := kept[second]
		if okFirst && okSecond {
			facts[rel] = struct{}{}
		}
	}
	return newEpisodeUnchecked(0, 0, facts)
}
