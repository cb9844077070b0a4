package episodes

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// TransitiveReducer removes relation facts implied by other relations.
type TransitiveReducer struct{}

// precedenceGraph builds the DAG of an episode: one node per leaf fact, one
// edge per relation fact. Node ids are the event ids.
func precedenceGraph(e Episode) (*simple.DirectedGraph, error) {
	g := simple.NewDirectedGraph()
	for _, ev := range e.Events() {
		g.AddNode(simple.Node(int64(ev.ID())))
	}
	for _, rel := range e.Relations() {
		if rel.first == rel.second {
			return nil, fmt.Errorf("%w: self relation %s in %s", ErrCyclicRelations, rel, e)
		}
		g.SetEdge(simple.Edge{F: simple.Node(int64(rel.first)), T: simple.Node(int64(rel.second))})
	}

	if _, err := topo.Sort(g); err != nil {
		var cycles topo.Unorderable
		if errors.As(err, &cycles) {
			return nil, fmt.Errorf("%w: %s has %d cyclic component(s)", ErrCyclicRelations, e, len(cycles))
		}
		return nil, err
	}
	return g, nil
}

// Reduce returns e without the relations (a,b) for which another path a->...->b
// exists. Frequency and entropy are preserved. A cycle in the relations is
// reported as ErrCyclicRelations and never repaired.
func (TransitiveReducer) Reduce(e Episode) (Episode, error) {
	g, err := precedenceGraph(e)
	if err != nil {
		return Episode{}, err
	}

	facts := e.EventSet()
	for _, rel := range e.Relations() {
		from, to := simple.Node(int64(rel.first)), simple.Node(int64(rel.second))

		g.RemoveEdge(from.ID(), to.ID())
		if topo.PathExistsIn(g, from, to) {
			continue
		}
		g.SetEdge(simple.Edge{F: from, T: to})
		facts[rel] = struct{}{}
	}
	return newEpisodeUnchecked(e.frequency, e.entropy, facts), nil
}

// ReduceAll reduces every episode of the grouping into a new grouping.
func (r TransitiveReducer) ReduceAll(in EpisodesBySize) (EpisodesBySize, error) {
	out := make(EpisodesBySize, len(in))
	for _, size := range in.Sizes() {
		set := NewEpisodeSet()
		for _, ep := range in[size].Items() {
			reduced, err := r.Reduce(ep)
			if err != nil {
				return nil, err
			}
			set.Add(reduced)
		}
		out[size] = set
	}
	return out, nil
}

// TopologicalEvents returns the leaf facts of e in one precedence compatible
// order; ties are broken by event id.
func TopologicalEvents(e Episode) ([]Fact, error) {
	g, err := precedenceGraph(e)
	if err != nil {
		return nil, err
	}
	nodes, err := topo.SortStabilized(g, func(nodes []graph.Node) {
		sortNodesByID(nodes)
	})
	if err != nil {
		return nil, err
	}
	out := make([]Fact, len(nodes))
	for i, n := range nodes {
		out[i] = NewEventFact(EventID(n.ID()))
	}
	return out, nil
}

func sortNodesByID(nodes []graph.Node) {
	for i := 1; i < len(nodes); i++ {
		for j := i; j > 0 && nodes[j-1].ID() > nodes[j].ID(); j-- {
			nodes[j-1], nodes[j] = nodes[j], nodes[j-1]
		}
	}
}
