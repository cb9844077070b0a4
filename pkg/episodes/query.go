package episodes

import (
	"fmt"
	"math"
)

// QueryTarget is the complete mined pattern an ablation query is derived from,
// together with its declaration fact.
type QueryTarget struct {
	facts       []Fact
	declaration Fact
}

// NewQueryTarget separates e into a target. It fails like FactsSeparator.Separate.
func NewQueryTarget(e Episode) (QueryTarget, error) {
	sep, err := FactsSeparator{}.Separate(e)
	if err != nil {
		return QueryTarget{}, err
	}
	return QueryTarget{facts: e.Facts(), declaration: sep.Declaration}, nil
}

func (t QueryTarget) Facts() []Fact { return append([]Fact(nil), t.facts...) }

func (t QueryTarget) Declaration() Fact { return t.declaration }

func (t QueryTarget) Equal(other QueryTarget) bool {
	if t.declaration != other.declaration || len(t.facts) != len(other.facts) {
		return false
	}
	set := toSet(other.facts)
	return isSubset(t.facts, set)
}

// Query is a reduced fact set of a target with the fraction of invocation facts
// that were removed to produce it.
type Query struct {
	episode     Episode
	percRemoved float64
	target      QueryTarget
}

func NewQuery(e Episode, target QueryTarget, percRemoved float64) (Query, error) {
	q := Query{episode: e, target: target}
	if err := q.SetPercRemoved(percRemoved); err != nil {
		return Query{}, err
	}
	return q, nil
}

// SetPercRemoved rejects values outside [0,1]; values are never clamped.
func (q *Query) SetPercRemoved(p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return fmt.Errorf("%w: percentage removed %v outside [0,1]", ErrPrecondition, p)
	}
	q.percRemoved = p
	return nil
}

func (q Query) PercRemoved() float64 { return q.percRemoved }

func (q Query) Episode() Episode { return q.episode }

func (q Query) Facts() []Fact { return q.episode.Facts() }

func (q Query) Target() QueryTarget { return q.target }

func (q Query) Equal(other Query) bool {
	return q.percRemoved == other.percRemoved &&
		q.episode.Equal(other.episode) &&
		q.target.Equal(other.target)
}

func (q Query) String() string {
	return fmt.Sprintf("query %s removed=%.1f declaration=%s", joinFacts(q.episode.facts), q.percRemoved, q.target.declaration)
}
