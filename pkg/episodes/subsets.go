package episodes

import (
	"fmt"

	"gonum.org/v1/gonum/stat/combin"
)

// SubsetGenerator enumerates the k-element subsets of a fact list.
//
// A SubsetGenerator reuses its index buffer between calls and is NOT safe for
// concurrent use; callers sharing one must serialise access.
type SubsetGenerator struct {
	scratch   []int
	generated int
}

func NewSubsetGenerator() *SubsetGenerator {
	return &SubsetGenerator{}
}

// Subsets returns every k-element subset of facts, in lexicographic order of
// the positions in facts. facts is expected to be duplicate free.
func (g *SubsetGenerator) Subsets(facts []Fact, k int) ([][]Fact, error) {
	n := len(facts)
	if k < 0 || k > n {
		return nil, fmt.Errorf("%w: subset size %d out of range [0,%d]", ErrPrecondition, k, n)
	}

	if cap(g.scratch) < k {
		g.scratch = make([]int, k)
	}
	g.scratch = g.scratch[:k]

	out := make([][]Fact, 0, combin.Binomial(n, k))
	gen := combin.NewCombinationGenerator(n, k)
	for gen.Next() {
		idx := gen.Combination(g.scratch)
		subset := make([]Fact, k)
		for i, j := range idx {
			subset[i] = facts[j]
		}
		out = append(out, subset)
	}
	g.generated += len(out)
	return out, nil
}

// Count is the number of subsets Subsets would return.
func (g *SubsetGenerator) Count(n, k int) int {
	if k < 0 || k > n {
		return 0
	}
	return combin.Binomial(n, k)
}

// Generated is the total number of subsets produced so far.
func (g *SubsetGenerator) Generated() int { return g.generated }
