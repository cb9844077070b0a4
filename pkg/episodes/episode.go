package episodes

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Episode is an immutable partial-order pattern: a set of leaf facts (events),
// a set of relation facts between them, and the frequency and entropy the miner
// annotated it with.
//
// Episodes are produced by an EpisodeBuilder. Every accessor returns a copy, so
// an Episode can be shared freely between postprocessing stages.
type Episode struct {
	// facts are kept sorted (events first) so that equality and keys are
	// independent of insertion order.
	facts     []Fact
	frequency int
	entropy   float64
}

// NewEpisode builds an episode from the given facts and annotations.
func NewEpisode(frequency int, entropy float64, facts ...Fact) (Episode, error) {
	return NewEpisodeBuilder().
		AddFacts(facts...).
		SetFrequency(frequency).
		SetEntropy(entropy).
		Build()
}

// newEpisodeUnchecked is used by postprocessing steps that only ever narrow an
// already valid episode.
func newEpisodeUnchecked(frequency int, entropy float64, facts map[Fact]struct{}) Episode {
	sorted := make([]Fact, 0, len(facts))
	for f := range facts {
		sorted = append(sorted, f)
	}
	sort.Slice(sorted, func(i, j int) bool { return factLess(sorted[i], sorted[j]) })
	return Episode{facts: sorted, frequency: frequency, entropy: entropy}
}

func (e Episode) Frequency() int { return e.frequency }

// Entropy is the bidirectional measure of the episode. Low values indicate a
// strongly one-directional ordering.
func (e Episode) Entropy() float64 { return e.entropy }

// Facts returns all facts, events first.
func (e Episode) Facts() []Fact {
	return append([]Fact(nil), e.facts...)
}

// Events returns the leaf facts.
func (e Episode) Events() []Fact {
	out := make([]Fact, 0, len(e.facts))
	for _, f := range e.facts {
		if f.IsEvent() {
			out = append(out, f)
		}
	}
	return out
}

// Relations returns the relation facts.
func (e Episode) Relations() []Fact {
	out := make([]Fact, 0, len(e.facts))
	for _, f := range e.facts {
		if f.IsRelation() {
			out = append(out, f)
		}
	}
	return out
}

func (e Episode) NumEvents() int {
	n := 0
	for _, f := range e.facts {
		if f.IsEvent() {
			n++
		}
	}
	return n
}

func (e Episode) NumFacts() int { return len(e.facts) }

func (e Episode) ContainsFact(f Fact) bool {
	i := sort.Search(len(e.facts), func(i int) bool { return !factLess(e.facts[i], f) })
	return i < len(e.facts) && e.facts[i] == f
}

// EventSet returns the leaf facts as a set.
func (e Episode) EventSet() map[Fact]struct{} {
	return toSet(e.Events())
}

// RelationSet returns the relation facts as a set.
func (e Episode) RelationSet() map[Fact]struct{} {
	return toSet(e.Relations())
}

// EventsKey identifies the event set of the episode. Two episodes with the same
// EventsKey are candidates for the same representative.
func (e Episode) EventsKey() string {
	return joinFacts(e.Events())
}

// Key identifies the episode structurally: facts, frequency and entropy.
func (e Episode) Key() string {
	return joinFacts(e.facts) + "|" + strconv.Itoa(e.frequency) + "|" +
		strconv.FormatFloat(e.entropy, 'g', -1, 64)
}

// Equal reports structural equality.
func (e Episode) Equal(other Episode) bool {
	if e.frequency != other.frequency || e.entropy != other.entropy || len(e.facts) != len(other.facts) {
		return false
	}
	for i := range e.facts {
		if e.facts[i] != other.facts[i] {
			return false
		}
	}
	return true
}

func (e Episode) String() string {
	return fmt.Sprintf("{%s} freq=%d entropy=%s", joinFacts(e.facts), e.frequency,
		strconv.FormatFloat(e.entropy, 'f', -1, 64))
}

// ToBuilder starts a new builder pre-populated with this episode.
func (e Episode) ToBuilder() *EpisodeBuilder {
	return NewEpisodeBuilder().
		AddFacts(e.facts...).
		SetFrequency(e.frequency).
		SetEntropy(e.entropy)
}

type episodeJSON struct {
	Facts     []Fact  `json:"facts"`
	Frequency int     `json:"frequency"`
	Entropy   float64 `json:"entropy"`
}

func (e Episode) MarshalJSON() ([]byte, error) {
	facts := e.facts
	if facts == nil {
		facts = []Fact{}
	}
	return json.Marshal(episodeJSON{Facts: facts, Frequency: e.frequency, Entropy: e.entropy})
}

func (e *Episode) UnmarshalJSON(data []byte) error {
	var raw episodeJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ep, err := NewEpisode(raw.Frequency, raw.Entropy, raw.Facts...)
	if err != nil {
		return err
	}
	*e = ep
	return nil
}

/*
========================
Builder
========================
*/

// EpisodeBuilder is the mutable phase of an episode. Facts can be added in any
// order; Build checks the invariants and freezes the result.
type EpisodeBuilder struct {
	facts     map[Fact]struct{}
	frequency int
	entropy   float64
}

func NewEpisodeBuilder() *EpisodeBuilder {
	return &EpisodeBuilder{facts: make(map[Fact]struct{})}
}

func (b *EpisodeBuilder) AddFact(f Fact) *EpisodeBuilder {
	b.facts[f] = struct{}{}
	return b
}

func (b *EpisodeBuilder) AddFacts(facts ...Fact) *EpisodeBuilder {
	for _, f := range facts {
		b.facts[f] = struct{}{}
	}
	return b
}

func (b *EpisodeBuilder) SetFrequency(frequency int) *EpisodeBuilder {
	b.frequency = frequency
	return b
}

func (b *EpisodeBuilder) SetEntropy(entropy float64) *EpisodeBuilder {
	b.entropy = entropy
	return b
}

func (b *EpisodeBuilder) NumEvents() int {
	n := 0
	for f := range b.facts {
		if f.IsEvent() {
			n++
		}
	}
	return n
}

// Build validates the collected facts and returns the frozen Episode. The
// builder stays usable; later changes do not affect the returned Episode.
func (b *EpisodeBuilder) Build() (Episode, error) {
	if b.frequency < 0 {
		return Episode{}, fmt.Errorf("%w: negative frequency %d", ErrInvalidEpisode, b.frequency)
	}
	if math.IsNaN(b.entropy) || b.entropy < 0 || b.entropy > 1 {
		return Episode{}, fmt.Errorf("%w: entropy %v outside [0,1]", ErrInvalidEpisode, b.entropy)
	}
	for f := range b.facts {
		if f.IsZero() {
			return Episode{}, fmt.Errorf("%w: empty fact", ErrInvalidEpisode)
		}
		if !f.IsRelation() {
			continue
		}
		first, second := f.Endpoints()
		if _, ok := b.facts[first]; !ok {
			return Episode{}, fmt.Errorf("%w: relation %s refers to missing event %s", ErrInvalidEpisode, f, first)
		}
		if _, ok := b.facts[second]; !ok {
			return Episode{}, fmt.Errorf("%w: relation %s refers to missing event %s", ErrInvalidEpisode, f, second)
		}
	}
	return newEpisodeUnchecked(b.frequency, b.entropy, b.facts), nil
}

/*
========================
Helpers
========================
*/

func toSet(facts []Fact) map[Fact]struct{} {
	out := make(map[Fact]struct{}, len(facts))
	for _, f := range facts {
		out[f] = struct{}{}
	}
	return out
}

func sortedFacts(set map[Fact]struct{}) []Fact {
	out := make([]Fact, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return factLess(out[i], out[j]) })
	return out
}

func joinFacts(facts []Fact) string {
	parts := make([]string, len(facts))
	for i, f := range facts {
		parts[i] = f.String()
	}
	return strings.Join(parts, ",")
}

// isSubset reports whether every fact of a is in b.
func isSubset(a []Fact, b map[Fact]struct{}) bool {
	for _, f := range a {
		if _, ok := b[f]; !ok {
			return false
		}
	}
	return true
}
