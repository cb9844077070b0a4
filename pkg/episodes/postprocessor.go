package episodes

import (
	"log/slog"
)

// ResolutionKind tells which candidate a Representative comparison picked.
type ResolutionKind uint8

const (
	KeepFirst ResolutionKind = iota + 1
	KeepSecond
	Merge
)

func (k ResolutionKind) String() string {
	switch k {
	case KeepFirst:
		return "keep-first"
	case KeepSecond:
		return "keep-second"
	case Merge:
		return "merge"
	default:
		return "unknown"
	}
}

// Resolution is the outcome of comparing two episodes with the same event set.
// Relations is only set for Merge.
type Resolution struct {
	Kind      ResolutionKind
	Relations []Fact
}

// Representative picks between two episodes mined for the same event set:
//  1. higher frequency wins
//  2. on a frequency tie, lower entropy wins
//  3. on a full tie, the relations of first whose reverse is not a relation
//     of second are merged into a new representative
func Representative(first, second Episode) Resolution {
	switch {
	case first.frequency > second.frequency:
		return Resolution{Kind: KeepFirst}
	case first.frequency < second.frequency:
		return Resolution{Kind: KeepSecond}
	case first.entropy < second.entropy:
		return Resolution{Kind: KeepFirst}
	case first.entropy > second.entropy:
		return Resolution{Kind: KeepSecond}
	}

	secondRel := second.RelationSet()
	var keep []Fact
	for _, rel := range first.Relations() {
		if _, ok := secondRel[rel.Reverse()]; !ok {
			keep = append(keep, rel)
		}
	}
	return Resolution{Kind: Merge, Relations: keep}
}

// Apply materialises the resolution for the given candidates.
func (r Resolution) Apply(first, second Episode) Episode {
	switch r.Kind {
	case KeepSecond:
		return second
	case Merge:
		facts := first.EventSet()
		for _, rel := range r.Relations {
			facts[rel] = struct{}{}
		}
		return newEpisodeUnchecked(first.frequency, first.entropy, facts)
	default:
		return first
	}
}

// FrequencyEntropyFilter drops weak episodes and keeps one representative
// per event set.
type FrequencyEntropyFilter struct {
	FrequencyThreshold int
	EntropyThreshold   float64
	Logger             *slog.Logger
}

func (p FrequencyEntropyFilter) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

// Filter returns a new grouping; the input is not modified. Size 1 classes are
// never part of the output.
func (p FrequencyEntropyFilter) Filter(raw EpisodesBySize) EpisodesBySize {
	out := make(EpisodesBySize, len(raw))

	for _, size := range raw.Sizes() {
		if size == 1 {
			continue
		}
		p.logger().Debug("postprocessing episodes", "nodes", size, "candidates", raw[size].Len())

		order := make([]string, 0)
		byEvents := make(map[string]Episode)

		for _, ep := range raw[size].Items() {
			if ep.frequency < p.FrequencyThreshold || ep.entropy < p.EntropyThreshold {
				continue
			}
			key := ep.EventsKey()
			prev, ok := byEvents[key]
			if !ok {
				order = append(order, key)
				byEvents[key] = ep
				continue
			}
			byEvents[key] = Representative(prev, ep).Apply(prev, ep)
		}

		set := NewEpisodeSet()
		for _, key := range order {
			set.Add(byEvents[key])
		}
		out[size] = set
	}
	return out
}
