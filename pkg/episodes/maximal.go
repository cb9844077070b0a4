package episodes

// MaximalSelector keeps only the episodes that no surviving episode of the
// next size subsumes.
type MaximalSelector struct{}

// Subsumes reports whether larger subsumes smaller: the events of smaller are a
// strict subset of the events of larger and its relations are a subset of the
// relations of larger.
func Subsumes(larger, smaller Episode) bool {
	se, le := smaller.Events(), larger.EventSet()
	if len(se) >= len(le) || !isSubset(se, le) {
		return false
	}
	return isSubset(smaller.Relations(), larger.RelationSet())
}

// Select walks the size classes from the largest down. Every class is compared
// against the already finalized class of size k+1. Empty classes are kept so
// the output has the same keys as the input.
func (MaximalSelector) Select(in EpisodesBySize) EpisodesBySize {
	out := make(EpisodesBySize, len(in))
	sizes := in.Sizes()

	for i := len(sizes) - 1; i >= 0; i-- {
		size := sizes[i]
		larger := out[size+1]

		set := NewEpisodeSet()
		for _, ep := range in[size].Items() {
			if !subsumedByAny(ep, larger) {
				set.Add(ep)
			}
		}
		out[size] = set
	}
	return out
}

func subsumedByAny(ep Episode, larger *EpisodeSet) bool {
	for _, l := range larger.Items() {
		if Subsumes(l, ep) {
			return true
		}
	}
	return false
}
