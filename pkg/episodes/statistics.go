package episodes

import (
	"github.com/samber/lo"
)

// StreamStatistics summarises a windowed stream.
type StreamStatistics struct {
	Occurrences  int
	StreamLength int
	UniqueEvents int

	// LongestOccurrence is the position of the largest window, -1 when empty.
	LongestOccurrence int
	LongestSize       int

	// LongThreshold and LongOccurrences count windows of at least LongThreshold
	// distinct events.
	LongThreshold   int
	LongOccurrences int

	// DeclarationCounts and InvocationCounts give the number of windows each
	// event occurs in, split by the kind of the mapped event. Both are empty
	// when no mapping is supplied.
	DeclarationCounts map[EventID]int
	InvocationCounts  map[EventID]int
}

// ComputeStatistics summarises events and the windows segmented from them.
// mapping may be nil.
func ComputeStatistics(events []StreamEvent, occurrences []Occurrence, mapping []Event, longThreshold int) StreamStatistics {
	st := StreamStatistics{
		Occurrences:       len(occurrences),
		StreamLength:      len(events),
		UniqueEvents:      len(lo.UniqBy(events, func(e StreamEvent) EventID { return e.ID })),
		LongestOccurrence: -1,
		LongThreshold:     longThreshold,
		DeclarationCounts: make(map[EventID]int),
		InvocationCounts:  make(map[EventID]int),
	}

	for i, occ := range occurrences {
		if occ.Len() > st.LongestSize {
			st.LongestSize = occ.Len()
			st.LongestOccurrence = i
		}
		if longThreshold > 0 && occ.Len() >= longThreshold {
			st.LongOccurrences++
		}
		if mapping == nil {
			continue
		}
		for f := range occ.facts {
			id := f.ID()
			if int(id) >= len(mapping) {
				continue
			}
			if mapping[id].Kind == Invocation {
				st.InvocationCounts[id]++
			} else {
				st.DeclarationCounts[id]++
			}
		}
	}
	return st
}

// EnclosingMethodName returns the method of the first declaration event found
// in the window, or "" when the window has none.
func EnclosingMethodName(occ Occurrence, mapping []Event) string {
	for _, f := range occ.Facts() {
		id := int(f.ID())
		if id < len(mapping) && mapping[id].Kind == MethodDeclaration {
			return mapping[id].Method
		}
	}
	return ""
}
