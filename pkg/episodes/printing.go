package episodes

import (
	"fmt"
	"io"
	"os"
)

// PrintEpisode writes the precedence levels of e to stdout.
func PrintEpisode(e Episode, mapping []Event) {
	_ = FprintEpisode(os.Stdout, e, mapping)
}

// FprintEpisode writes e level by level: level 0 holds the events without
// predecessors, every other event sits one level below its deepest
// predecessor. mapping is optional and only used for labels.
func FprintEpisode(w io.Writer, e Episode, mapping []Event) error {
	order, err := TopologicalEvents(e)
	if err != nil {
		return err
	}

	preds := make(map[Fact][]Fact)
	for _, rel := range e.Relations() {
		first, second := rel.Endpoints()
		preds[second] = append(preds[second], first)
	}

	levels := make(map[Fact]int, len(order))
	grouped := make(map[int][]Fact)
	maxLevel := 0
	for _, ev := range order {
		lvl := 0
		for _, p := range preds[ev] {
			if levels[p]+1 > lvl {
				lvl = levels[p] + 1
			}
		}
		levels[ev] = lvl
		grouped[lvl] = append(grouped[lvl], ev)
		if lvl > maxLevel {
			maxLevel = lvl
		}
	}

	if _, err := fmt.Fprintf(w, "%s\n", e); err != nil {
		return err
	}
	for lvl := 0; lvl <= maxLevel && len(order) > 0; lvl++ {
		fmt.Fprintf(w, "\n[Level %d]\n", lvl)

		events := grouped[lvl]
		for i, ev := range events {
			prefix := "├──"
			if i == len(events)-1 {
				prefix = "└──"
			}
			fmt.Fprintf(w, "%s %s\n", prefix, factLabel(ev, mapping))
			for _, p := range preds[ev] {
				fmt.Fprintf(w, "    ↳ after %s\n", factLabel(p, mapping))
			}
		}
	}
	return nil
}

func factLabel(f Fact, mapping []Event) string {
	id := int(f.ID())
	if id >= 0 && id < len(mapping) {
		return fmt.Sprintf("%d %s", id, mapping[id])
	}
	return f.String()
}
