// Package report renders validation results and stream statistics as plain
// text tables.
package report

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"

	"github.com/jtomasevic/episodes/pkg/episodes"
)

// Header identifies the run a report belongs to.
type Header struct {
	RunID string
	Fold  int
}

// WriteValidation writes one table per size class of r.
func WriteValidation(w io.Writer, h Header, r episodes.ValidationReport) error {
	total := lo.SumBy(lo.Values(r.BySize), func(rs []episodes.PatternResult) int { return len(rs) })
	if _, err := fmt.Fprintf(w, "run %s, fold %d: %s validated patterns\n", h.RunID, h.Fold, humanize.Comma(int64(total))); err != nil {
		return err
	}

	for _, size := range r.Sizes() {
		if _, err := fmt.Fprintf(w, "\n%d-node patterns (%s)\n", size, humanize.Comma(int64(len(r.BySize[size])))); err != nil {
			return err
		}
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSIZE\tFREQUENCY\tENTROPY\tOBSERVED\tMETHODS")
		for _, res := range r.BySize[size] {
			fmt.Fprintf(tw, "%d\t%d\t%s\t%.3f\t%s\t%s\n",
				res.ID,
				size,
				humanize.Comma(int64(res.Episode.Frequency())),
				res.Episode.Entropy(),
				humanize.Comma(int64(res.Observed)),
				methodList(res.Methods),
			)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func methodList(methods []episodes.Event) string {
	if len(methods) == 0 {
		return "-"
	}
	return strings.Join(lo.Map(methods, func(m episodes.Event, _ int) string { return m.Method }), "; ")
}

// WriteStatistics writes a summary of st. Per-event counts are listed most
// frequent first, at most top rows per kind (all when top <= 0).
func WriteStatistics(w io.Writer, st episodes.StreamStatistics, mapping []episodes.Event, top int) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "occurrences:\t%s\n", humanize.Comma(int64(st.Occurrences)))
	fmt.Fprintf(tw, "stream length:\t%s\n", humanize.Comma(int64(st.StreamLength)))
	fmt.Fprintf(tw, "unique events:\t%s\n", humanize.Comma(int64(st.UniqueEvents)))
	if st.LongestOccurrence >= 0 {
		fmt.Fprintf(tw, "longest occurrence:\t#%d (%d events)\n", st.LongestOccurrence, st.LongestSize)
	} else {
		fmt.Fprintln(tw, "longest occurrence:\t-")
	}
	fmt.Fprintf(tw, "occurrences >= %d events:\t%s\n", st.LongThreshold, humanize.Comma(int64(st.LongOccurrences)))
	if err := tw.Flush(); err != nil {
		return err
	}

	if err := writeCounts(w, "declarations", st.DeclarationCounts, mapping, top); err != nil {
		return err
	}
	return writeCounts(w, "invocations", st.InvocationCounts, mapping, top)
}

func writeCounts(w io.Writer, title string, counts map[episodes.EventID]int, mapping []episodes.Event, top int) error {
	if len(counts) == 0 {
		return nil
	}
	ids := lo.Keys(counts)
	slices.SortFunc(ids, func(a, b episodes.EventID) int {
		if counts[a] != counts[b] {
			return counts[b] - counts[a]
		}
		return int(a) - int(b)
	})
	if top > 0 && len(ids) > top {
		ids = ids[:top]
	}

	if _, err := fmt.Fprintf(w, "\n%s\n", title); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tWINDOWS\tMETHOD")
	for _, id := range ids {
		method := ""
		if int(id) < len(mapping) {
			method = mapping[id].Method
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", id, humanize.Comma(int64(counts[id])), method)
	}
	return tw.Flush()
}
