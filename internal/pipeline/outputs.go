package pipeline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"

	"github.com/jtomasevic/episodes/internal/report"
	"github.com/jtomasevic/episodes/pkg/episode_io"
	"github.com/jtomasevic/episodes/pkg/episodes"
)

const topEvents = 20

// OutputDir is where the outputs of a fold land:
//
//	<output>/fold<N>/freq<F>/entropy<E>/
func (r *Runner) OutputDir(fold int) string {
	return filepath.Join(r.cfg.OutputDir,
		fmt.Sprintf("fold%d", fold),
		fmt.Sprintf("freq%d", r.cfg.FrequencyThreshold),
		"entropy"+strconv.FormatFloat(r.cfg.EntropyThreshold, 'f', -1, 64))
}

func (r *Runner) writeOutputs(res *FoldResult, mapping []episodes.Event) error {
	dir := r.OutputDir(res.Fold)
	if err := os.MkdirAll(filepath.Join(dir, "graphs"), 0o755); err != nil {
		return err
	}

	files := map[string]func(io.Writer) error{
		"patterns.json": func(w io.Writer) error {
			return episode_io.WritePatterns(w, res.RunID, res.Maximal)
		},
		"episodes.txt": func(w io.Writer) error {
			return episode_io.WriteEpisodes(w, res.Maximal)
		},
		"patternsValidation.txt": func(w io.Writer) error {
			return report.WriteValidation(w, report.Header{RunID: res.RunID, Fold: res.Fold}, res.Report)
		},
		"statistics.txt": func(w io.Writer) error {
			return report.WriteStatistics(w, res.Statistics, mapping, topEvents)
		},
		"evaluation.txt": func(w io.Writer) error {
			return writeEvaluation(w, res.Evaluation)
		},
	}
	for name, write := range files {
		if err := writeFile(filepath.Join(dir, name), write); err != nil {
			return err
		}
	}

	// Graphs show the transitive reduction of each pattern.
	reducer := episodes.TransitiveReducer{}
	for _, size := range res.Report.Sizes() {
		for _, pr := range res.Report.BySize[size] {
			reduced, err := reducer.Reduce(pr.Episode)
			if err != nil {
				return fmt.Errorf("pattern %d: %w", pr.ID, err)
			}
			name := fmt.Sprintf("pattern%d", pr.ID)
			err = writeFile(filepath.Join(dir, "graphs", name+".dot"), func(w io.Writer) error {
				return episode_io.WriteDOT(w, name, reduced, mapping)
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}

func writeEvaluation(w io.Writer, rows []QueryEvaluation) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PATTERN\tREMOVED\tQUERIES\tHITS\tCOMPLETIONS\tPRECISION")
	for _, row := range rows {
		fmt.Fprintf(tw, "%d\t%.1f\t%d\t%d\t%d\t%.3f\n",
			row.PatternID, row.PercRemoved, row.Queries, row.Hits, row.Completions, row.Precision())
	}
	return tw.Flush()
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
