package pipeline

import (
	"errors"
	"io/fs"
	"log/slog"
	"slices"

	"github.com/samber/lo"

	"github.com/jtomasevic/episodes/pkg/episode_io"
	"github.com/jtomasevic/episodes/pkg/episodes"
)

// QueryEvaluation is how the queries of one pattern at one removal
// percentage fare on the held-out windows of a fold.
type QueryEvaluation struct {
	PatternID   int
	PercRemoved float64
	Queries     int
	// Hits counts held-out windows containing the events of a query, summed
	// over the queries.
	Hits int
	// Completions counts the hits whose window also holds every event of the
	// pattern.
	Completions int
}

// Precision is Completions over Hits, 0 without hits.
func (e QueryEvaluation) Precision() float64 {
	if e.Hits == 0 {
		return 0
	}
	return float64(e.Completions) / float64(e.Hits)
}

// evaluate matches the queries of res against the validation stream of the
// fold. A fold without a validation stream is not evaluated.
func (r *Runner) evaluate(w *episodes.StreamWindower, layout episode_io.Layout, res *FoldResult, log *slog.Logger) error {
	events, err := episode_io.ReadStreamFile(layout.ValidationStreamPath(res.Fold))
	if errors.Is(err, fs.ErrNotExist) {
		log.Info("no validation stream, skipping evaluation")
		return nil
	}
	if err != nil {
		return err
	}
	index := episodes.NewOccurrenceIndex(w.Segment(events)...)

	targets := make(map[int]episodes.Episode)
	for _, results := range res.Report.BySize {
		for _, pr := range results {
			targets[pr.ID] = pr.Episode
		}
	}

	ids := lo.Keys(res.Queries)
	slices.Sort(ids)
	for _, id := range ids {
		res.Evaluation = append(res.Evaluation, evaluatePattern(index, id, targets[id], res.Queries[id])...)
	}

	r.observers.OnStage(res.Fold, StageEvaluated, len(res.Evaluation))
	log.Info("evaluated queries", "validation_windows", index.Len(), "rows", len(res.Evaluation))
	return nil
}

// evaluatePattern expects queries ordered by percentage, as the query
// generator returns them.
func evaluatePattern(index *episodes.OccurrenceIndex, id int, target episodes.Episode, queries []episodes.Query) []QueryEvaluation {
	var out []QueryEvaluation
	targetEvents := target.Events()
	for _, q := range queries {
		if len(out) == 0 || out[len(out)-1].PercRemoved != q.PercRemoved() {
			out = append(out, QueryEvaluation{PatternID: id, PercRemoved: q.PercRemoved()})
		}
		row := &out[len(out)-1]
		row.Queries++
		for _, pos := range index.Witnesses(q.Episode().Events()) {
			row.Hits++
			if occ, ok := index.Window(pos); ok && occ.ContainsAll(targetEvents) {
				row.Completions++
			}
		}
	}
	return out
}
