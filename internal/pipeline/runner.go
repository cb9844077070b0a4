// Package pipeline runs the mining evaluation of one or more folds: windowing,
// postprocessing, maximal selection, validation, query ablation and the
// held-out evaluation of the queries.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jtomasevic/episodes/internal/config"
	"github.com/jtomasevic/episodes/internal/store"
	"github.com/jtomasevic/episodes/pkg/episode_io"
	"github.com/jtomasevic/episodes/pkg/episodes"
)

// FoldResult is everything a fold run produced.
type FoldResult struct {
	Fold  int
	RunID string

	Statistics    episodes.StreamStatistics
	Postprocessed episodes.EpisodesBySize
	Maximal       episodes.EpisodesBySize
	Report        episodes.ValidationReport

	// Queries holds the ablation queries per pattern id. Patterns that cannot
	// be ablated have no entry.
	Queries    map[int][]episodes.Query
	Evaluation []QueryEvaluation

	// Reused is set when the patterns came from the store.
	Reused bool
}

func (r *FoldResult) QueryCount() int {
	n := 0
	for _, qs := range r.Queries {
		n += len(qs)
	}
	return n
}

// Runner executes folds with a shared configuration. A Runner stamps every
// result with the same run id.
type Runner struct {
	cfg       config.Config
	store     *store.PatternStore
	observers MultiObserver
	log       *slog.Logger
	runID     string

	// The subset generator is shared by all folds and is not safe for
	// concurrent use; subsetsMu serialises every use.
	subsetsMu sync.Mutex
	queries   *episodes.QueryGenerator
}

// NewRunner creates a runner. st may be nil, in which case patterns are always
// recomputed from the episode files.
func NewRunner(cfg config.Config, st *store.PatternStore, log *slog.Logger, observers ...FoldObserver) *Runner {
	if log == nil {
		log = slog.Default()
	}
	r := &Runner{
		cfg:       cfg,
		store:     st,
		observers: observers,
		log:       log,
		runID:     uuid.NewString(),
	}
	r.queries = episodes.NewQueryGenerator(episodes.NewSubsetGenerator(), &r.subsetsMu)
	return r
}

func (r *Runner) RunID() string { return r.runID }

// RunFolds runs every fold, at most cfg.Parallelism at a time. The first
// failing fold cancels the others.
func (r *Runner) RunFolds(ctx context.Context, folds []int) ([]*FoldResult, error) {
	results := make([]*FoldResult, len(folds))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Parallelism)
	for i, fold := range folds {
		g.Go(func() error {
			res, err := r.RunFold(ctx, fold)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// RunFold runs the whole pipeline on one fold.
func (r *Runner) RunFold(ctx context.Context, fold int) (*FoldResult, error) {
	log := r.log.With("run_id", r.runID, "fold", fold)
	layout := episode_io.Layout{EventsDir: r.cfg.EventsDir}

	events, err := episode_io.ReadStreamFile(layout.StreamPath(fold))
	if err != nil {
		return nil, fmt.Errorf("fold %d: %w", fold, err)
	}
	mapping, err := episode_io.ReadEventsFile(layout.MappingPath(fold))
	if err != nil {
		return nil, fmt.Errorf("fold %d: %w", fold, err)
	}
	enclosing, err := episode_io.ReadEventsFile(layout.MethodsPath(fold))
	if err != nil {
		return nil, fmt.Errorf("fold %d: %w", fold, err)
	}
	log.Info("read training data", "stream", len(events), "methods", len(enclosing))

	windower, err := episodes.NewStreamWindower(r.cfg.WindowConfig())
	if err != nil {
		return nil, err
	}
	occurrences := windower.Segment(events)
	index := episodes.NewOccurrenceIndex(occurrences...)
	r.observers.OnStage(fold, StageWindowed, len(occurrences))

	res := &FoldResult{
		Fold:       fold,
		RunID:      r.runID,
		Statistics: episodes.ComputeStatistics(events, occurrences, mapping, r.cfg.LongMethodThreshold),
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.patterns(fold, layout, res, log); err != nil {
		return nil, fmt.Errorf("fold %d: %w", fold, err)
	}

	res.Report, err = episodes.PatternValidator{Logger: log}.Validate(res.Maximal, index, enclosing)
	if err != nil {
		return nil, fmt.Errorf("fold %d: %w", fold, err)
	}
	r.observers.OnStage(fold, StageValidated, res.Maximal.Total())
	log.Info("all patterns are identified in the training data")

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.generateQueries(res, log); err != nil {
		return nil, fmt.Errorf("fold %d: %w", fold, err)
	}
	r.observers.OnStage(fold, StageQueries, res.QueryCount())

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.evaluate(windower, layout, res, log); err != nil {
		return nil, fmt.Errorf("fold %d: %w", fold, err)
	}

	if r.cfg.OutputDir != "" {
		if err := r.writeOutputs(res, mapping); err != nil {
			return nil, fmt.Errorf("fold %d: %w", fold, err)
		}
	}

	r.observers.OnFoldDone(res)
	return res, nil
}

func (r *Runner) patternKey(fold int, stage store.Stage) store.PatternKey {
	return store.PatternKey{
		Fold:      fold,
		Frequency: r.cfg.FrequencyThreshold,
		Entropy:   r.cfg.EntropyThreshold,
		Kind:      r.cfg.EpisodeKind,
		Stage:     stage,
	}
}

// patterns fills the postprocessed and maximal patterns of res, from the
// store when both are present there.
func (r *Runner) patterns(fold int, layout episode_io.Layout, res *FoldResult, log *slog.Logger) error {
	if r.store != nil {
		post, errPost := r.store.Get(r.patternKey(fold, store.StagePostprocessed))
		maximal, errMax := r.store.Get(r.patternKey(fold, store.StageMaximal))
		switch {
		case errPost == nil && errMax == nil:
			res.Postprocessed = post.BySize()
			res.Maximal = maximal.BySize()
			res.Reused = true
			log.Info("reusing stored patterns", "stored_run_id", maximal.RunID, "patterns", res.Maximal.Total())
			r.observers.OnStage(fold, StagePostprocessed, res.Postprocessed.Total())
			r.observers.OnStage(fold, StageMaximal, res.Maximal.Total())
			return nil
		case errPost != nil && !errors.Is(errPost, store.ErrNotFound):
			return errPost
		case errMax != nil && !errors.Is(errMax, store.ErrNotFound):
			return errMax
		}
	}

	raw, err := episode_io.ReadEpisodesFile(layout.EpisodesPath(fold, r.cfg.EpisodeKind))
	if err != nil {
		return err
	}
	filter := episodes.FrequencyEntropyFilter{
		FrequencyThreshold: r.cfg.FrequencyThreshold,
		EntropyThreshold:   r.cfg.EntropyThreshold,
		Logger:             log,
	}
	res.Postprocessed = filter.Filter(raw)
	r.observers.OnStage(fold, StagePostprocessed, res.Postprocessed.Total())

	res.Maximal = episodes.MaximalSelector{}.Select(res.Postprocessed)
	r.observers.OnStage(fold, StageMaximal, res.Maximal.Total())

	if r.store == nil {
		return nil
	}
	if err := r.store.Put(r.patternKey(fold, store.StagePostprocessed), r.runID, res.Postprocessed); err != nil {
		return err
	}
	return r.store.Put(r.patternKey(fold, store.StageMaximal), r.runID, res.Maximal)
}

// generateQueries ablates every validated pattern. Patterns that are too
// small or have no single declaration are skipped.
func (r *Runner) generateQueries(res *FoldResult, log *slog.Logger) error {
	res.Queries = make(map[int][]episodes.Query)
	for _, size := range res.Report.Sizes() {
		for _, pr := range res.Report.BySize[size] {
			qs, err := r.queries.Queries(pr.Episode)
			if errors.Is(err, episodes.ErrPrecondition) {
				log.Debug("pattern not ablated", "pattern", pr.ID, "reason", err.Error())
				continue
			}
			if err != nil {
				return err
			}
			res.Queries[pr.ID] = qs
		}
	}
	log.Info("generated queries", "patterns", len(res.Queries), "queries", res.QueryCount())
	return nil
}
