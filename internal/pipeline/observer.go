package pipeline

import (
	"log/slog"

	"github.com/dustin/go-humanize"
)

// Stage names a step of a fold run reported to observers.
type Stage string

const (
	StageWindowed      Stage = "windowed"
	StagePostprocessed Stage = "postprocessed"
	StageMaximal       Stage = "maximal"
	StageValidated     Stage = "validated"
	StageQueries       Stage = "queries"
	StageEvaluated     Stage = "evaluated"
)

// FoldObserver is notified as a fold moves through the pipeline. Folds run
// concurrently, so implementations must be safe for concurrent use.
type FoldObserver interface {
	OnStage(fold int, stage Stage, count int)
	OnFoldDone(res *FoldResult)
}

type MultiObserver []FoldObserver

func (m MultiObserver) OnStage(fold int, stage Stage, count int) {
	for _, o := range m {
		if o != nil {
			o.OnStage(fold, stage, count)
		}
	}
}

func (m MultiObserver) OnFoldDone(res *FoldResult) {
	for _, o := range m {
		if o != nil {
			o.OnFoldDone(res)
		}
	}
}

// LogObserver writes every stage to a logger.
type LogObserver struct {
	Logger *slog.Logger
}

func (o LogObserver) OnStage(fold int, stage Stage, count int) {
	o.Logger.Info("stage done", "fold", fold, "stage", string(stage), "count", humanize.Comma(int64(count)))
}

func (o LogObserver) OnFoldDone(res *FoldResult) {
	o.Logger.Info("fold done",
		"fold", res.Fold,
		"run_id", res.RunID,
		"patterns", res.Maximal.Total(),
		"queries", res.QueryCount(),
		"reused", res.Reused,
	)
}
