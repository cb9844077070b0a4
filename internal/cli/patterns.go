package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jtomasevic/episodes/internal/pipeline"
	"github.com/jtomasevic/episodes/internal/store"
	"github.com/jtomasevic/episodes/pkg/episode_io"
)

func newPatternsCmd() *cobra.Command {
	var (
		folds       []int
		frequency   int
		entropy     float64
		kind        string
		parallelism int
		noStore     bool
	)

	cmd := &cobra.Command{
		Use:   "patterns",
		Short: "Run the pattern pipeline on training folds",
		Long: `Postprocess the mined episodes of every fold, keep the maximal patterns,
validate them against the training stream, generate ablation queries and
evaluate them on the validation stream when one exists.

Examples:
  episodes patterns
  episodes patterns --fold 0,1,2 --frequency 10 --entropy 0.7
  episodes patterns --kind sequential --no-store`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("fold") {
				cfg.Folds = folds
			}
			if flags.Changed("frequency") {
				cfg.FrequencyThreshold = frequency
			}
			if flags.Changed("entropy") {
				cfg.EntropyThreshold = entropy
			}
			if flags.Changed("parallelism") {
				cfg.Parallelism = parallelism
			}
			if flags.Changed("kind") {
				k, err := episode_io.ParseEpisodeKind(kind)
				if err != nil {
					return err
				}
				cfg.EpisodeKind = k
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			var st *store.PatternStore
			if !noStore {
				var err error
				if st, err = openStore(); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runner := pipeline.NewRunner(cfg, st, logger, pipeline.LogObserver{Logger: logger})
			logger.Info("starting run", "run_id", runner.RunID(), "config", cfg.String())

			results, err := runner.RunFolds(ctx, cfg.Folds)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, res := range results {
				fmt.Fprintf(out, "fold %d: %s patterns, %s queries",
					res.Fold, humanize.Comma(int64(res.Maximal.Total())), humanize.Comma(int64(res.QueryCount())))
				if res.Reused {
					fmt.Fprint(out, " (stored patterns)")
				}
				if cfg.OutputDir != "" {
					fmt.Fprintf(out, " -> %s", runner.OutputDir(res.Fold))
				}
				fmt.Fprintln(out)
			}
			fmt.Fprintf(out, "run %s done\n", runner.RunID())
			return nil
		},
	}

	cmd.Flags().IntSliceVarP(&folds, "fold", "f", nil, "folds to process (default from config)")
	cmd.Flags().IntVar(&frequency, "frequency", 0, "frequency threshold")
	cmd.Flags().Float64Var(&entropy, "entropy", 0, "entropy threshold")
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "episode kind: sequential, parallel or mix")
	cmd.Flags().IntVarP(&parallelism, "parallelism", "p", 0, "folds processed at once")
	cmd.Flags().BoolVar(&noStore, "no-store", false, "always recompute patterns, do not use the pattern store")
	return cmd
}
