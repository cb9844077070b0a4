package cli

import (
	"github.com/spf13/cobra"

	"github.com/jtomasevic/episodes/internal/report"
	"github.com/jtomasevic/episodes/pkg/episode_io"
	"github.com/jtomasevic/episodes/pkg/episodes"
)

func newStatsCmd() *cobra.Command {
	var (
		fold       int
		validation bool
		top        int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print occurrence statistics of a fold stream",
		Long: `Window the stream of a fold and print the number of occurrences, the
longest occurrence and how many windows every event occurs in.

Examples:
  episodes stats --fold 0
  episodes stats --fold 1 --validation --top 50`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			layout := episode_io.Layout{EventsDir: cfg.EventsDir}
			path := layout.StreamPath(fold)
			if validation {
				path = layout.ValidationStreamPath(fold)
			}
			events, err := episode_io.ReadStreamFile(path)
			if err != nil {
				return err
			}
			mapping, err := episode_io.ReadEventsFile(layout.MappingPath(fold))
			if err != nil {
				return err
			}

			w, err := episodes.NewStreamWindower(cfg.WindowConfig())
			if err != nil {
				return err
			}
			occurrences := w.Segment(events)
			st := episodes.ComputeStatistics(events, occurrences, mapping, cfg.LongMethodThreshold)
			logger.Debug("computed statistics", "fold", fold, "occurrences", st.Occurrences)
			return report.WriteStatistics(cmd.OutOrStdout(), st, mapping, top)
		},
	}

	cmd.Flags().IntVarP(&fold, "fold", "f", 0, "fold number")
	cmd.Flags().BoolVar(&validation, "validation", false, "use the validation stream of the fold")
	cmd.Flags().IntVar(&top, "top", 20, "events listed per kind, 0 for all")
	return cmd
}
