package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jtomasevic/episodes/pkg/episode_io"
	"github.com/jtomasevic/episodes/pkg/episodes"
)

func newQueriesCmd() *cobra.Command {
	var (
		mappingPath string
		patternID   int
		perc        float64
	)

	cmd := &cobra.Command{
		Use:   "queries <patterns.json>",
		Short: "Generate ablation queries for a pattern",
		Long: `Remove a share of the invocations of a pattern and print the resulting
queries. Without --perc the 10% to 90% grid is used.

Examples:
  episodes queries patterns.json --pattern 2
  episodes queries patterns.json --pattern 2 --perc 0.5 --mapping mapping.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, patterns, err := readPatternsFile(args[0])
			if err != nil {
				return err
			}
			target, err := pickPattern(patterns, patternID)
			if err != nil {
				return err
			}
			mapping, err := episode_io.ReadEventsFile(mappingPath)
			if err != nil {
				return err
			}

			gen := episodes.NewQueryGenerator(nil, nil)
			out := cmd.OutOrStdout()

			if cmd.Flags().Changed("perc") {
				set, err := gen.ForPercentage(target, perc)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "removed %.0f%%: %d queries\n", perc*100, set.Len())
				for _, q := range set.Items() {
					if err := episodes.FprintEpisode(out, q, mapping); err != nil {
						return err
					}
				}
				return nil
			}

			queries, err := gen.Queries(target)
			if err != nil {
				return err
			}
			last := -1.0
			for _, q := range queries {
				if q.PercRemoved() != last {
					last = q.PercRemoved()
					fmt.Fprintf(out, "removed %.0f%%\n", last*100)
				}
				if err := episodes.FprintEpisode(out, q.Episode(), mapping); err != nil {
					return err
				}
			}
			fmt.Fprintf(out, "%d queries, %d subsets generated\n", len(queries), gen.Subsets.Generated())
			return nil
		},
	}

	cmd.Flags().StringVarP(&mappingPath, "mapping", "m", "", "event mapping file for method labels")
	cmd.Flags().IntVar(&patternID, "pattern", 0, "pattern id to ablate")
	cmd.Flags().Float64Var(&perc, "perc", 0, "single removal percentage in [0,1]")
	return cmd
}
