package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jtomasevic/episodes/pkg/episode_io"
	"github.com/jtomasevic/episodes/pkg/episodes"
)

func newEncodeCmd() *cobra.Command {
	var (
		timeout float64
		delta   float64
	)

	cmd := &cobra.Command{
		Use:   "encode <events.json> <out-dir>",
		Short: "Encode usage events into a stream, mapping and methods file",
		Long: `Read a JSON list of usage events ({"kind": ..., "method": ...}) and write
the episode miner input: stream.txt, mapping.txt and methods.txt.

Examples:
  episodes encode usage.json data/events/TrainingData/fold0`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			events, err := episode_io.ReadEventsFile(args[0])
			if err != nil {
				return err
			}
			if events == nil {
				return fmt.Errorf("%s: no such file", args[0])
			}

			sc := cfg.StreamConfig()
			if cmd.Flags().Changed("timeout") {
				sc.Timeout = timeout
			}
			if cmd.Flags().Changed("delta") {
				sc.Delta = delta
			}

			s := episodes.NewEventStream(sc)
			for _, e := range events {
				s.AddEvent(e)
			}
			if err := episode_io.WriteEventStream(args[1], s); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "encoded %s events (%s distinct) into %s\n",
				humanize.Comma(int64(s.StreamLength())), humanize.Comma(int64(s.EventNumber())), args[1])
			return nil
		},
	}

	cmd.Flags().Float64Var(&timeout, "timeout", episodes.DefaultTimeout, "gap inserted before every declaration")
	cmd.Flags().Float64Var(&delta, "delta", episodes.DefaultDelta, "gap between consecutive events")
	return cmd
}
