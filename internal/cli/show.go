package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jtomasevic/episodes/pkg/episode_io"
	"github.com/jtomasevic/episodes/pkg/episodes"
)

// numberedPatterns lists the patterns of m in the order the validator numbers
// them: by size, from two events up.
func numberedPatterns(m episodes.EpisodesBySize) []episodes.Episode {
	var out []episodes.Episode
	for _, size := range m.Sizes() {
		if size < 2 {
			continue
		}
		out = append(out, m[size].Items()...)
	}
	return out
}

func readPatternsFile(path string) (string, []episodes.Episode, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()
	runID, m, err := episode_io.ReadPatterns(f)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", path, err)
	}
	return runID, numberedPatterns(m), nil
}

func pickPattern(patterns []episodes.Episode, id int) (episodes.Episode, error) {
	if id < 0 || id >= len(patterns) {
		return episodes.Episode{}, fmt.Errorf("%w: pattern %d not in [0,%d)", episodes.ErrPrecondition, id, len(patterns))
	}
	return patterns[id], nil
}

func printPattern(w io.Writer, id int, ep episodes.Episode, mapping []episodes.Event) error {
	fmt.Fprintf(w, "pattern %d (fingerprint %016x, frequency %d, entropy %.3f)\n",
		id, episodes.Fingerprint(ep), ep.Frequency(), ep.Entropy())
	return episodes.FprintEpisode(w, ep, mapping)
}

func newShowCmd() *cobra.Command {
	var (
		mappingPath string
		patternID   int
		fingerprint string
	)

	cmd := &cobra.Command{
		Use:   "show [patterns.json]",
		Short: "Print patterns as precedence trees",
		Long: `Print the patterns of a patterns.json file written by the patterns command,
or look a single pattern up in the pattern store by its fingerprint.

Examples:
  episodes show data/patterns/fold0/freq5/entropy0.5/patterns.json
  episodes show patterns.json --pattern 3 --mapping mapping.txt
  episodes show --fingerprint 9c1e0a44f2b3d871`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mapping, err := episode_io.ReadEventsFile(mappingPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if fingerprint != "" {
				fp, err := strconv.ParseUint(fingerprint, 16, 64)
				if err != nil {
					return fmt.Errorf("%w: bad fingerprint %q", episodes.ErrPrecondition, fingerprint)
				}
				st, err := openStore()
				if err != nil {
					return err
				}
				ep, key, err := st.FindByFingerprint(fp)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "stored under %s\n", key)
				return printPattern(out, 0, ep, mapping)
			}

			if len(args) == 0 {
				return fmt.Errorf("%w: a patterns file or --fingerprint is required", episodes.ErrPrecondition)
			}
			runID, patterns, err := readPatternsFile(args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("pattern") {
				ep, err := pickPattern(patterns, patternID)
				if err != nil {
					return err
				}
				return printPattern(out, patternID, ep, mapping)
			}

			fmt.Fprintf(out, "run %s: %d patterns\n", runID, len(patterns))
			for id, ep := range patterns {
				fmt.Fprintln(out)
				if err := printPattern(out, id, ep, mapping); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&mappingPath, "mapping", "m", "", "event mapping file for method labels")
	cmd.Flags().IntVar(&patternID, "pattern", 0, "only print this pattern id")
	cmd.Flags().StringVar(&fingerprint, "fingerprint", "", "look up a stored pattern by hex fingerprint")
	return cmd
}
