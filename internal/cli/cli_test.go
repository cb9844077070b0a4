package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jtomasevic/episodes/pkg/episode_io"
	"github.com/jtomasevic/episodes/pkg/episodes"
)

const cliEpisodes = `2-node frequent episodes = 1
2 3 . : 6 : 1 : 1.2>3,
4-node frequent episodes = 1
1 2 3 4 . : 6 : 0.8 : 5.1>2,1>3,1>4,2>3,3>4,
5-node frequent episodes = 0
`

func usageEvents(repeat int) []episodes.Event {
	var out []episodes.Event
	for i := 0; i < repeat; i++ {
		out = append(out,
			episodes.NewDeclaration("A.run()"),
			episodes.NewInvocation("B.open()"),
			episodes.NewInvocation("B.read()"),
			episodes.NewInvocation("B.close()"),
		)
	}
	return out
}

// setupEnv points the configuration at a fresh events directory holding
// fold 0 and returns it.
func setupEnv(t *testing.T) string {
	t.Helper()
	work := t.TempDir()
	t.Chdir(work)

	events := filepath.Join(work, "events")
	t.Setenv("EPISODES_EVENTS_DIR", events)
	t.Setenv("EPISODES_OUTPUT_DIR", filepath.Join(work, "patterns"))
	t.Setenv("EPISODES_STORE_DIR", filepath.Join(work, "store"))
	t.Setenv("EPISODES_LOG_FILE", filepath.Join(work, "episodes.log"))
	return events
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeUsage(t *testing.T, dir string, events []episodes.Event) string {
	t.Helper()
	path := filepath.Join(dir, "usage.json")
	var buf bytes.Buffer
	require.NoError(t, episode_io.WriteEvents(&buf, events))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

// encodeFold writes fold 0 through the encode command.
func encodeFold(t *testing.T, events string) {
	t.Helper()
	layout := episode_io.Layout{EventsDir: events}
	usage := writeUsage(t, t.TempDir(), usageEvents(6))

	out, err := run(t, "encode", usage, filepath.Dir(layout.StreamPath(0)))
	require.NoError(t, err)
	require.Contains(t, out, "encoded 24 events (5 distinct)")
	require.NoError(t, os.WriteFile(layout.EpisodesPath(0, episode_io.Mix), []byte(cliEpisodes), 0o644))
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	require.Equal(t, fmt.Sprintf("episodes v%s\n", Version), out)
}

func TestEncode(t *testing.T) {
	events := setupEnv(t)
	encodeFold(t, events)

	layout := episode_io.Layout{EventsDir: events}
	stream, err := episode_io.ReadStreamFile(layout.StreamPath(0))
	require.NoError(t, err)
	require.Len(t, stream, 24)

	methods, err := episode_io.ReadEventsFile(layout.MethodsPath(0))
	require.NoError(t, err)
	require.Len(t, methods, 6)

	_, err = run(t, "encode", filepath.Join(t.TempDir(), "missing.json"), t.TempDir())
	require.Error(t, err)
}

func TestPatternsShowQueries(t *testing.T) {
	events := setupEnv(t)
	encodeFold(t, events)

	out, err := run(t, "patterns", "--no-store", "--fold", "0")
	require.NoError(t, err)
	require.Contains(t, out, "fold 0: 2 patterns, 6 queries")

	patternsFile := filepath.Join(os.Getenv("EPISODES_OUTPUT_DIR"), "fold0", "freq5", "entropy0.5", "patterns.json")
	require.FileExists(t, patternsFile)

	mapping := episode_io.Layout{EventsDir: events}.MappingPath(0)
	out, err = run(t, "show", patternsFile, "--pattern", "1", "--mapping", mapping)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "pattern 1 (fingerprint "))
	require.Contains(t, out, "B.close()")

	out, err = run(t, "show", patternsFile)
	require.NoError(t, err)
	require.Contains(t, out, ": 2 patterns")

	_, err = run(t, "show", patternsFile, "--pattern", "9")
	require.ErrorIs(t, err, episodes.ErrPrecondition)

	out, err = run(t, "queries", patternsFile, "--pattern", "1", "--perc", "0.4")
	require.NoError(t, err)
	require.Contains(t, out, "removed 40%: 3 queries")

	out, err = run(t, "queries", patternsFile, "--pattern", "1")
	require.NoError(t, err)
	require.Contains(t, out, "removed 10%")
	require.Contains(t, out, "6 queries")

	_, err = run(t, "queries", patternsFile, "--pattern", "0")
	require.ErrorIs(t, err, episodes.ErrPrecondition)
}

func TestPatterns_StoreAndFingerprint(t *testing.T) {
	events := setupEnv(t)
	encodeFold(t, events)

	out, err := run(t, "patterns")
	require.NoError(t, err)
	require.NotContains(t, out, "stored patterns")

	out, err = run(t, "patterns")
	require.NoError(t, err)
	require.Contains(t, out, "(stored patterns)")

	ep, err := episodes.NewEpisode(6, 0.8, episodes.MustParseFacts("1", "2", "3", "4", "1>2", "1>3", "1>4", "2>3", "3>4")...)
	require.NoError(t, err)
	out, err = run(t, "show", "--fingerprint", fmt.Sprintf("%x", episodes.Fingerprint(ep)))
	require.NoError(t, err)
	require.Contains(t, out, "stored under fold0/freq5/entropy0.5/mix/")
}

func TestPatterns_BadKind(t *testing.T) {
	setupEnv(t)
	_, err := run(t, "patterns", "--kind", "tree")
	require.ErrorIs(t, err, episodes.ErrPrecondition)
}

func TestStats(t *testing.T) {
	events := setupEnv(t)
	encodeFold(t, events)

	out, err := run(t, "stats", "--fold", "0", "--top", "2")
	require.NoError(t, err)
	require.Contains(t, out, "occurrences:")
	require.Contains(t, out, "A.run()")

	_, err = run(t, "stats", "--fold", "0", "--validation")
	require.ErrorIs(t, err, os.ErrNotExist)
}
