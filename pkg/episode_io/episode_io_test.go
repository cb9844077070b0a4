package episode_io

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jtomasevic/episodes/pkg/episodes"
)

func mustEpisode(t *testing.T, freq int, entropy float64, facts ...string) episodes.Episode {
	t.Helper()
	ep, err := episodes.NewEpisode(freq, entropy, episodes.MustParseFacts(facts...)...)
	require.NoError(t, err)
	return ep
}

func TestReadStream(t *testing.T) {
	events, err := ReadStream(strings.NewReader("1,0.500\n2,0.501\n\n3,1.002\n"))
	require.NoError(t, err)
	require.Equal(t, []episodes.StreamEvent{
		{ID: 1, Timestamp: 0.5},
		{ID: 2, Timestamp: 0.501},
		{ID: 3, Timestamp: 1.002},
	}, events)
}

func TestReadStream_MalformedLineNumber(t *testing.T) {
	_, err := ReadStream(strings.NewReader("1,0.500\n2;0.501\n"))
	require.ErrorIs(t, err, episodes.ErrMalformedInput)
	require.Contains(t, err.Error(), "line 2")

	_, err = ReadStream(strings.NewReader("x,0.1\n"))
	require.ErrorIs(t, err, episodes.ErrMalformedInput)
}

func TestWriteStream_MatchesEncoder(t *testing.T) {
	s := episodes.NewEventStream(episodes.DefaultStreamConfig())
	s.AddEvent(episodes.NewDeclaration("m0"))
	s.AddEvent(episodes.NewInvocation("m1"))
	s.AddEvent(episodes.NewDeclaration("m2"))

	events, err := ReadStream(strings.NewReader(s.Stream()))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteStream(&buf, events))
	require.Equal(t, s.Stream(), buf.String())
}

const rawEpisodes = `1-node frequent episodes = 2
1 . : 10 : 1 :
2 . : 8 : 1 :
2-node frequent episodes = 2
1 2 . : 5 : 0.75 : 1.1>2,
1 3 . : 4 : 0.5 : 0.
3-node frequent episodes = 1
1 2 3 . : 3 : 0.6 : 2.1>2,1>3,
4-node frequent episodes = 0
9 9 9 9 : garbage
`

func TestReadEpisodes(t *testing.T) {
	m, err := ReadEpisodes(strings.NewReader(rawEpisodes))
	require.NoError(t, err)

	require.Equal(t, []int{1, 2, 3}, m.Sizes())
	require.Equal(t, 2, m[1].Len())
	require.True(t, m[2].Contains(mustEpisode(t, 5, 0.75, "1", "2", "1>2")))
	require.True(t, m[2].Contains(mustEpisode(t, 4, 0.5, "1", "3")))
	require.True(t, m[3].Contains(mustEpisode(t, 3, 0.6, "1", "2", "3", "1>2", "1>3")))
}

func TestReadEpisodes_Malformed(t *testing.T) {
	cases := map[string]string{
		"relation count":   "2-node frequent episodes = 1\n1 2 : 5 : 0.5 : 2.1>2,\n",
		"event count":      "2-node frequent episodes = 1\n1 2 3 : 5 : 0.5 : 0.\n",
		"missing field":    "2-node frequent episodes = 1\n1 2 : 5 : 0.5\n",
		"bad frequency":    "2-node frequent episodes = 1\n1 2 : x : 0.5 : 0.\n",
		"bad header":       "two-node frequent episodes = 1\n",
		"no header":        "1 2 : 5 : 0.5 : 0.\n",
		"unknown endpoint": "2-node frequent episodes = 1\n1 2 : 5 : 0.5 : 1.1>3,\n",
		"repeated event":   "2-node frequent episodes = 1\n1 1 : 3 : 0.5 : 0.\n",
	}
	for name, input := range cases {
		_, err := ReadEpisodes(strings.NewReader(input))
		require.Error(t, err, name)
	}

	_, err := ReadEpisodes(strings.NewReader(cases["relation count"]))
	require.ErrorIs(t, err, episodes.ErrMalformedInput)
	require.Contains(t, err.Error(), "line 2")

	_, err = ReadEpisodes(strings.NewReader(cases["unknown endpoint"]))
	require.ErrorIs(t, err, episodes.ErrInvalidEpisode)
}

func TestWriteEpisodes_RoundTrip(t *testing.T) {
	in := make(episodes.EpisodesBySize)
	in.Add(mustEpisode(t, 5, 0.75, "1", "2", "1>2"))
	in.Add(mustEpisode(t, 4, 0.5, "1", "3"))
	in.Add(mustEpisode(t, 3, 0.6, "1", "2", "3", "1>2", "1>3"))

	var buf bytes.Buffer
	require.NoError(t, WriteEpisodes(&buf, in))
	require.Contains(t, buf.String(), "1 2 : 5 : 0.75 : 1.1>2,\n")
	require.True(t, strings.HasSuffix(buf.String(), "4-node frequent episodes = 0\n"))

	out, err := ReadEpisodes(&buf)
	require.NoError(t, err)
	require.True(t, in.Equal(out))
}

func TestEventsAndPatternsJSON(t *testing.T) {
	mapping := []episodes.Event{episodes.NewDummyEvent(), episodes.NewInvocation("A.b()")}
	var buf bytes.Buffer
	require.NoError(t, WriteEvents(&buf, mapping))
	require.Contains(t, buf.String(), `"kind": "Invocation"`)

	back, err := ReadEvents(&buf)
	require.NoError(t, err)
	require.Equal(t, mapping, back)

	_, err = ReadEvents(strings.NewReader(`[{"kind":"Nope","method":"x"}]`))
	require.ErrorIs(t, err, episodes.ErrMalformedInput)

	patterns := make(episodes.EpisodesBySize)
	patterns.Add(mustEpisode(t, 5, 0.75, "1", "2", "1>2"))
	buf.Reset()
	require.NoError(t, WritePatterns(&buf, "run-1", patterns))

	runID, got, err := ReadPatterns(&buf)
	require.NoError(t, err)
	require.Equal(t, "run-1", runID)
	require.True(t, patterns.Equal(got))
}

func TestWriteDOT(t *testing.T) {
	ep := mustEpisode(t, 3, 0.5, "1", "2", "3", "1>2", "2>3")
	mapping := []episodes.Event{
		episodes.NewDummyEvent(),
		episodes.NewDeclaration("A.run()"),
		episodes.NewInvocation("B.open()"),
		episodes.NewInvocation("B.close()"),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteDOT(&buf, "pattern0", ep, mapping))
	out := buf.String()
	require.Contains(t, out, "digraph pattern0 {")
	require.Contains(t, out, `n1 -> n2`)
	require.Contains(t, out, `n2 -> n3`)
	require.Contains(t, out, `"Invocation:B.open()"`)
}

func TestLayoutAndFiles(t *testing.T) {
	dir := t.TempDir()
	l := Layout{EventsDir: dir}
	require.Equal(t, filepath.Join(dir, "TrainingData", "fold2", "episodesSeq.txt"), l.EpisodesPath(2, Sequential))
	require.Equal(t, filepath.Join(dir, "ValidationData", "fold0", "stream.txt"), l.ValidationStreamPath(0))

	s := episodes.NewEventStream(episodes.DefaultStreamConfig())
	s.AddEvent(episodes.NewDeclaration("A.run()"))
	s.AddEvent(episodes.NewInvocation("B.open()"))
	require.NoError(t, WriteEventStream(filepath.Dir(l.StreamPath(0)), s))

	events, err := ReadStreamFile(l.StreamPath(0))
	require.NoError(t, err)
	require.Len(t, events, 2)

	mapping, err := ReadEventsFile(l.MappingPath(0))
	require.NoError(t, err)
	require.Equal(t, s.Mapping(), mapping)

	missing, err := ReadEventsFile(filepath.Join(dir, "nope.txt"))
	require.NoError(t, err)
	require.Nil(t, missing)

	require.NoError(t, os.WriteFile(l.EpisodesPath(0, Mix), []byte(rawEpisodes), 0o644))
	m, err := ReadEpisodesFile(l.EpisodesPath(0, Mix))
	require.NoError(t, err)
	require.Equal(t, 3, m[2].Len()+m[3].Len())

	kind, err := ParseEpisodeKind("Parallel")
	require.NoError(t, err)
	require.Equal(t, Parallel, kind)
	_, err = ParseEpisodeKind("tree")
	require.ErrorIs(t, err, episodes.ErrPrecondition)
}
