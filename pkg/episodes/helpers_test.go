package episodes

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// ep builds an episode from fact literals ("1", "1>2", ...).
func ep(t *testing.T, freq int, entropy float64, facts ...string) Episode {
	t.Helper()
	e, err := NewEpisode(freq, entropy, MustParseFacts(facts...)...)
	require.NoError(t, err)
	return e
}

func bySize(episodes ...Episode) EpisodesBySize {
	out := make(EpisodesBySize)
	for _, e := range episodes {
		out.Add(e)
	}
	return out
}

func occ(ids ...int) Occurrence {
	facts := make([]Fact, 0, len(ids))
	for _, id := range ids {
		facts = append(facts, NewEventFact(EventID(id)))
	}
	return NewOccurrence(facts...)
}

func stream(pairs ...float64) []StreamEvent {
	out := make([]StreamEvent, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, StreamEvent{ID: EventID(pairs[i]), Timestamp: pairs[i+1]})
	}
	return out
}

// parseEncoded reads the "id,time" lines written by an EventStream.
func parseEncoded(t *testing.T, text string) []StreamEvent {
	t.Helper()
	var out []StreamEvent
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		id, ts, ok := strings.Cut(line, ",")
		require.True(t, ok, line)
		n, err := strconv.Atoi(id)
		require.NoError(t, err)
		f, err := strconv.ParseFloat(ts, 64)
		require.NoError(t, err)
		out = append(out, StreamEvent{ID: EventID(n), Timestamp: f})
	}
	return out
}
