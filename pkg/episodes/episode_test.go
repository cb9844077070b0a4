package episodes

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEpisodeBuilder_ViewsAndOrderIndependence(t *testing.T) {
	a := ep(t, 3, 0.5, "1>2", "2", "1", "3", "1>3")
	b := ep(t, 3, 0.5, "3", "1", "2", "1>3", "1>2")

	require.True(t, a.Equal(b))
	require.Equal(t, a.Key(), b.Key())
	require.Equal(t, 3, a.NumEvents())
	require.Equal(t, MustParseFacts("1", "2", "3"), a.Events())
	require.Equal(t, MustParseFacts("1>2", "1>3"), a.Relations())
	require.True(t, a.ContainsFact(NewRelationFact(1, 3)))
	require.False(t, a.ContainsFact(NewRelationFact(3, 1)))
	require.Equal(t, a.EventsKey(), ep(t, 9, 0.1, "1", "2", "3").EventsKey())
}

func TestEpisode_EqualityIncludesAnnotations(t *testing.T) {
	a := ep(t, 3, 0.5, "1", "2", "1>2")
	require.False(t, a.Equal(ep(t, 4, 0.5, "1", "2", "1>2")))
	require.False(t, a.Equal(ep(t, 3, 0.6, "1", "2", "1>2")))
	require.False(t, a.Equal(ep(t, 3, 0.5, "1", "2")))
}

func TestEpisodeBuilder_Invariants(t *testing.T) {
	_, err := NewEpisode(1, 0.5, MustParseFacts("1", "1>2")...)
	require.ErrorIs(t, err, ErrInvalidEpisode)

	_, err = NewEpisode(-1, 0.5, MustParseFacts("1")...)
	require.ErrorIs(t, err, ErrInvalidEpisode)

	_, err = NewEpisode(1, 1.5, MustParseFacts("1")...)
	require.ErrorIs(t, err, ErrInvalidEpisode)

	_, err = NewEpisode(1, 0.5, Fact{})
	require.ErrorIs(t, err, ErrInvalidEpisode)
}

func TestEpisode_BuiltEpisodeDoesNotAliasBuilder(t *testing.T) {
	b := NewEpisodeBuilder().AddFacts(MustParseFacts("1", "2")...).SetFrequency(2)
	first, err := b.Build()
	require.NoError(t, err)

	b.AddFact(NewEventFact(3))
	second, err := b.Build()
	require.NoError(t, err)

	require.Equal(t, 2, first.NumEvents())
	require.Equal(t, 3, second.NumEvents())

	facts := first.Facts()
	facts[0] = NewEventFact(99)
	require.Equal(t, NewEventFact(1), first.Facts()[0])
}

func TestEpisode_JSON(t *testing.T) {
	a := ep(t, 5, 0.25, "1", "2", "1>2")
	raw, err := json.Marshal(a)
	require.NoError(t, err)
	require.JSONEq(t, `{"facts":["1","2","1>2"],"frequency":5,"entropy":0.25}`, string(raw))

	var back Episode
	require.NoError(t, json.Unmarshal(raw, &back))
	require.True(t, a.Equal(back))

	require.Error(t, json.Unmarshal([]byte(`{"facts":["1>2"],"frequency":1,"entropy":0}`), &back))
}

func TestEpisodeSet_Dedup(t *testing.T) {
	a := ep(t, 3, 0.5, "1", "2", "1>2")
	set := NewEpisodeSet(a, ep(t, 3, 0.5, "2", "1", "1>2"))
	require.Equal(t, 1, set.Len())
	require.False(t, set.Add(a))
	require.True(t, set.Add(ep(t, 3, 0.5, "1", "2")))
	require.Equal(t, 2, set.Len())
	require.True(t, set.Contains(a))

	var nilSet *EpisodeSet
	require.Equal(t, 0, nilSet.Len())
	require.Nil(t, nilSet.Items())
}

func TestEpisodesBySize(t *testing.T) {
	m := bySize(
		ep(t, 1, 0, "1", "2", "3"),
		ep(t, 1, 0, "1"),
		ep(t, 1, 0, "1", "2"),
		ep(t, 2, 0, "1", "3"),
	)
	require.Equal(t, []int{1, 2, 3}, m.Sizes())
	require.Equal(t, 4, m.Total())
	require.Equal(t, 2, m[2].Len())
	require.True(t, m.Equal(bySize(m[3].Items()[0], m[2].Items()[1], m[2].Items()[0], m[1].Items()[0])))
}

func TestFingerprint(t *testing.T) {
	a := ep(t, 3, 0.5, "1", "2", "1>2")
	b := ep(t, 3, 0.5, "2", "1", "1>2")
	c := ep(t, 3, 0.5, "1", "2", "2>1")

	require.Equal(t, Fingerprint(a), Fingerprint(b))
	require.NotEqual(t, Fingerprint(a), Fingerprint(c))
	require.Equal(t, HashEventSet(a), HashEventSet(c))
	require.NotEqual(t, Fingerprint(a), Fingerprint(ep(t, 4, 0.5, "1", "2", "1>2")))
}
