package store

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jtomasevic/episodes/pkg/episode_io"
	"github.com/jtomasevic/episodes/pkg/episodes"
)

func openTestStore(t *testing.T) *PatternStore {
	t.Helper()
	s, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustEpisode(t *testing.T, freq int, entropy float64, facts ...string) episodes.Episode {
	t.Helper()
	ep, err := episodes.NewEpisode(freq, entropy, episodes.MustParseFacts(facts...)...)
	require.NoError(t, err)
	return ep
}

func samplePatterns(t *testing.T) episodes.EpisodesBySize {
	m := make(episodes.EpisodesBySize)
	m.Add(mustEpisode(t, 6, 0.6, "1", "2", "1>2"))
	m.Add(mustEpisode(t, 5, 0.7, "1", "2", "3", "1>2", "1>3"))
	return m
}

var testKey = PatternKey{Fold: 1, Frequency: 5, Entropy: 0.5, Kind: episode_io.Mix, Stage: StageMaximal}

func TestPatternKey_RoundTrip(t *testing.T) {
	require.Equal(t, "fold1/freq5/entropy0.5/mix/maximal", testKey.String())
	back, err := parsePatternKey(testKey.String())
	require.NoError(t, err)
	require.Equal(t, testKey, back)

	_, err = parsePatternKey("fold1/freqX/entropy0.5/mix/maximal")
	require.Error(t, err)
	_, err = parsePatternKey("fold1")
	require.Error(t, err)
}

func TestPutGet(t *testing.T) {
	s := openTestStore(t)
	in := samplePatterns(t)

	require.NoError(t, s.Put(testKey, "run-1", in))

	rec, err := s.Get(testKey)
	require.NoError(t, err)
	require.Equal(t, "run-1", rec.RunID)
	require.False(t, rec.CreatedAt.IsZero())
	require.True(t, in.Equal(rec.BySize()))
}

func TestGet_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Get(testKey)
	require.ErrorIs(t, err, ErrNotFound)

	require.ErrorIs(t, s.Delete(testKey), ErrNotFound)
}

func TestPut_OverwriteInvalidatesCache(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put(testKey, "run-1", samplePatterns(t)))

	_, err := s.Get(testKey)
	require.NoError(t, err)
	require.Equal(t, 1, s.cache.len())

	next := make(episodes.EpisodesBySize)
	next.Add(mustEpisode(t, 9, 0.9, "4", "5", "4>5"))
	require.NoError(t, s.Put(testKey, "run-2", next))
	require.Equal(t, 0, s.cache.len())

	rec, err := s.Get(testKey)
	require.NoError(t, err)
	require.Equal(t, "run-2", rec.RunID)
	require.True(t, next.Equal(rec.BySize()))
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Put(testKey, "run-1", samplePatterns(t)))
	_, err := s.Get(testKey)
	require.NoError(t, err)

	require.NoError(t, s.Delete(testKey))
	_, err = s.Get(testKey)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestKeys(t *testing.T) {
	s := openTestStore(t)
	other := testKey
	other.Stage = StagePostprocessed
	other.Fold = 0

	require.NoError(t, s.Put(testKey, "run-1", samplePatterns(t)))
	require.NoError(t, s.Put(other, "run-1", samplePatterns(t)))

	keys, err := s.Keys()
	require.NoError(t, err)
	require.Equal(t, []PatternKey{other, testKey}, keys)
}

func TestFindByFingerprint(t *testing.T) {
	s := openTestStore(t)
	in := samplePatterns(t)
	require.NoError(t, s.Put(testKey, "run-1", in))

	want := in[3].Items()[0]
	got, key, err := s.FindByFingerprint(episodes.Fingerprint(want))
	require.NoError(t, err)
	require.Equal(t, testKey, key)
	require.True(t, want.Equal(got))

	_, _, err = s.FindByFingerprint(42)
	require.ErrorIs(t, err, ErrNotFound)

	// Stale index entries after a delete resolve to not found.
	require.NoError(t, s.Delete(testKey))
	_, _, err = s.FindByFingerprint(episodes.Fingerprint(want))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOpen_OnDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(Options{DataDir: dir, SyncWrites: true})
	require.NoError(t, err)
	require.NoError(t, s.Put(testKey, "run-1", samplePatterns(t)))
	require.NoError(t, s.Close())

	s, err = Open(Options{DataDir: dir})
	require.NoError(t, err)
	defer s.Close()
	rec, err := s.Get(testKey)
	require.NoError(t, err)
	require.Equal(t, "run-1", rec.RunID)
}
