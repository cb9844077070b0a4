package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/jtomasevic/episodes/pkg/episode_io"
	"github.com/jtomasevic/episodes/pkg/episodes"
)

// ErrNotFound is returned when no patterns are stored under a key.
var ErrNotFound = errors.New("not found")

const (
	prefixPatterns    = byte(0x01) // patterns:<key> -> Record
	prefixFingerprint = byte(0x02) // fp:<uint64>    -> <key>
)

// Stage names the pipeline step whose output a record holds.
type Stage string

const (
	StagePostprocessed Stage = "postprocessed"
	StageMaximal       Stage = "maximal"
)

// PatternKey identifies one stored result.
type PatternKey struct {
	Fold      int
	Frequency int
	Entropy   float64
	Kind      episode_io.EpisodeKind
	Stage     Stage
}

func (k PatternKey) String() string {
	return fmt.Sprintf("fold%d/freq%d/entropy%s/%s/%s",
		k.Fold, k.Frequency, strconv.FormatFloat(k.Entropy, 'f', -1, 64), k.Kind, k.Stage)
}

func parsePatternKey(s string) (PatternKey, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 5 {
		return PatternKey{}, fmt.Errorf("bad pattern key %q", s)
	}
	fold, err1 := strconv.Atoi(strings.TrimPrefix(parts[0], "fold"))
	freq, err2 := strconv.Atoi(strings.TrimPrefix(parts[1], "freq"))
	entropy, err3 := strconv.ParseFloat(strings.TrimPrefix(parts[2], "entropy"), 64)
	if err := errors.Join(err1, err2, err3); err != nil {
		return PatternKey{}, fmt.Errorf("bad pattern key %q: %w", s, err)
	}
	return PatternKey{
		Fold:      fold,
		Frequency: freq,
		Entropy:   entropy,
		Kind:      episode_io.EpisodeKind(parts[3]),
		Stage:     Stage(parts[4]),
	}, nil
}

// Record is one stored pipeline result.
type Record struct {
	RunID     string                     `json:"run_id"`
	CreatedAt time.Time                  `json:"created_at"`
	Patterns  map[int][]episodes.Episode `json:"patterns"`
}

// BySize converts the stored patterns back into sets.
func (r Record) BySize() episodes.EpisodesBySize {
	out := make(episodes.EpisodesBySize, len(r.Patterns))
	for size, items := range r.Patterns {
		out[size] = episodes.NewEpisodeSet(items...)
	}
	return out
}

// Options configures the badger backed store.
type Options struct {
	DataDir    string
	InMemory   bool
	SyncWrites bool
	Logger     *slog.Logger
}

// PatternStore persists postprocessed and maximal patterns so repeated runs
// over the same fold and thresholds can reuse them.
//
// Safe for concurrent use from multiple goroutines.
type PatternStore struct {
	db    *badger.DB
	cache *recordCache
	log   *slog.Logger
}

func Open(opts Options) (*PatternStore, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir)
	if opts.InMemory {
		badgerOpts = badgerOpts.WithDir("").WithValueDir("").WithInMemory(true)
	}
	if opts.SyncWrites {
		badgerOpts = badgerOpts.WithSyncWrites(true)
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	badgerOpts = badgerOpts.WithLogger(badgerLogger{log: log.With("component", "badger")})

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %w", err)
	}
	return &PatternStore{db: db, cache: newRecordCache(), log: log}, nil
}

// OpenInMemory opens a store that is lost on Close.
func OpenInMemory() (*PatternStore, error) {
	return Open(Options{InMemory: true})
}

func (s *PatternStore) Close() error { return s.db.Close() }

func patternsKey(k PatternKey) []byte {
	return append([]byte{prefixPatterns}, []byte(k.String())...)
}

func fingerprintKey(fp uint64) []byte {
	key := make([]byte, 9)
	key[0] = prefixFingerprint
	binary.BigEndian.PutUint64(key[1:], fp)
	return key
}

// Put stores m under key, replacing any earlier record, and indexes every
// episode by its fingerprint.
func (s *PatternStore) Put(key PatternKey, runID string, m episodes.EpisodesBySize) error {
	rec := Record{RunID: runID, CreatedAt: time.Now().UTC(), Patterns: make(map[int][]episodes.Episode, len(m))}
	for size, set := range m {
		items := set.Items()
		if items == nil {
			items = []episodes.Episode{}
		}
		rec.Patterns[size] = items
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record %s: %w", key, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(patternsKey(key), data); err != nil {
			return err
		}
		for _, items := range rec.Patterns {
			for _, ep := range items {
				if err := txn.Set(fingerprintKey(episodes.Fingerprint(ep)), []byte(key.String())); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("store patterns %s: %w", key, err)
	}
	s.cache.invalidate(key)
	s.log.Debug("stored patterns", "key", key.String(), "run_id", runID, "patterns", m.Total())
	return nil
}

// Get loads the record stored under key.
func (s *PatternStore) Get(key PatternKey) (Record, error) {
	return s.cache.getOrLoad(key, func() (Record, error) {
		var rec Record
		err := s.db.View(func(txn *badger.Txn) error {
			item, err := txn.Get(patternsKey(key))
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			if err != nil {
				return err
			}
			return item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			})
		})
		if err != nil {
			return Record{}, fmt.Errorf("load patterns %s: %w", key, err)
		}
		return rec, nil
	})
}

// Delete removes the record under key. Fingerprint entries are left for
// FindByFingerprint to skip.
func (s *PatternStore) Delete(key PatternKey) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(patternsKey(key)); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		return txn.Delete(patternsKey(key))
	})
	s.cache.invalidate(key)
	return err
}

// Keys lists the stored keys in key order.
func (s *PatternStore) Keys() ([]PatternKey, error) {
	var out []PatternKey
	prefix := []byte{prefixPatterns}
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			k, err := parsePatternKey(string(it.Item().Key()[1:]))
			if err != nil {
				return err
			}
			out = append(out, k)
		}
		return nil
	})
	return out, err
}

// FindByFingerprint returns the stored episode with the given fingerprint and
// the key of the record holding it.
func (s *PatternStore) FindByFingerprint(fp uint64) (episodes.Episode, PatternKey, error) {
	var keyText string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(fingerprintKey(fp))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		keyText = string(val)
		return err
	})
	if err != nil {
		return episodes.Episode{}, PatternKey{}, err
	}

	key, err := parsePatternKey(keyText)
	if err != nil {
		return episodes.Episode{}, PatternKey{}, err
	}
	rec, err := s.Get(key)
	if err != nil {
		return episodes.Episode{}, PatternKey{}, err
	}
	for _, items := range rec.Patterns {
		for _, ep := range items {
			if episodes.Fingerprint(ep) == fp {
				return ep, key, nil
			}
		}
	}
	return episodes.Episode{}, PatternKey{}, fmt.Errorf("fingerprint %x: %w", fp, ErrNotFound)
}

// badgerLogger routes badger's printf logging into slog.
type badgerLogger struct {
	log *slog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
