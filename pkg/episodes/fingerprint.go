package episodes

import (
	"encoding/binary"
	"hash"
	"hash/fnv"
	"math"
	"sort"
)

// Stable hashing helpers for episode fingerprints.
//
// A fingerprint is:
//   - Deterministic
//   - Order-independent over the fact set
//   - Sensitive to frequency and entropy (two mined orderings of the same event
//     set with different annotations get different fingerprints)
//
// Fingerprints key persisted patterns and report rows; they are not used for
// equality, Key() is.

// HashFact returns the base signature of a single fact.
func HashFact(f Fact) uint64 {
	h := fnv.New64a()
	writeUint64(h, uint64(f.kind))
	writeInt64(h, int(f.first))
	writeInt64(h, int(f.second))
	return h.Sum64()
}

// HashEventSet fingerprints only the leaf facts of an episode. Episodes that
// compete for the same representative share this value.
func HashEventSet(e Episode) uint64 {
	return hashFactMultiset(0, e.Events())
}

// Fingerprint builds the full episode signature from the fact signatures and
// the annotations.
func Fingerprint(e Episode) uint64 {
	h := fnv.New64a()
	writeUint64(h, hashFactMultiset(1, e.facts))
	writeInt64(h, e.frequency)
	writeUint64(h, math.Float64bits(e.entropy))
	return h.Sum64()
}

func hashFactMultiset(salt int, facts []Fact) uint64 {
	sigs := make([]uint64, 0, len(facts))
	for _, f := range facts {
		sigs = append(sigs, HashFact(f))
	}

	h := fnv.New64a()
	writeInt64(h, salt)
	writeInt64(h, len(sigs))
	// Multiset: sort so that ordering doesn't matter.
	for _, s := range stableSortUint64(sigs) {
		writeUint64(h, s)
	}
	return h.Sum64()
}

// ---------- helpers ----------

func writeInt64(h hash.Hash64, v int) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(v))
	_, _ = h.Write(buf[:])
}

func writeUint64(h hash.Hash64, v uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	_, _ = h.Write(buf[:])
}

func stableSortUint64(in []uint64) []uint64 {
	out := append([]uint64(nil), in...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
