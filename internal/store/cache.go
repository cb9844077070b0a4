package store

import "sync"

// Cache key includes the revision snapshot of the pattern key, so a write
// makes every earlier entry unreachable without scanning.
type cacheKey struct {
	Key PatternKey
	Rev uint64
}

// recordCache keeps decoded records so repeated Get calls skip JSON decoding.
type recordCache struct {
	mu      sync.RWMutex
	revs    map[PatternKey]uint64
	records map[cacheKey]Record
}

func newRecordCache() *recordCache {
	return &recordCache{
		revs:    make(map[PatternKey]uint64),
		records: make(map[cacheKey]Record),
	}
}

func (c *recordCache) rev(key PatternKey) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.revs[key]
}

// invalidate bumps the revision of key and drops stale entries for it.
func (c *recordCache) invalidate(key PatternKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.records, cacheKey{Key: key, Rev: c.revs[key]})
	c.revs[key]++
}

func (c *recordCache) getOrLoad(key PatternKey, load func() (Record, error)) (Record, error) {
	ck := cacheKey{Key: key, Rev: c.rev(key)}

	c.mu.RLock()
	rec, ok := c.records[ck]
	c.mu.RUnlock()
	if ok {
		return rec, nil
	}

	rec, err := load()
	if err != nil {
		return Record{}, err
	}

	c.mu.Lock()
	// A write that raced the load has bumped the revision; don't cache.
	if c.revs[key] == ck.Rev {
		c.records[ck] = rec
	}
	c.mu.Unlock()
	return rec, nil
}

func (c *recordCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}
