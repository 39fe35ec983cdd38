package deduper

import (
	"context"
	"hash/fnv"
	"sync"
)

var _ Deduper = (*hashset)(nil)

// hashset stores fnv-64 hashes of the keys instead of the keys themselves.
// Collected link keys repeat the full listing URL, so this keeps the set
// small on long runs.
type hashset struct {
	mux  sync.RWMutex
	seen map[uint64]struct{}
}

func (d *hashset) AddIfNotExists(_ context.Context, key string) bool {
	h := d.hash(key)

	d.mux.RLock()
	_, ok := d.seen[h]
	d.mux.RUnlock()

	if ok {
		return false
	}

	d.mux.Lock()
	defer d.mux.Unlock()

	if _, ok := d.seen[h]; ok {
		return false
	}

	d.seen[h] = struct{}{}

	return true
}

func (d *hashset) Len() int {
	d.mux.RLock()
	defer d.mux.RUnlock()

	return len(d.seen)
}

func (d *hashset) hash(key string) uint64 {
	h := fnv.New64()
	_, _ = h.Write([]byte(key))

	return h.Sum64()
}
