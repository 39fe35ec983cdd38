// Package deduper provides a thread-safe seen-set used by the link
// collector when dedup mode is on.
package deduper

import "context"

type Deduper interface {
	// AddIfNotExists returns true when the key was not seen before.
	AddIfNotExists(context.Context, string) bool
	// Len returns the number of distinct keys added so far.
	Len() int
}

func New() Deduper {
	return &hashset{
		seen: make(map[uint64]struct{}),
	}
}
