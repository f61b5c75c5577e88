package partition

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Count is the fixed number of lock stripes.
const Count = 256

// For returns the stripe for a key.
// Stable and deterministic: the same key always maps to the same stripe.
func For(key string) int {
	return int(xxhash.Sum64String(key) % Count)
}

// Locks is a fixed array of mutexes addressed by key. Two keys may share a stripe,
// which only costs concurrency, never correctness.
type Locks struct {
	stripes [Count]sync.Mutex
}

// Lock acquires the stripe for key and returns its unlock function.
func (l *Locks) Lock(key string) func() {
	m := &l.stripes[For(key)]
	m.Lock()
	return m.Unlock
}
