package coordinator

import "sync"

// hashMultiplier is used in the hash function for shard selection.
const hashMultiplier = 31

// trialLocks provides per-trial mutual exclusion with sharded lock storage
// to reduce contention on the lock map itself. All state transitions for a
// given trial are serialized through its lock, which makes the one
// non-terminal task per (trial, type) invariant race-free; work across
// different trials proceeds fully in parallel.
type trialLocks struct {
	shards [16]struct {
		sync.Mutex
		locks map[string]*sync.Mutex
	}
}

// newTrialLocks creates an empty sharded lock store.
func newTrialLocks() *trialLocks {
	tl := new(trialLocks)
	for i := range tl.shards {
		tl.shards[i].locks = make(map[string]*sync.Mutex)
	}
	return tl
}

// getShard returns the shard index for a given key.
func (tl *trialLocks) getShard(key string) int {
	var hash uint32
	for i := 0; i < len(key); i++ {
		hash = hash*hashMultiplier + uint32(key[i])
	}
	return int(hash % uint32(len(tl.shards)))
}

// Lock acquires the mutex for trialID, creating it on first use, and
// returns the unlock function. Locks are never evicted; the per-trial
// footprint is one mutex.
func (tl *trialLocks) Lock(trialID string) func() {
	shard := &tl.shards[tl.getShard(trialID)]

	shard.Mutex.Lock()
	mu, ok := shard.locks[trialID]
	if !ok {
		mu = new(sync.Mutex)
		shard.locks[trialID] = mu
	}
	shard.Mutex.Unlock()

	mu.Lock()
	return mu.Unlock
}
