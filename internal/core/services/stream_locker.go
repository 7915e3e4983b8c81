package services

import "sync"

// streamLocker serializes command handling per entity stream key. Commands on
// the same key run one at a time to completion; commands on different keys
// proceed concurrently. A single global lock here would destroy cross-key
// concurrency, so locks are held per key and reclaimed when unreferenced.
type streamLocker struct {
	mu    sync.Mutex
	locks map[string]*streamLock
}

type streamLock struct {
	mu   sync.Mutex
	refs int
}

func newStreamLocker() *streamLocker {
	return &streamLocker{locks: make(map[string]*streamLock)}
}

// Acquire blocks until the caller holds the lock for streamID and returns the
// release function. The release function must be called exactly once.
func (l *streamLocker) Acquire(streamID string) func() {
	l.mu.Lock()
	entry, ok := l.locks[streamID]
	if !ok {
		entry = &streamLock{}
		l.locks[streamID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, streamID)
		}
		l.mu.Unlock()
	}
}
