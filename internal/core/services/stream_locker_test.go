package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamLocker_SerializesSameKey(t *testing.T) {
	locker := newStreamLocker()

	const goroutines = 16
	var wg sync.WaitGroup
	var counter, maxConcurrent int

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locker.Acquire("journal:abc")
			defer release()
			counter++
			if counter > maxConcurrent {
				maxConcurrent = counter
			}
			time.Sleep(time.Millisecond)
			counter--
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxConcurrent, "holders of the same key must not overlap")
	assert.Equal(t, 0, counter)
}

func TestStreamLocker_DifferentKeysDoNotBlock(t *testing.T) {
	locker := newStreamLocker()

	releaseA := locker.Acquire("journal:a")
	defer releaseA()

	acquired := make(chan struct{})
	go func() {
		release := locker.Acquire("journal:b")
		release()
		close(acquired)
	}()

	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("acquiring an unrelated key blocked behind a held lock")
	}
}

func TestStreamLocker_ReclaimsUnreferencedLocks(t *testing.T) {
	locker := newStreamLocker()

	release := locker.Acquire("period:org:2025")
	release()

	locker.mu.Lock()
	defer locker.mu.Unlock()
	require.Empty(t, locker.locks, "released keys must not accumulate")
}
