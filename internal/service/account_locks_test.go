package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountLocks_MutualExclusion(t *testing.T) {
	locks := NewAccountLocks()

	const goroutines = 50
	counter := 0
	var wg sync.WaitGroup

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := locks.WithLock(1, func() error {
				// Unsynchronized increment; the lock is the only thing
				// keeping this race-free
				counter++
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, goroutines, counter)
}

func TestAccountLocks_IndependentAccounts(t *testing.T) {
	locks := NewAccountLocks()

	locks.Lock(1)
	done := make(chan struct{})
	go func() {
		locks.Lock(2)
		locks.Unlock(2)
		close(done)
	}()

	// Holding account 1 must not block account 2
	<-done
	locks.Unlock(1)
}

func TestAccountLocks_EntryDroppedWhenIdle(t *testing.T) {
	locks := NewAccountLocks()

	locks.Lock(7)
	locks.Unlock(7)

	locks.mu.Lock()
	defer locks.mu.Unlock()
	assert.Empty(t, locks.locks, "idle entries are removed from the registry")
}

func TestAccountLocks_WithLockPropagatesError(t *testing.T) {
	locks := NewAccountLocks()

	wantErr := assert.AnError
	err := locks.WithLock(1, func() error { return wantErr })
	require.ErrorIs(t, err, wantErr)

	// The lock is released even when fn fails
	err = locks.WithLock(1, func() error { return nil })
	assert.NoError(t, err)
}

func TestAccountLocks_UnlockUnknownAccount(t *testing.T) {
	locks := NewAccountLocks()
	assert.NotPanics(t, func() { locks.Unlock(99) })
}
