package service

import "sync"

// AccountLocks serializes mutating operations per loan account. Batch workers
// and API handlers acquire the same lock, so a payment and an EOD accrual on
// one account never interleave.
type AccountLocks struct {
	mu    sync.Mutex
	locks map[int64]*accountLock
}

type accountLock struct {
	mu   sync.Mutex
	refs int
}

// NewAccountLocks creates an empty lock registry
func NewAccountLocks() *AccountLocks {
	return &AccountLocks{locks: make(map[int64]*accountLock)}
}

// Lock acquires the exclusive lock for an account, creating it on first use
func (l *AccountLocks) Lock(accountID int64) {
	l.mu.Lock()
	entry, ok := l.locks[accountID]
	if !ok {
		entry = &accountLock{}
		l.locks[accountID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
}

// Unlock releases the account lock and drops it once nobody is waiting
func (l *AccountLocks) Unlock(accountID int64) {
	l.mu.Lock()
	entry, ok := l.locks[accountID]
	if !ok {
		l.mu.Unlock()
		return
	}
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, accountID)
	}
	l.mu.Unlock()

	entry.mu.Unlock()
}

// WithLock runs fn while holding the account's exclusive lock
func (l *AccountLocks) WithLock(accountID int64, fn func() error) error {
	l.Lock(accountID)
	defer l.Unlock(accountID)
	return fn()
}
