package app

import "sync"

// userLocks serializes update handling per user id so concurrent messages
// from the same user cannot interleave conversation steps. Different users
// proceed independently.
type userLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[int64]*sync.Mutex)}
}

// acquire locks the given user's mutex and returns the unlock function.
func (l *userLocks) acquire(userID int64) func() {
	l.mu.Lock()
	lock, ok := l.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[userID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
