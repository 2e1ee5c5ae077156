package service

import "sync"

// UserLocks serializes every read-modify-write on a single user's record.
// Cross-user operations proceed in parallel; for one user, concurrent
// earning actions and withdrawals behave as if run one at a time, which is
// what keeps quota and balance checks from racing.
//
// Locks are never removed from the map; the per-user footprint is one
// mutex, which is acceptable for the expected user counts.
type UserLocks struct {
	locks sync.Map // user_id -> *sync.Mutex
}

func NewUserLocks() *UserLocks {
	return &UserLocks{}
}

// Lock acquires the user's mutex and returns the unlock function
func (l *UserLocks) Lock(userID string) func() {
	mu, _ := l.locks.LoadOrStore(userID, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}
