// Package memory provides the in-process lock table. Locks are transient
// time-bounded holds, so they live in memory: losing them on restart only
// delays inventory restoration until reconciliation, it never oversells.
package memory

import (
	"sync"
	"time"

	"github.com/eventhive/eventhive/internal/events/domain"
)

// LockTable is a mutex-guarded map of active locks keyed by lock ID. The
// mutex makes every lookup-then-act atomic per lock, which is what keeps a
// concurrent unlock, commit, and sweep from each restoring the same hold.
type LockTable struct {
	mu    sync.Mutex
	locks map[string]domain.Lock
}

func NewLockTable() *LockTable {
	return &LockTable{locks: make(map[string]domain.Lock)}
}

func (t *LockTable) Insert(lock domain.Lock) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.locks[lock.ID] = lock
}

// Take removes and returns the lock when it exists and is unexpired at now.
// An expired lock is left in place: the sweep owns its release, so the
// quantity is restored exactly once.
func (t *LockTable) Take(lockID string, now time.Time) (domain.Lock, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	lock, ok := t.locks[lockID]
	if !ok || lock.Expired(now) {
		return domain.Lock{}, false
	}
	delete(t.locks, lockID)
	return lock, true
}

// TakeExpired removes and returns every lock whose TTL has passed at now.
func (t *LockTable) TakeExpired(now time.Time) []domain.Lock {
	t.mu.Lock()
	defer t.mu.Unlock()

	var expired []domain.Lock
	for id, lock := range t.locks {
		if lock.Expired(now) {
			expired = append(expired, lock)
			delete(t.locks, id)
		}
	}
	return expired
}

func (t *LockTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}
