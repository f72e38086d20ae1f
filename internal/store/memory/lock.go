package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alanyoungcy/brandit/internal/domain"
)

type lease struct {
	token   uint64
	expires time.Time
}

// LockManager implements domain.LockManager with an in-process table of
// leases. Expired leases are treated as free, matching the Redis TTL lock.
type LockManager struct {
	mu     sync.Mutex
	leases map[string]lease
	next   uint64
	now    func() time.Time
}

// NewLockManager creates an empty LockManager.
func NewLockManager() *LockManager {
	return &LockManager{leases: make(map[string]lease), now: time.Now}
}

// Acquire takes the lock for key or returns domain.ErrLockHeld.
func (lm *LockManager) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	now := lm.now()
	if l, ok := lm.leases[key]; ok && now.Before(l.expires) {
		return nil, domain.ErrLockHeld
	}
	lm.next++
	token := lm.next
	lm.leases[key] = lease{token: token, expires: now.Add(ttl)}

	var once sync.Once
	return func() {
		once.Do(func() {
			lm.mu.Lock()
			defer lm.mu.Unlock()
			if l, ok := lm.leases[key]; ok && l.token == token {
				delete(lm.leases, key)
			}
		})
	}, nil
}

var _ domain.LockManager = (*LockManager)(nil)
