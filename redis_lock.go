package localping

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Lock is a named, leased mutual-exclusion token shared by every process
// using the same backing store. Locks are advisory: they guarantee mutual
// exclusion while the lease holds, nothing more. No ordering between
// competing acquirers, no internal retry; callers decide retry policy.
type Lock interface {
	// TryLock reports whether the lock was acquired. The lease bounds how
	// long the lock survives a holder that never unlocks.
	TryLock(ctx context.Context, lease time.Duration) (bool, error)

	// Unlock releases the lock if and only if this instance still holds it.
	// Releasing a lock held by someone else (the lease expired and another
	// holder took over) is a silent no-op.
	Unlock(ctx context.Context) error
}

// lockHolderPrefix identifies this process. Combined with a per-lock UUID it
// makes holder tokens unique across goroutines and across processes.
var lockHolderPrefix = uuid.New().String()

// unlockScript deletes the key only when it still carries our token. The
// read and the conditional delete must be one server-side operation: a
// read-then-delete pair from the client races with lease expiry, and would
// delete a lock some other holder has since acquired.
const unlockScript = `if redis.call("get", KEYS[1]) == ARGV[1] then
    return redis.call("del", KEYS[1])
end
return 0`

type SimpleRedisLock struct {
	cache *RedisCache
	key   string
	token string
}

// NewSimpleRedisLock builds a lock on lock:<namespace>:<name>. Callers pick
// their own namespace so locks of unrelated components never collide.
func NewSimpleRedisLock(cache *RedisCache, namespace, name string) *SimpleRedisLock {
	return &SimpleRedisLock{
		cache: cache,
		key:   lockKey(namespace, name),
		token: lockHolderPrefix + "-" + uuid.New().String(),
	}
}

func (l *SimpleRedisLock) TryLock(ctx context.Context, lease time.Duration) (bool, error) {
	return l.cache.SetNX(ctx, l.key, l.token, lease)
}

func (l *SimpleRedisLock) Unlock(ctx context.Context) error {
	_, err := l.cache.Eval(ctx, unlockScript, []string{l.key}, l.token)
	return err
}
