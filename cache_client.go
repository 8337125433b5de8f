package localping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
)

// Envelope kinds. Every cached payload carries the kind it was written
// with, and each read path rejects the other kind instead of decoding it.
const (
	cacheKindValue   = "value"
	cacheKindLogical = "logical"
)

// redisData wraps every cached payload with its encoding kind. Logical
// entries also carry an expiration timestamp and never physically expire;
// readers decide staleness from the embedded timestamp, so the cache can
// keep serving stale data while one rebuilder refreshes it.
type redisData struct {
	Kind     string          `json:"kind"`
	ExpireAt time.Time       `json:"expireAt,omitempty"`
	Data     json.RawMessage `json:"data"`
}

// decodeValue unpacks a value-kind entry. A payload of any other shape,
// including a logical envelope under the wrong key, reports false.
func decodeValue[T any](raw string) (*T, bool) {
	var envelope redisData
	if json.Unmarshal([]byte(raw), &envelope) != nil || envelope.Kind != cacheKindValue {
		return nil, false
	}
	var value T
	if json.Unmarshal(envelope.Data, &value) != nil {
		return nil, false
	}
	return &value, true
}

// CacheClient orchestrates the penetration-safe and breakdown-safe read
// paths on top of RedisCache and SimpleRedisLock. The row store stays the
// single source of truth; everything cached here is disposable.
type CacheClient struct {
	cache    *RedisCache
	pool     *RebuildPool
	ownsPool bool

	lockNS         string
	nullTTL        time.Duration
	lockLease      time.Duration
	retrySleep     time.Duration
	maxRetries     int
	rebuildTimeout time.Duration
	now            func() time.Time
}

func NewCacheClient(cache *RedisCache) *CacheClient {
	return &CacheClient{
		cache:          cache,
		pool:           NewRebuildPool(5, runtime.NumCPU()+1, 3),
		ownsPool:       true,
		lockNS:         CacheLockNamespace,
		nullTTL:        CacheNullTTL,
		lockLease:      10 * time.Second,
		retrySleep:     50 * time.Millisecond,
		maxRetries:     10,
		rebuildTimeout: 10 * time.Second,
		now:            time.Now,
	}
}

// WithLockNamespace scopes the rebuild locks this client takes. Two clients
// caching different entities should use different namespaces.
func (c *CacheClient) WithLockNamespace(ns string) *CacheClient {
	c.lockNS = ns
	return c
}

func (c *CacheClient) WithNullTTL(ttl time.Duration) *CacheClient {
	c.nullTTL = ttl
	return c
}

// WithRetryPolicy bounds how long a mutex read waits for a competing
// rebuilder before giving up with ErrLockBusy.
func (c *CacheClient) WithRetryPolicy(maxRetries int, sleep time.Duration) *CacheClient {
	c.maxRetries = maxRetries
	c.retrySleep = sleep
	return c
}

// WithRebuildPool replaces the internal pool. The caller keeps ownership.
func (c *CacheClient) WithRebuildPool(pool *RebuildPool) *CacheClient {
	if c.ownsPool {
		c.pool.Stop()
	}
	c.pool = pool
	c.ownsPool = false
	return c
}

// Close stops the internal rebuild pool, waiting for in-flight rebuilds.
func (c *CacheClient) Close() {
	if c.ownsPool {
		c.pool.Stop()
	}
}

// Set stores value as JSON with a store-level TTL, the encoding read by
// QueryWithPassThrough and QueryWithMutex.
func (c *CacheClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	envelope, err := json.Marshal(redisData{Kind: cacheKindValue, Data: data})
	if err != nil {
		return err
	}
	return c.cache.SetWithTTL(ctx, key, string(envelope), ttl)
}

// SetWithLogicalExpire stores value wrapped in a logical-expiration envelope
// and no store-level TTL, the encoding read by QueryWithLogicalExpire.
func (c *CacheClient) SetWithLogicalExpire(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	envelope, err := json.Marshal(redisData{
		Kind:     cacheKindLogical,
		ExpireAt: c.now().Add(ttl),
		Data:     data,
	})
	if err != nil {
		return err
	}
	return c.cache.SetNoTTL(ctx, key, string(envelope))
}

// Delete drops a cache entry. Writers call this after committing a row
// update so the next reader rebuilds from the fresh row.
func (c *CacheClient) Delete(ctx context.Context, key string) error {
	return c.cache.Delete(ctx, key)
}

// QueryWithPassThrough reads keyPrefix+id with penetration protection.
// A loader miss (nil, nil) writes an empty-payload tombstone with a short
// TTL, so repeated queries for a nonexistent id cost at most one row-store
// hit per tombstone window. Returns ErrNotFound for absent entities.
func QueryWithPassThrough[T any, ID any](
	ctx context.Context,
	c *CacheClient,
	keyPrefix string,
	id ID,
	fallback func(context.Context, ID) (*T, error),
	ttl time.Duration,
) (*T, error) {
	key := keyPrefix + fmt.Sprint(id)

	raw, err := c.cache.Get(ctx, key)
	if err == nil {
		if raw == "" {
			// tombstone: the row store is known not to have this id
			return nil, ErrNotFound
		}
		if value, ok := decodeValue[T](raw); ok {
			return value, nil
		}
		// malformed or wrong-kind payload counts as a miss and gets
		// rebuilt below
		log.Warn().Str("key", key).Msg("cache payload malformed, rebuilding")
	} else if !errors.Is(err, ErrKeyAbsent) {
		return nil, err
	}

	value, err := fallback(ctx, id)
	if err != nil {
		return nil, err
	}
	if value == nil {
		if setErr := c.cache.SetWithTTL(ctx, key, "", c.nullTTL); setErr != nil {
			log.Warn().Err(setErr).Str("key", key).Msg("failed to write tombstone")
		}
		return nil, ErrNotFound
	}

	if setErr := c.Set(ctx, key, value, ttl); setErr != nil {
		// the read itself succeeded; a failed cache write only costs the
		// next reader another load
		log.Warn().Err(setErr).Str("key", key).Msg("failed to refill cache")
	}
	return value, nil
}

// QueryWithLogicalExpire reads keyPrefix+id with breakdown protection.
// Entries must be pre-warmed via SetWithLogicalExpire; a cold key returns
// ErrNotFound without touching the row store. An expired entry is still
// returned immediately while at most one rebuilder, elected by a namespaced
// lock, refreshes it on the pool in the background. Staleness is bounded by
// the duration of a single rebuild.
func QueryWithLogicalExpire[T any, ID any](
	ctx context.Context,
	c *CacheClient,
	keyPrefix string,
	id ID,
	fallback func(context.Context, ID) (*T, error),
	ttl time.Duration,
) (*T, error) {
	key := keyPrefix + fmt.Sprint(id)

	raw, err := c.cache.Get(ctx, key)
	if errors.Is(err, ErrKeyAbsent) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var envelope redisData
	var value T
	if jsonErr := json.Unmarshal([]byte(raw), &envelope); jsonErr != nil || envelope.Kind != cacheKindLogical {
		// malformed or wrong-kind envelope: elect a rebuilder, nothing
		// stale to serve
		log.Warn().Str("key", key).Msg("cache envelope malformed, rebuilding")
		c.scheduleRebuild(ctx, key, func(rctx context.Context) error {
			return rebuild(rctx, c, key, id, fallback, ttl)
		})
		return nil, ErrNotFound
	}
	if jsonErr := json.Unmarshal(envelope.Data, &value); jsonErr != nil {
		log.Warn().Str("key", key).Msg("cache payload malformed, rebuilding")
		c.scheduleRebuild(ctx, key, func(rctx context.Context) error {
			return rebuild(rctx, c, key, id, fallback, ttl)
		})
		return nil, ErrNotFound
	}

	if envelope.ExpireAt.After(c.now()) {
		return &value, nil
	}

	c.scheduleRebuild(ctx, key, func(rctx context.Context) error {
		return rebuild(rctx, c, key, id, fallback, ttl)
	})

	// losing the lock race or a full pool both mean someone else (or the
	// next reader) refreshes; serve the stale payload meanwhile
	return &value, nil
}

// scheduleRebuild elects this reader via the per-key lock and, on success,
// hands the rebuild to the pool. The lock is released in the task itself, in
// a defer, whatever the loader does; if the pool rejects the task the lock
// is released here so another reader can elect itself immediately.
func (c *CacheClient) scheduleRebuild(ctx context.Context, key string, task func(context.Context) error) {
	lock := NewSimpleRedisLock(c.cache, c.lockNS, key)

	acquired, err := lock.TryLock(ctx, c.lockLease)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("rebuild lock unavailable")
		return
	}
	if !acquired {
		return
	}

	submitErr := c.pool.Submit(func() {
		// detached from the request context: the reader already returned
		rctx, cancel := context.WithTimeout(context.Background(), c.rebuildTimeout)
		defer cancel()
		defer func() {
			if unlockErr := lock.Unlock(rctx); unlockErr != nil {
				log.Warn().Err(unlockErr).Str("key", key).Msg("rebuild unlock failed")
			}
		}()
		if rebuildErr := task(rctx); rebuildErr != nil {
			log.Error().Err(rebuildErr).Str("key", key).Msg("cache rebuild failed")
		}
	})
	if submitErr != nil {
		if unlockErr := lock.Unlock(context.WithoutCancel(ctx)); unlockErr != nil {
			log.Warn().Err(unlockErr).Str("key", key).Msg("rebuild unlock failed")
		}
		log.Debug().Err(submitErr).Str("key", key).Msg("rebuild dropped")
	}
}

// rebuild reloads a logical-expiration entry from the row store. It
// double-checks freshness first: the previous rebuilder may have finished
// and unlocked just before this reader locked.
func rebuild[T any, ID any](
	ctx context.Context,
	c *CacheClient,
	key string,
	id ID,
	fallback func(context.Context, ID) (*T, error),
	ttl time.Duration,
) error {
	if raw, err := c.cache.Get(ctx, key); err == nil {
		var envelope redisData
		if json.Unmarshal([]byte(raw), &envelope) == nil &&
			envelope.Kind == cacheKindLogical && envelope.ExpireAt.After(c.now()) {
			return nil
		}
	}

	value, err := fallback(ctx, id)
	if err != nil {
		return err
	}
	if value == nil {
		// the row is gone; stop serving the stale payload
		return c.cache.Delete(ctx, key)
	}
	return c.SetWithLogicalExpire(ctx, key, value, ttl)
}

// QueryWithMutex reads keyPrefix+id rebuilding misses synchronously under a
// per-key lock, so a hot key expiring costs one row-store load instead of a
// stampede. Competing readers retry on a fixed short sleep up to the
// client's retry ceiling, then fail with ErrLockBusy. Tombstones are written
// for loader misses, as in QueryWithPassThrough.
func QueryWithMutex[T any, ID any](
	ctx context.Context,
	c *CacheClient,
	keyPrefix string,
	id ID,
	fallback func(context.Context, ID) (*T, error),
	ttl time.Duration,
) (*T, error) {
	key := keyPrefix + fmt.Sprint(id)

	for attempt := 0; ; attempt++ {
		raw, err := c.cache.Get(ctx, key)
		if err == nil {
			if raw == "" {
				return nil, ErrNotFound
			}
			if value, ok := decodeValue[T](raw); ok {
				return value, nil
			}
			log.Warn().Str("key", key).Msg("cache payload malformed, rebuilding")
		} else if !errors.Is(err, ErrKeyAbsent) {
			return nil, err
		}

		lock := NewSimpleRedisLock(c.cache, c.lockNS, key)
		acquired, err := lock.TryLock(ctx, c.lockLease)
		if err != nil {
			return nil, err
		}
		if !acquired {
			if attempt >= c.maxRetries {
				return nil, ErrLockBusy
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.retrySleep):
			}
			continue
		}

		return rebuildWithMutex(ctx, c, lock, key, id, fallback, ttl)
	}
}

func rebuildWithMutex[T any, ID any](
	ctx context.Context,
	c *CacheClient,
	lock *SimpleRedisLock,
	key string,
	id ID,
	fallback func(context.Context, ID) (*T, error),
	ttl time.Duration,
) (*T, error) {
	defer func() {
		// detached from ctx: a cancelled request must still release the
		// lock instead of leaving it to lease expiry
		if unlockErr := lock.Unlock(context.WithoutCancel(ctx)); unlockErr != nil {
			log.Warn().Err(unlockErr).Str("key", key).Msg("mutex unlock failed")
		}
	}()

	// double check: the previous holder may have rebuilt while we waited
	if raw, err := c.cache.Get(ctx, key); err == nil {
		if raw == "" {
			return nil, ErrNotFound
		}
		if value, ok := decodeValue[T](raw); ok {
			return value, nil
		}
	}

	value, err := fallback(ctx, id)
	if err != nil {
		return nil, err
	}
	if value == nil {
		if setErr := c.cache.SetWithTTL(ctx, key, "", c.nullTTL); setErr != nil {
			log.Warn().Err(setErr).Str("key", key).Msg("failed to write tombstone")
		}
		return nil, ErrNotFound
	}
	if setErr := c.Set(ctx, key, value, ttl); setErr != nil {
		log.Warn().Err(setErr).Str("key", key).Msg("failed to refill cache")
	}
	return value, nil
}
