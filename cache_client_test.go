package localping

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type testItem struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

const testItemKeyPrefix = "cache:item:"

func newTestCacheClient(t *testing.T) (*CacheClient, *RedisCache) {
	cache := setupRedis(t)
	client := NewCacheClient(cache)
	t.Cleanup(client.Close)
	return client, cache
}

func countingLoader(item *testItem, err error) (func(context.Context, int64) (*testItem, error), *int32) {
	var calls int32
	return func(ctx context.Context, id int64) (*testItem, error) {
		atomic.AddInt32(&calls, 1)
		return item, err
	}, &calls
}

func TestCacheClient_PassThrough_MissThenHit(t *testing.T) {
	client, _ := newTestCacheClient(t)
	ctx := context.Background()

	loader, calls := countingLoader(&testItem{ID: 1, Name: "coffee"}, nil)

	got, err := QueryWithPassThrough(ctx, client, testItemKeyPrefix, int64(1), loader, time.Minute)
	assert.NoError(t, err)
	assert.Equal(t, "coffee", got.Name)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))

	// second read is served from cache
	got, err = QueryWithPassThrough(ctx, client, testItemKeyPrefix, int64(1), loader, time.Minute)
	assert.NoError(t, err)
	assert.Equal(t, "coffee", got.Name)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestCacheClient_PassThrough_TombstoneStopsPenetration(t *testing.T) {
	client, cache := newTestCacheClient(t)
	ctx := context.Background()

	loader, calls := countingLoader(nil, nil)

	_, err := QueryWithPassThrough(ctx, client, testItemKeyPrefix, int64(404), loader, time.Minute)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))

	// the tombstone absorbs every repeat until it expires
	for i := 0; i < 5; i++ {
		_, err = QueryWithPassThrough(ctx, client, testItemKeyPrefix, int64(404), loader, time.Minute)
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))

	raw, err := cache.Get(ctx, testItemKeyPrefix+"404")
	assert.NoError(t, err)
	assert.Empty(t, raw)
}

func TestCacheClient_PassThrough_LoaderErrorIsNotCached(t *testing.T) {
	client, cache := newTestCacheClient(t)
	ctx := context.Background()

	loadErr := errors.New("row store down")
	loader, calls := countingLoader(nil, loadErr)

	_, err := QueryWithPassThrough(ctx, client, testItemKeyPrefix, int64(2), loader, time.Minute)
	assert.ErrorIs(t, err, loadErr)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))

	// no tombstone was written; the next read hits the loader again
	_, err = cache.Get(ctx, testItemKeyPrefix+"2")
	assert.ErrorIs(t, err, ErrKeyAbsent)

	_, err = QueryWithPassThrough(ctx, client, testItemKeyPrefix, int64(2), loader, time.Minute)
	assert.ErrorIs(t, err, loadErr)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestCacheClient_PassThrough_MalformedPayloadRebuilds(t *testing.T) {
	client, cache := newTestCacheClient(t)
	ctx := context.Background()

	assert.NoError(t, cache.SetWithTTL(ctx, testItemKeyPrefix+"3", "{not json", time.Minute))

	loader, calls := countingLoader(&testItem{ID: 3, Name: "pizza"}, nil)
	got, err := QueryWithPassThrough(ctx, client, testItemKeyPrefix, int64(3), loader, time.Minute)
	assert.NoError(t, err)
	assert.Equal(t, "pizza", got.Name)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestCacheClient_LogicalExpire_ColdKeyIsNotFound(t *testing.T) {
	client, _ := newTestCacheClient(t)
	ctx := context.Background()

	loader, calls := countingLoader(&testItem{ID: 5, Name: "ramen"}, nil)

	_, err := QueryWithLogicalExpire(ctx, client, testItemKeyPrefix, int64(5), loader, time.Minute)
	assert.ErrorIs(t, err, ErrNotFound)
	// cold keys never touch the row store
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestCacheClient_LogicalExpire_FreshEntryServedDirectly(t *testing.T) {
	client, _ := newTestCacheClient(t)
	ctx := context.Background()

	assert.NoError(t, client.SetWithLogicalExpire(ctx, testItemKeyPrefix+"6", &testItem{ID: 6, Name: "sushi"}, time.Minute))

	loader, calls := countingLoader(&testItem{ID: 6, Name: "stale"}, nil)
	got, err := QueryWithLogicalExpire(ctx, client, testItemKeyPrefix, int64(6), loader, time.Minute)
	assert.NoError(t, err)
	assert.Equal(t, "sushi", got.Name)
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestCacheClient_LogicalExpire_StaleServedWhileRebuilding(t *testing.T) {
	client, _ := newTestCacheClient(t)
	ctx := context.Background()

	// warm an already-expired entry
	assert.NoError(t, client.SetWithLogicalExpire(ctx, testItemKeyPrefix+"7", &testItem{ID: 7, Name: "old"}, -time.Minute))

	loader, calls := countingLoader(&testItem{ID: 7, Name: "new"}, nil)

	got, err := QueryWithLogicalExpire(ctx, client, testItemKeyPrefix, int64(7), loader, time.Minute)
	assert.NoError(t, err)
	// the stale payload comes back immediately
	assert.Equal(t, "old", got.Name)

	// the background rebuild refreshes the entry
	assert.Eventually(t, func() bool {
		got, err := QueryWithLogicalExpire(ctx, client, testItemKeyPrefix, int64(7), loader, time.Minute)
		return err == nil && got.Name == "new"
	}, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestCacheClient_LogicalExpire_SingleRebuilderUnderConcurrency(t *testing.T) {
	client, _ := newTestCacheClient(t)
	ctx := context.Background()

	assert.NoError(t, client.SetWithLogicalExpire(ctx, testItemKeyPrefix+"8", &testItem{ID: 8, Name: "old"}, -time.Minute))

	var calls int32
	loader := func(lctx context.Context, id int64) (*testItem, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(50 * time.Millisecond)
		return &testItem{ID: 8, Name: "new"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := QueryWithLogicalExpire(ctx, client, testItemKeyPrefix, int64(8), loader, time.Minute)
			assert.NoError(t, err)
			assert.NotNil(t, got)
		}()
	}
	wg.Wait()

	assert.Eventually(t, func() bool {
		got, err := QueryWithLogicalExpire(ctx, client, testItemKeyPrefix, int64(8), loader, time.Minute)
		return err == nil && got.Name == "new"
	}, 2*time.Second, 20*time.Millisecond)

	// the lock admits one rebuilder per lease, not one per reader
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCacheClient_LogicalExpire_RowGoneDropsEntry(t *testing.T) {
	client, cache := newTestCacheClient(t)
	ctx := context.Background()

	assert.NoError(t, client.SetWithLogicalExpire(ctx, testItemKeyPrefix+"9", &testItem{ID: 9, Name: "gone"}, -time.Minute))

	loader, _ := countingLoader(nil, nil)

	got, err := QueryWithLogicalExpire(ctx, client, testItemKeyPrefix, int64(9), loader, time.Minute)
	assert.NoError(t, err)
	assert.Equal(t, "gone", got.Name)

	assert.Eventually(t, func() bool {
		_, err := cache.Get(ctx, testItemKeyPrefix+"9")
		return errors.Is(err, ErrKeyAbsent)
	}, 2*time.Second, 20*time.Millisecond)
}

func TestCacheClient_Mutex_MissRebuildsOnce(t *testing.T) {
	client, _ := newTestCacheClient(t)
	ctx := context.Background()

	var calls int32
	loader := func(lctx context.Context, id int64) (*testItem, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(50 * time.Millisecond)
		return &testItem{ID: 10, Name: "taco"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := QueryWithMutex(ctx, client, testItemKeyPrefix, int64(10), loader, time.Minute)
			assert.NoError(t, err)
			assert.Equal(t, "taco", got.Name)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestCacheClient_Mutex_GivesUpWhenLockHeld(t *testing.T) {
	client, cache := newTestCacheClient(t)
	client.WithRetryPolicy(2, 10*time.Millisecond)
	ctx := context.Background()

	// hold the rebuild lock for the key from elsewhere
	holder := NewSimpleRedisLock(cache, CacheLockNamespace, testItemKeyPrefix+"11")
	acquired, err := holder.TryLock(ctx, 10*time.Second)
	assert.NoError(t, err)
	assert.True(t, acquired)
	defer holder.Unlock(ctx)

	loader, calls := countingLoader(&testItem{ID: 11, Name: "never"}, nil)
	_, err = QueryWithMutex(ctx, client, testItemKeyPrefix, int64(11), loader, time.Minute)
	assert.ErrorIs(t, err, ErrLockBusy)
	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestCacheClient_Mutex_TombstoneOnMiss(t *testing.T) {
	client, _ := newTestCacheClient(t)
	ctx := context.Background()

	loader, calls := countingLoader(nil, nil)

	_, err := QueryWithMutex(ctx, client, testItemKeyPrefix, int64(12), loader, time.Minute)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = QueryWithMutex(ctx, client, testItemKeyPrefix, int64(12), loader, time.Minute)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestCacheClient_ValueReadRejectsLogicalEnvelope(t *testing.T) {
	client, _ := newTestCacheClient(t)
	ctx := context.Background()

	// a logical-expiration entry lands under a key the plain paths read
	assert.NoError(t, client.SetWithLogicalExpire(ctx, testItemKeyPrefix+"20", &testItem{ID: 20, Name: "warm"}, time.Minute))

	loader, calls := countingLoader(&testItem{ID: 20, Name: "fresh"}, nil)

	// the envelope is rejected and rebuilt, never decoded into a zero value
	got, err := QueryWithPassThrough(ctx, client, testItemKeyPrefix, int64(20), loader, time.Minute)
	assert.NoError(t, err)
	assert.Equal(t, int64(20), got.ID)
	assert.Equal(t, "fresh", got.Name)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))

	assert.NoError(t, client.Delete(ctx, testItemKeyPrefix+"20"))
	assert.NoError(t, client.SetWithLogicalExpire(ctx, testItemKeyPrefix+"20", &testItem{ID: 20, Name: "warm"}, time.Minute))

	got, err = QueryWithMutex(ctx, client, testItemKeyPrefix, int64(20), loader, time.Minute)
	assert.NoError(t, err)
	assert.Equal(t, int64(20), got.ID)
	assert.Equal(t, "fresh", got.Name)
}

func TestCacheClient_LogicalReadRejectsValueEntry(t *testing.T) {
	client, _ := newTestCacheClient(t)
	ctx := context.Background()

	assert.NoError(t, client.Set(ctx, testItemKeyPrefix+"21", &testItem{ID: 21, Name: "plain"}, time.Minute))

	loader, _ := countingLoader(&testItem{ID: 21, Name: "reloaded"}, nil)

	// a value-kind entry is never served as if it were a warmed envelope
	_, err := QueryWithLogicalExpire(ctx, client, testItemKeyPrefix, int64(21), loader, time.Minute)
	assert.ErrorIs(t, err, ErrNotFound)

	// the scheduled rebuild rewrites the key in the envelope encoding
	assert.Eventually(t, func() bool {
		got, err := QueryWithLogicalExpire(ctx, client, testItemKeyPrefix, int64(21), loader, time.Minute)
		return err == nil && got.Name == "reloaded"
	}, 2*time.Second, 20*time.Millisecond)
}

func TestCacheClient_Mutex_ReleasesLockOnCancelledContext(t *testing.T) {
	client, cache := newTestCacheClient(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	loader := func(lctx context.Context, id int64) (*testItem, error) {
		cancel()
		return &testItem{ID: 30, Name: "late"}, nil
	}

	got, err := QueryWithMutex(ctx, client, testItemKeyPrefix, int64(30), loader, time.Minute)
	assert.NoError(t, err)
	assert.Equal(t, "late", got.Name)

	// released immediately, not left to lease expiry
	_, err = cache.Get(context.Background(), lockKey(CacheLockNamespace, testItemKeyPrefix+"30"))
	assert.ErrorIs(t, err, ErrKeyAbsent)
}

func TestCacheClient_DeleteInvalidates(t *testing.T) {
	client, _ := newTestCacheClient(t)
	ctx := context.Background()

	loader, calls := countingLoader(&testItem{ID: 13, Name: "v1"}, nil)

	_, err := QueryWithPassThrough(ctx, client, testItemKeyPrefix, int64(13), loader, time.Minute)
	assert.NoError(t, err)

	assert.NoError(t, client.Delete(ctx, testItemKeyPrefix+"13"))

	_, err = QueryWithPassThrough(ctx, client, testItemKeyPrefix, int64(13), loader, time.Minute)
	assert.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}
