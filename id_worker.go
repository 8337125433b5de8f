package localping

import (
	"context"
	"time"
)

const (
	// idEpochSecond is 2022-01-01T00:00:00Z, the custom epoch the timestamp
	// half of every generated id counts from.
	idEpochSecond int64 = 1640995200

	// idCounterBits is how far the timestamp is shifted left to make room
	// for the per-day counter.
	idCounterBits = 32
)

// IDWorker issues collision-free 63-bit ids across every process sharing the
// backing store: seconds since the custom epoch in the high bits, a per-day
// atomic counter in the low 32. Counter keys carry the calendar day, so the
// counter restarts daily and per-day order volumes fall out of the keys for
// free. Ids are roughly increasing over time; they are not strictly ordered
// per process when clocks regress.
type IDWorker struct {
	cache *RedisCache
	now   func() time.Time
}

func NewIDWorker(cache *RedisCache) *IDWorker {
	return &IDWorker{cache: cache, now: time.Now}
}

func (w *IDWorker) NextID(ctx context.Context, prefix string) (int64, error) {
	now := w.now().UTC()
	timestamp := now.Unix() - idEpochSecond

	count, err := w.cache.Incr(ctx, idCounterKey(prefix, now.Format("2006:01:02")))
	if err != nil {
		return 0, err
	}

	return timestamp<<idCounterBits | count, nil
}
