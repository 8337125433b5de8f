package localping

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	MinIdleConns int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

func NewRedisConfig() *RedisConfig {
	return &RedisConfig{
		Addr:         "localhost:6379",
		PoolSize:     10,
		MinIdleConns: 5,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

func (c *RedisConfig) WithAddr(addr string) *RedisConfig {
	c.Addr = addr
	return c
}

func (c *RedisConfig) WithPassword(password string) *RedisConfig {
	c.Password = password
	return c
}

func (c *RedisConfig) WithDB(db int) *RedisConfig {
	c.DB = db
	return c
}

func (c *RedisConfig) WithPool(size, minIdle int) *RedisConfig {
	c.PoolSize = size
	c.MinIdleConns = minIdle
	return c
}

func (c *RedisConfig) Connect() (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %v", err)
	}
	return client, nil
}

// RedisCache is a thin typed wrapper over the backing store. It owns no
// caching policy; every operation is a remote round-trip and any store
// failure surfaces as ErrStoreUnavailable.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (r *RedisCache) Client() *redis.Client {
	return r.client
}

// Get returns the raw value for key, or ErrKeyAbsent when the key does not
// exist.
func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	val, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrKeyAbsent
	}
	if err != nil {
		return "", storeErr(err)
	}
	return val, nil
}

func (r *RedisCache) SetWithTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	return storeErr(r.client.Set(ctx, key, value, ttl).Err())
}

// SetNoTTL stores a value that never physically expires. Used by the
// logical-expiration encoding, which embeds its own expiry timestamp.
func (r *RedisCache) SetNoTTL(ctx context.Context, key, value string) error {
	return storeErr(r.client.Set(ctx, key, value, 0).Err())
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return storeErr(r.client.Del(ctx, key).Err())
}

// SetNX performs an atomic set-if-absent-with-expiry, the primitive behind
// SimpleRedisLock.
func (r *RedisCache) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, storeErr(err)
	}
	return ok, nil
}

// Incr atomically increments a shared counter, the primitive behind IDWorker.
func (r *RedisCache) Incr(ctx context.Context, key string) (int64, error) {
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, storeErr(err)
	}
	return n, nil
}

// Eval runs a server-side script as a single indivisible operation.
func (r *RedisCache) Eval(ctx context.Context, script string, keys []string, args ...interface{}) (interface{}, error) {
	res, err := r.client.Eval(ctx, script, keys, args...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, storeErr(err)
	}
	return res, nil
}

func (r *RedisCache) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, storeErr(err)
	}
	return m, nil
}

func (r *RedisCache) HSet(ctx context.Context, key string, values map[string]interface{}) error {
	return storeErr(r.client.HSet(ctx, key, values).Err())
}

func (r *RedisCache) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return storeErr(r.client.Expire(ctx, key, ttl).Err())
}
