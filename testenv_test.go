package localping

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"

	goredis "github.com/go-redis/redis/v8"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/stretchr/testify/assert"
	tcpg "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

const testSchema = `
CREATE TABLE IF NOT EXISTS shops (
    id         BIGINT PRIMARY KEY,
    name       TEXT NOT NULL,
    type_id    BIGINT NOT NULL DEFAULT 0,
    area       TEXT NOT NULL DEFAULT '',
    address    TEXT NOT NULL DEFAULT '',
    avg_price  BIGINT NOT NULL DEFAULT 0,
    sold       INT NOT NULL DEFAULT 0,
    comments   INT NOT NULL DEFAULT 0,
    score      INT NOT NULL DEFAULT 0,
    open_hours TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS users (
    id         BIGINT PRIMARY KEY,
    phone      TEXT NOT NULL UNIQUE,
    password   TEXT NOT NULL,
    nick_name  TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS seckill_vouchers (
    id         BIGINT PRIMARY KEY,
    shop_id    BIGINT NOT NULL,
    title      TEXT NOT NULL,
    stock      INT NOT NULL,
    begin_time TIMESTAMPTZ NOT NULL,
    end_time   TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS voucher_orders (
    id         BIGINT PRIMARY KEY,
    user_id    BIGINT NOT NULL,
    voucher_id BIGINT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_voucher_orders_user_voucher
    ON voucher_orders (user_id, voucher_id);
`

var (
	testRedisCache *RedisCache
	onceRedis      sync.Once

	testDB *sql.DB
	oncePG sync.Once
)

// setupRedis starts a shared redis container on first use and flushes the
// database before each test.
func setupRedis(t *testing.T) *RedisCache {
	if testing.Short() {
		t.Skip("skipping redis test in short mode")
	}

	onceRedis.Do(func() {
		ctx := context.Background()

		redisContainer, err := tcredis.Run(ctx, "redis:7-alpine")
		if err != nil {
			panic(fmt.Sprintf("Failed to start redis container: %v", err))
		}

		connStr, err := redisContainer.ConnectionString(ctx)
		if err != nil {
			panic(fmt.Sprintf("Failed to get redis connection string: %v", err))
		}

		opts, err := goredis.ParseURL(connStr)
		if err != nil {
			panic(fmt.Sprintf("Failed to parse redis connection string: %v", err))
		}

		client := goredis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			panic(fmt.Sprintf("Failed to ping redis: %v", err))
		}

		testRedisCache = NewRedisCache(client)
	})

	err := testRedisCache.Client().FlushDB(context.Background()).Err()
	assert.NoError(t, err)

	return testRedisCache
}

// setupPostgres starts a shared postgres container on first use, applies the
// schema, and truncates every table before each test.
func setupPostgres(t *testing.T) *sql.DB {
	if testing.Short() {
		t.Skip("skipping postgres test in short mode")
	}

	oncePG.Do(func() {
		ctx := context.Background()

		pgContainer, err := tcpg.Run(ctx,
			"postgres:13-alpine",
			tcpg.WithDatabase("testdb"),
			tcpg.WithUsername("postgres"),
			tcpg.WithPassword("password"),
			tcpg.BasicWaitStrategies(),
		)
		if err != nil {
			panic(fmt.Sprintf("Failed to start PostgreSQL container: %v", err))
		}

		connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			panic(fmt.Sprintf("Failed to get PostgreSQL connection string: %v", err))
		}

		testDB, err = sql.Open("postgres", connStr)
		if err != nil {
			panic(fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		}
		if err = testDB.Ping(); err != nil {
			panic(fmt.Sprintf("Failed to ping PostgreSQL: %v", err))
		}

		if _, err = testDB.Exec(testSchema); err != nil {
			panic(fmt.Sprintf("Failed to create test schema: %v", err))
		}
	})

	_, err := testDB.Exec("TRUNCATE TABLE shops, users, seckill_vouchers, voucher_orders")
	assert.NoError(t, err)

	return testDB
}
