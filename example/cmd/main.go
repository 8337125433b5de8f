package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/localping/localping"
)

func main() {
	redisClient, err := localping.NewRedisConfig().
		WithAddr(envOr("REDIS_ADDR", "localhost:6379")).
		Connect()
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer redisClient.Close()
	cache := localping.NewRedisCache(redisClient)

	db, err := localping.NewSQLConfig().
		WithDriver("postgres").
		WithHost(envOr("DB_HOST", "localhost"), 5432).
		WithCredentials(envOr("DB_USER", "postgres"), envOr("DB_PASSWORD", "postgres")).
		WithDatabase(envOr("DB_NAME", "localping")).
		Connect()
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	cacheClient := localping.NewCacheClient(cache)
	defer cacheClient.Close()
	idWorker := localping.NewIDWorker(cache)
	sessions := localping.NewSessionStore(cache)

	shopService := localping.NewShopService(localping.NewShopRepository(db), cacheClient)
	userService := localping.NewUserService(localping.NewUserRepository(db), sessions, localping.NewCrypt(), idWorker)
	seckillService := localping.NewSeckillService(
		localping.NewVoucherRepository(db),
		localping.NewOrderRepository(db),
		cache,
		idWorker,
	)

	// warm the hot shops so the logical-expire read path has entries to serve
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	for _, id := range []int64{1, 2, 3} {
		if err := shopService.WarmShopCache(ctx, id, 30*time.Minute); err != nil {
			log.Warn().Err(err).Int64("shop_id", id).Msg("shop warmup skipped")
		}
	}
	cancel()

	server := localping.New().DefaultCORS()
	server.RegisterGroups(localping.RouterGroup{
		Path:       "/api/v1",
		Middleware: []gin.HandlerFunc{localping.TokenRefreshMiddleware(sessions)},
		Controllers: []localping.Controller{
			localping.NewShopController(shopService),
			localping.NewUserController(userService),
			localping.NewVoucherOrderController(seckillService),
		},
	})

	if err := server.Start(8080); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
