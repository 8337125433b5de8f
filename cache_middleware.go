package localping

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// CacheKeyGenerator defines a function to generate a cache key from the request
type CacheKeyGenerator func(c *gin.Context) string

type cacheWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *cacheWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *cacheWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// DefaultKeyGenerator generates a key based on the request URL and query parameters
func DefaultKeyGenerator(c *gin.Context) string {
	url := c.Request.URL.String()
	hash := sha256.Sum256([]byte(url))
	return "cache:http:" + hex.EncodeToString(hash[:])
}

// CacheMiddleware caches successful GET responses in the backing store.
// A store outage is treated as a miss; the request proceeds uncached.
func CacheMiddleware(cache *RedisCache, duration time.Duration, keyGen CacheKeyGenerator) gin.HandlerFunc {
	if keyGen == nil {
		keyGen = DefaultKeyGenerator
	}

	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		key := keyGen(c)

		cached, err := cache.Get(c.Request.Context(), key)
		if err == nil && cached != "" {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(cached))
			c.Abort()
			return
		}
		if err != nil && !errors.Is(err, ErrKeyAbsent) {
			log.Warn().Err(err).Msg("response cache unavailable")
		}

		c.Header("X-Cache", "MISS")
		writer := &cacheWriter{
			ResponseWriter: c.Writer,
			body:           &bytes.Buffer{},
		}
		c.Writer = writer

		c.Next()

		if c.Writer.Status() == http.StatusOK {
			if err := cache.SetWithTTL(c.Request.Context(), key, writer.body.String(), duration); err != nil {
				log.Warn().Err(err).Msg("failed to cache response")
			}
		}
	}
}
