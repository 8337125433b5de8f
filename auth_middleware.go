package localping

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// SessionStore keeps the logged-in user's DTO in a redis hash keyed by the
// login token id, with a sliding TTL: every authenticated request pushes the
// expiry out again, so sessions die of inactivity, not of age.
type SessionStore struct {
	cache *RedisCache
	ttl   time.Duration
}

func NewSessionStore(cache *RedisCache) *SessionStore {
	return &SessionStore{cache: cache, ttl: LoginTokenTTL}
}

func (s *SessionStore) Save(ctx context.Context, tokenID string, user UserDTO) error {
	key := loginTokenKey(tokenID)
	err := s.cache.HSet(ctx, key, map[string]interface{}{
		"id":       strconv.FormatInt(user.ID, 10),
		"nickName": user.NickName,
	})
	if err != nil {
		return err
	}
	return s.cache.Expire(ctx, key, s.ttl)
}

func (s *SessionStore) Load(ctx context.Context, tokenID string) (UserDTO, bool, error) {
	fields, err := s.cache.HGetAll(ctx, loginTokenKey(tokenID))
	if err != nil {
		return UserDTO{}, false, err
	}
	if len(fields) == 0 {
		return UserDTO{}, false, nil
	}
	id, err := strconv.ParseInt(fields["id"], 10, 64)
	if err != nil {
		return UserDTO{}, false, nil
	}
	return UserDTO{ID: id, NickName: fields["nickName"]}, true, nil
}

func (s *SessionStore) Refresh(ctx context.Context, tokenID string) error {
	return s.cache.Expire(ctx, loginTokenKey(tokenID), s.ttl)
}

func (s *SessionStore) Drop(ctx context.Context, tokenID string) error {
	return s.cache.Delete(ctx, loginTokenKey(tokenID))
}

// TokenRefreshMiddleware restores the auth context from the request token
// and slides the session TTL. It never rejects: requests without a valid
// session simply proceed anonymous, and LoginRequiredMiddleware decides
// which routes need identity.
func TokenRefreshMiddleware(sessions *SessionStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}

		_, tokenID, err := ParseLoginToken(token)
		if err != nil {
			c.Next()
			return
		}

		user, found, err := sessions.Load(c.Request.Context(), tokenID)
		if err != nil {
			log.Warn().Err(err).Msg("session load failed")
			c.Next()
			return
		}
		if !found {
			c.Next()
			return
		}

		SetAuthContext(c, AuthContext{UserID: user.ID, NickName: user.NickName})
		if err := sessions.Refresh(c.Request.Context(), tokenID); err != nil {
			log.Warn().Err(err).Msg("session refresh failed")
		}
		c.Next()
	}
}

// LoginRequiredMiddleware rejects requests that reached it without an auth
// context.
func LoginRequiredMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := GetAuthContext(c); err != nil {
			SendError(c, ErrUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}
