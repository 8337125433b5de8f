package localping

import (
	"github.com/gin-gonic/gin"
)

// AuthContext is the per-request identity, set by TokenRefreshMiddleware
// and read by handlers. Identity always travels explicitly through the
// request context, never through ambient package state.
type AuthContext struct {
	UserID   int64
	NickName string
}

const authContextKey = "auth_context"

func SetAuthContext(c *gin.Context, auth AuthContext) {
	c.Set(authContextKey, auth)
}

// GetAuthContext returns the current auth context, or ErrUnauthorized when
// the request carries no authenticated user.
func GetAuthContext(c *gin.Context) (AuthContext, error) {
	value, exists := c.Get(authContextKey)
	if !exists {
		return AuthContext{}, ErrUnauthorized
	}
	auth, ok := value.(AuthContext)
	if !ok {
		return AuthContext{}, ErrUnauthorized
	}
	return auth, nil
}

// CurrentUserID is a shorthand for handlers that only need the id.
func CurrentUserID(c *gin.Context) (int64, error) {
	auth, err := GetAuthContext(c)
	if err != nil {
		return 0, err
	}
	return auth.UserID, nil
}
