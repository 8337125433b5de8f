package localping

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestGetAuthContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name         string
		setupContext func(*gin.Context)
		expectError  bool
		expectedAuth AuthContext
	}{
		{
			name: "authenticated request",
			setupContext: func(c *gin.Context) {
				SetAuthContext(c, AuthContext{UserID: 123, NickName: "jo"})
			},
			expectError:  false,
			expectedAuth: AuthContext{UserID: 123, NickName: "jo"},
		},
		{
			name:         "anonymous request",
			setupContext: func(c *gin.Context) {},
			expectError:  true,
		},
		{
			name: "wrong value type under the key",
			setupContext: func(c *gin.Context) {
				c.Set(authContextKey, "not an auth context")
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			tt.setupContext(c)

			auth, err := GetAuthContext(c)

			if tt.expectError {
				assert.ErrorIs(t, err, ErrUnauthorized)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.expectedAuth, auth)
			}
		})
	}
}

func TestCurrentUserID(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	_, err := CurrentUserID(c)
	assert.ErrorIs(t, err, ErrUnauthorized)

	SetAuthContext(c, AuthContext{UserID: 77, NickName: "amy"})
	id, err := CurrentUserID(c)
	assert.NoError(t, err)
	assert.Equal(t, int64(77), id)
}
