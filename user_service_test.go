package localping

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newUserService(t *testing.T) (*UserService, *SessionStore) {
	t.Setenv("JWT_SECRET", "test-secret")
	db := setupPostgres(t)
	cache := setupRedis(t)
	sessions := NewSessionStore(cache)
	return NewUserService(NewUserRepository(db), sessions, NewCrypt(), NewIDWorker(cache)), sessions
}

func TestUserService_RegisterAndLogin(t *testing.T) {
	service, sessions := newUserService(t)
	ctx := context.Background()

	user, err := service.Register(ctx, "13800000001", "s3cret", "amy")
	assert.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.NotEqual(t, "s3cret", user.Password)

	token, err := service.Login(ctx, "13800000001", "s3cret")
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	userID, tokenID, err := ParseLoginToken(token)
	assert.NoError(t, err)
	assert.Equal(t, user.ID, userID)

	dto, found, err := sessions.Load(ctx, tokenID)
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, UserDTO{ID: user.ID, NickName: "amy"}, dto)
}

func TestUserService_RegisterDuplicatePhone(t *testing.T) {
	service, _ := newUserService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, "13800000002", "pw", "bo")
	assert.NoError(t, err)

	_, err = service.Register(ctx, "13800000002", "pw", "cal")
	assert.Error(t, err)
	apiErr, ok := err.(ApiError)
	assert.True(t, ok)
	assert.Equal(t, "PHONE_TAKEN", apiErr.ErrorCode)
}

func TestUserService_LoginRejectsBadCredentials(t *testing.T) {
	service, _ := newUserService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, "13800000003", "right", "dee")
	assert.NoError(t, err)

	_, err = service.Login(ctx, "13800000003", "wrong")
	assert.ErrorIs(t, err, ErrBadCredentials)

	// unknown phones fail the same way as wrong passwords
	_, err = service.Login(ctx, "13899999999", "right")
	assert.ErrorIs(t, err, ErrBadCredentials)
}

func TestUserService_Logout(t *testing.T) {
	service, sessions := newUserService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, "13800000004", "pw", "eli")
	assert.NoError(t, err)

	token, err := service.Login(ctx, "13800000004", "pw")
	assert.NoError(t, err)

	assert.NoError(t, service.Logout(ctx, token))

	_, tokenID, err := ParseLoginToken(token)
	assert.NoError(t, err)
	_, found, err := sessions.Load(ctx, tokenID)
	assert.NoError(t, err)
	assert.False(t, found)
}
