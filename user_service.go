package localping

import (
	"context"
	"errors"

	"github.com/localping/localping/security"
)

// UserService is the identity provider: it authenticates users against the
// row store and maintains their redis login sessions.
type UserService struct {
	repo     *UserRepository
	sessions *SessionStore
	encoder  security.PasswordEncoder
	idWorker *IDWorker
}

func NewUserService(repo *UserRepository, sessions *SessionStore, encoder security.PasswordEncoder, idWorker *IDWorker) *UserService {
	return &UserService{
		repo:     repo,
		sessions: sessions,
		encoder:  encoder,
		idWorker: idWorker,
	}
}

// Register creates a user with a cluster-unique id and a hashed password.
func (s *UserService) Register(ctx context.Context, phone, password, nickName string) (*User, error) {
	if _, err := s.repo.FindByPhone(ctx, phone); err == nil {
		return nil, ApiError{ErrorCode: "PHONE_TAKEN", Message: "phone is already registered"}
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := s.encoder.GetPasswordHash(password)
	if err != nil {
		return nil, err
	}

	id, err := s.idWorker.NextID(ctx, "user")
	if err != nil {
		return nil, err
	}

	user := User{
		ID:       id,
		Phone:    phone,
		Password: hash,
		NickName: nickName,
	}
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login verifies credentials and opens a session. It returns the signed
// login token the client sends back on every request.
func (s *UserService) Login(ctx context.Context, phone, password string) (string, error) {
	user, err := s.repo.FindByPhone(ctx, phone)
	if errors.Is(err, ErrNotFound) {
		return "", ErrBadCredentials
	}
	if err != nil {
		return "", err
	}
	if !s.encoder.IsMatching(user.Password, password) {
		return "", ErrBadCredentials
	}

	token, tokenID, err := GenerateLoginToken(user.ID)
	if err != nil {
		return "", err
	}
	if err := s.sessions.Save(ctx, tokenID, UserDTO{ID: user.ID, NickName: user.NickName}); err != nil {
		return "", err
	}
	return token, nil
}

// Logout drops the session behind token, invalidating it cluster-wide.
func (s *UserService) Logout(ctx context.Context, token string) error {
	_, tokenID, err := ParseLoginToken(token)
	if err != nil {
		return ErrUnauthorized
	}
	return s.sessions.Drop(ctx, tokenID)
}
