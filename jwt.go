package localping

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
)

// Login tokens are JWTs whose jti keys the redis session holding the
// UserDTO; the token itself carries no session state. The JWT expiry is a
// hard ceiling, the redis TTL the sliding one.
const loginTokenLifetime = 24 * time.Hour

func loginTokenSecret() []byte {
	return []byte(os.Getenv("JWT_SECRET"))
}

// GenerateLoginToken issues a signed token for userID and returns the token
// plus its id, which callers use as the session key.
func GenerateLoginToken(userID int64) (string, string, error) {
	tokenID := uuid.New().String()
	now := time.Now()
	claims := &jwt.StandardClaims{
		ExpiresAt: now.Add(loginTokenLifetime).Unix(),
		Id:        tokenID,
		IssuedAt:  now.Unix(),
		Issuer:    "localping",
		Subject:   strconv.FormatInt(userID, 10),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(loginTokenSecret())
	if err != nil {
		return "", "", err
	}
	return signed, tokenID, nil
}

// ParseLoginToken validates a token and returns the user id and token id.
func ParseLoginToken(tokenString string) (int64, string, error) {
	claims := &jwt.StandardClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return loginTokenSecret(), nil
	})
	if err != nil {
		return 0, "", err
	}
	if !token.Valid {
		return 0, "", errors.New("login token is invalid")
	}
	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, "", errors.New("login token subject is invalid")
	}
	return userID, claims.Id, nil
}
