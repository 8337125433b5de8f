package security

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"os"
	"strconv"

	"golang.org/x/crypto/pbkdf2"
)

// PBKDF2Encoder is an alternative encoder for deployments that mandate a
// site-wide secret pepper. Most setups use the bcrypt Crypt instead.
type PBKDF2Encoder struct {
	Secret    string
	Iteration int
	KeyLength int
}

func NewPBKDF2Encoder(secret string, iteration, keyLength int) *PBKDF2Encoder {
	return &PBKDF2Encoder{Secret: secret, Iteration: iteration, KeyLength: keyLength}
}

func NewPBKDF2EncoderFromEnv() *PBKDF2Encoder {
	secret := os.Getenv("PBKDF2_ENCODER_SECRET")
	iteration, err := strconv.ParseInt(os.Getenv("PBKDF2_ENCODER_ITERATION"), 10, 64)
	if err != nil {
		panic("ENCODER_ITERATIONS_MISSING")
	}
	keyLength, err := strconv.ParseInt(os.Getenv("PBKDF2_ENCODER_KEY_LENGTH"), 10, 64)
	if err != nil {
		panic("ENCODER_KEY_LENGTH_MISSING")
	}
	return NewPBKDF2Encoder(secret, int(iteration), int(keyLength))
}

func (p PBKDF2Encoder) GetPasswordHash(password string) (string, error) {
	hash := pbkdf2.Key([]byte(password), []byte(p.Secret), p.Iteration, p.KeyLength, sha512.New)
	encoded := base64.StdEncoding.EncodeToString(hash)
	return encoded, nil
}

func (p PBKDF2Encoder) IsMatching(hash, password string) bool {
	encoded, _ := p.GetPasswordHash(password)
	return subtle.ConstantTimeCompare([]byte(encoded), []byte(hash)) == 1
}
