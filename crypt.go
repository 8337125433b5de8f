package localping

import "golang.org/x/crypto/bcrypt"

// Crypt is the default password encoder, bcrypt-backed. It satisfies
// security.PasswordEncoder.
type Crypt struct {
}

func NewCrypt() *Crypt {
	return &Crypt{}
}

func (Crypt) GetPasswordHash(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (Crypt) IsMatching(hash, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
