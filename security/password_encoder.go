// Package security holds the password hashing contracts used by the
// identity provider.
package security

type PasswordEncoder interface {
	GetPasswordHash(password string) (string, error)
	IsMatching(hash, password string) bool
}
