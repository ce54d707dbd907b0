package core

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Identity is the account a credential is issued to. It lives outside the
// credential core; tokens only ever carry its ID.
type Identity struct {
	ID           string
	Email        string
	PasswordHash string
	IsActive     bool
}

// CheckPassword compares raw against the stored bcrypt hash
func (i *Identity) CheckPassword(raw string) bool {
	if i == nil || i.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(i.PasswordHash), []byte(raw)) == nil
}

// HashPassword produces a bcrypt hash suitable for Identity.PasswordHash
func HashPassword(raw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// NormalizeIdentifier trims and lowercases a login identifier so lookups are
// case-insensitive.
func NormalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}
