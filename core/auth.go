package core

import "time"

// TokenKind tells access and refresh credentials apart
type TokenKind string

const (
	// KindAccess is a short-lived credential presented on every request
	KindAccess TokenKind = "access"

	// KindRefresh is a long-lived credential used only to obtain a new pair
	KindRefresh TokenKind = "refresh"
)

// Valid reports whether k is one of the known kinds
func (k TokenKind) Valid() bool {
	return k == KindAccess || k == KindRefresh
}

// Claims is the signed content of a credential
type Claims struct {
	SubjectID string    // Identity the credential was issued to
	Kind      TokenKind // access or refresh
	IssuedAt  time.Time // When the credential was minted
	ExpiresAt time.Time // When the credential stops being accepted
	ID        string    // Random unique identifier (jti)
}

// Credential is an issued token together with the claims it carries
type Credential struct {
	Token  string
	Claims Claims
}

// TTL returns the lifetime the credential was issued with
func (c Credential) TTL() time.Duration {
	return c.Claims.ExpiresAt.Sub(c.Claims.IssuedAt)
}

// TokenPair is what login and refresh hand back to the client
type TokenPair struct {
	Access  Credential
	Refresh Credential
}

// RevocationRecord marks a refresh token id as spent
type RevocationRecord struct {
	ID            string
	NotValidAfter time.Time
}

// RevocationReason says why a refresh token was revoked
type RevocationReason string

const (
	ReasonLogout   RevocationReason = "logout"
	ReasonRotation RevocationReason = "rotation"
)
