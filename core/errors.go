package core

import "errors"

// Token verification failures. These are reported by the codec and token service and
// are collapsed into ErrInvalidToken before they reach a client.
var (
	ErrMalformedToken = errors.New("malformed token")
	ErrBadSignature   = errors.New("invalid token signature")
	ErrTokenExpired   = errors.New("token has expired")
	ErrWrongKind      = errors.New("wrong token kind")
	ErrTokenRevoked   = errors.New("token has been revoked")
)

// Identity lookup failures reported by the identity store.
var (
	ErrIdentityNotFound = errors.New("identity not found")
	ErrIdentityInactive = errors.New("identity is inactive")
	ErrIdentityExists   = errors.New("identity already exists")
)

// System failures. These are never collapsed into a credential error.
var (
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrIssueFailed      = errors.New("token issuance failed")
)

// Outcomes visible to callers of the auth service.
var (
	ErrInvalidToken       = errors.New("invalid or expired credential")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrRegistrationFailed = errors.New("registration failed")
)

// IsTokenFailure reports whether err is one of the token verification kinds
func IsTokenFailure(err error) bool {
	return errors.Is(err, ErrMalformedToken) ||
		errors.Is(err, ErrBadSignature) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrWrongKind) ||
		errors.Is(err, ErrTokenRevoked)
}
