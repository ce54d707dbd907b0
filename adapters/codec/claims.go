package codec

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/quill/core"
)

// tokenClaims combines standard claims with the credential kind
type tokenClaims struct {
	jwt.RegisteredClaims
	Kind core.TokenKind `json:"token_type"`
}

func newTokenClaims(c core.Claims, issuer, audience string) tokenClaims {
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.SubjectID,
			ID:        c.ID,
			IssuedAt:  jwt.NewNumericDate(c.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(c.ExpiresAt),
			Issuer:    issuer,
		},
		Kind: c.Kind,
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}
	return claims
}

func (t *tokenClaims) toCore() (core.Claims, error) {
	if !t.Kind.Valid() || t.ID == "" || t.Subject == "" || t.ExpiresAt == nil {
		return core.Claims{}, core.ErrMalformedToken
	}

	claims := core.Claims{
		SubjectID: t.Subject,
		Kind:      t.Kind,
		ExpiresAt: t.ExpiresAt.Time,
		ID:        t.ID,
	}
	if t.IssuedAt != nil {
		claims.IssuedAt = t.IssuedAt.Time
	}
	return claims, nil
}
