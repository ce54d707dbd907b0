package codec

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/layer-3/quill/core"
)

// MinKeyLength is the shortest HMAC key NewJWTCodec accepts
const MinKeyLength = 32

// Config holds the signing parameters of a JWTCodec
type Config struct {
	SigningKey []byte
	Issuer     string
	Audience   string
}

// Option customizes a JWTCodec
type Option func(*JWTCodec)

// WithClock replaces the time source used for expiry checks
func WithClock(now func() time.Time) Option {
	return func(c *JWTCodec) {
		c.now = now
	}
}

// JWTCodec encodes claims as HS256 JSON Web Tokens
type JWTCodec struct {
	key      []byte
	issuer   string
	audience string
	now      func() time.Time
	parser   *jwt.Parser
}

// NewJWTCodec creates a codec signing with cfg.SigningKey
func NewJWTCodec(cfg Config, opts ...Option) (*JWTCodec, error) {
	if len(cfg.SigningKey) < MinKeyLength {
		return nil, fmt.Errorf("signing key must be at least %d bytes", MinKeyLength)
	}

	c := &JWTCodec{
		key:      append([]byte(nil), cfg.SigningKey...),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithStrictDecoding(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
	}
	if c.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(c.issuer))
	}
	if c.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(c.audience))
	}
	c.parser = jwt.NewParser(parserOpts...)

	return c, nil
}

// Encode signs claims and returns the compact token
func (c *JWTCodec) Encode(claims core.Claims) (string, error) {
	if !claims.Kind.Valid() {
		return "", fmt.Errorf("unknown token kind %q", claims.Kind)
	}
	if claims.SubjectID == "" || claims.ID == "" {
		return "", errors.New("subject and id are required")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, newTokenClaims(claims, c.issuer, c.audience))

	signed, err := token.SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Decode verifies the signature of token before looking at any claim, then
// checks expiry and claim shape.
func (c *JWTCodec) Decode(token string) (core.Claims, error) {
	segments := strings.Split(token, ".")
	if len(segments) != 3 {
		return core.Claims{}, core.ErrMalformedToken
	}

	// Non-canonical base64 in the signature counts as tampering, not as a parse error.
	sig, err := base64.RawURLEncoding.Strict().DecodeString(segments[2])
	if err != nil {
		return core.Claims{}, core.ErrBadSignature
	}
	if err := jwt.SigningMethodHS256.Verify(segments[0]+"."+segments[1], sig, c.key); err != nil {
		return core.Claims{}, core.ErrBadSignature
	}

	claims := &tokenClaims{}
	if _, err := c.parser.ParseWithClaims(token, claims, c.keyFunc); err != nil {
		return core.Claims{}, mapParseError(err)
	}

	return claims.toCore()
}

func (c *JWTCodec) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return c.key, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return core.ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return core.ErrBadSignature
	default:
		return fmt.Errorf("%w: %v", core.ErrMalformedToken, err)
	}
}
