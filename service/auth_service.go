package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/layer-3/quill/core"
	"github.com/layer-3/quill/logging"
	"github.com/layer-3/quill/ports"
)

// dummyIdentity is checked against when the identifier is unknown so a login
// for a missing account costs the same bcrypt comparison as a real one
var dummyIdentity = sync.OnceValue(func() *core.Identity {
	hash, err := core.HashPassword("quill-dummy-password")
	if err != nil {
		return &core.Identity{}
	}
	return &core.Identity{PasswordHash: hash}
})

// MinPasswordLength is the shortest password Register accepts
const MinPasswordLength = 8

// LoginResult is what a successful login hands back to the endpoint
type LoginResult struct {
	Identity *core.Identity
	Tokens   core.TokenPair
}

// AuthService handles authentication use cases. It is the only component
// HTTP endpoints call directly.
type AuthService struct {
	tokens     *TokenService
	identities ports.IdentityRegistry
	logger     logging.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(tokens *TokenService, identities ports.IdentityRegistry, logger logging.Logger) *AuthService {
	if logger == nil {
		logger = logging.Nop()
	}
	return &AuthService{
		tokens:     tokens,
		identities: identities,
		logger:     logger.With("component", "auth_service"),
	}
}

// Register creates an active account. It issues no credentials; the caller
// logs in afterwards. Every rejection, including a taken email, returns
// core.ErrRegistrationFailed.
func (s *AuthService) Register(ctx context.Context, email, password string) (*core.Identity, error) {
	email = core.NormalizeIdentifier(email)
	if email == "" || len(password) < MinPasswordLength {
		s.logger.Info(ctx, "registration rejected", "reason", "invalid input")
		return nil, core.ErrRegistrationFailed
	}

	identity, err := s.identities.Create(ctx, email, password, true)
	switch {
	case errors.Is(err, core.ErrIdentityExists):
		s.logger.Info(ctx, "registration rejected", "reason", "email taken")
		return nil, core.ErrRegistrationFailed
	case errors.Is(err, core.ErrStoreUnavailable):
		s.logger.Error(ctx, "identity create failed", "error", err)
		return nil, err
	case err != nil:
		s.logger.Error(ctx, "identity create failed", "error", err)
		return nil, core.ErrRegistrationFailed
	}

	s.logger.Info(ctx, "registration succeeded", "subject", identity.ID)
	return identity, nil
}

// Login checks the password of identifier and issues a new pair. Every
// rejection returns core.ErrInvalidCredentials; the cause is only logged.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (*LoginResult, error) {
	identifier = core.NormalizeIdentifier(identifier)
	if identifier == "" || password == "" {
		return nil, core.ErrInvalidCredentials
	}

	identity, err := s.identities.FindByIdentifier(ctx, identifier)
	switch {
	case errors.Is(err, core.ErrIdentityNotFound):
		dummyIdentity().CheckPassword(password)
		s.logger.Info(ctx, "login rejected", "reason", "unknown identifier")
		return nil, core.ErrInvalidCredentials
	case err != nil:
		s.logger.Error(ctx, "identity lookup failed", "error", err)
		return nil, storeErr(err)
	}

	if !identity.CheckPassword(password) {
		s.logger.Info(ctx, "login rejected", "reason", "wrong password", "subject", identity.ID)
		return nil, core.ErrInvalidCredentials
	}

	if !identity.IsActive {
		s.logger.Info(ctx, "login rejected", "reason", core.ErrIdentityInactive.Error(), "subject", identity.ID)
		return nil, core.ErrInvalidCredentials
	}

	pair, err := s.tokens.IssuePair(identity.ID)
	if err != nil {
		s.logger.Error(ctx, "failed to issue tokens", "subject", identity.ID, "error", err)
		return nil, err
	}

	s.logger.Info(ctx, "login succeeded", "subject", identity.ID)
	return &LoginResult{Identity: identity, Tokens: pair}, nil
}

// Logout revokes the refresh token. It always succeeds from the caller's
// point of view; store failures are logged.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) {
	if err := s.tokens.Revoke(ctx, refreshToken); err != nil {
		s.logger.Error(ctx, "failed to revoke refresh token on logout", "error", err)
	}
}

// Refresh rotates the refresh token and returns the new pair
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (core.TokenPair, error) {
	pair, err := s.tokens.Rotate(ctx, refreshToken)
	if err != nil {
		return core.TokenPair{}, s.collapse(ctx, "refresh", err)
	}
	return pair, nil
}

// Verify reports whether token is a valid access token
func (s *AuthService) Verify(ctx context.Context, token string) bool {
	if _, err := s.tokens.VerifyAccess(token); err != nil {
		s.logger.Debug(ctx, "access token rejected", "error", err)
		return false
	}
	return true
}

// collapse turns every token verification failure into core.ErrInvalidToken.
// System failures keep their kind so callers can tell an outage from a bad
// credential.
func (s *AuthService) collapse(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, core.ErrStoreUnavailable):
		s.logger.Error(ctx, op+" failed", "error", err)
		return err
	case errors.Is(err, core.ErrIssueFailed):
		s.logger.Error(ctx, op+" failed", "error", err)
		return err
	case core.IsTokenFailure(err):
		s.logger.Info(ctx, op+" rejected", "reason", err.Error())
		return core.ErrInvalidToken
	default:
		s.logger.Error(ctx, op+" failed", "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}
}
