package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/quill/core"
	"github.com/layer-3/quill/logging"
	"github.com/layer-3/quill/ports"
)

// TokenConfig holds the lifetimes the token service mints with
type TokenConfig struct {
	AccessTTL    time.Duration
	RefreshTTL   time.Duration
	StoreTimeout time.Duration // Zero disables the per-call deadline
}

// Validate checks that access credentials outlive neither refresh credentials nor zero
func (c TokenConfig) Validate() error {
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	if c.AccessTTL >= c.RefreshTTL {
		return fmt.Errorf("access TTL %s must be shorter than refresh TTL %s", c.AccessTTL, c.RefreshTTL)
	}
	if c.StoreTimeout < 0 {
		return errors.New("store timeout must not be negative")
	}
	return nil
}

// Option customizes a TokenService
type Option func(*TokenService)

// WithClock replaces the time source used for issued_at and expires_at
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) {
		s.now = now
	}
}

// TokenService is the only component that mints or invalidates credentials
type TokenService struct {
	codec  ports.Codec
	store  ports.RevocationStore
	events ports.EventPublisher
	logger logging.Logger
	cfg    TokenConfig
	now    func() time.Time
}

// NewTokenService creates a new token service. events may be nil.
func NewTokenService(
	codec ports.Codec,
	store ports.RevocationStore,
	events ports.EventPublisher,
	logger logging.Logger,
	cfg TokenConfig,
	opts ...Option,
) (*TokenService, error) {
	if codec == nil || store == nil {
		return nil, errors.New("codec and revocation store are required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Nop()
	}

	s := &TokenService{
		codec:  codec,
		store:  store,
		events: events,
		logger: logger.With("component", "token_service"),
		cfg:    cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// IssueAccess mints a short-lived access credential for subjectID
func (s *TokenService) IssueAccess(subjectID string) (core.Credential, error) {
	return s.issue(subjectID, core.KindAccess, s.cfg.AccessTTL)
}

// IssueRefresh mints a long-lived refresh credential for subjectID
func (s *TokenService) IssueRefresh(subjectID string) (core.Credential, error) {
	return s.issue(subjectID, core.KindRefresh, s.cfg.RefreshTTL)
}

// IssuePair mints an access and a refresh credential with distinct ids
func (s *TokenService) IssuePair(subjectID string) (core.TokenPair, error) {
	access, err := s.IssueAccess(subjectID)
	if err != nil {
		return core.TokenPair{}, err
	}

	refresh, err := s.IssueRefresh(subjectID)
	if err != nil {
		return core.TokenPair{}, err
	}

	return core.TokenPair{Access: access, Refresh: refresh}, nil
}

func (s *TokenService) issue(subjectID string, kind core.TokenKind, ttl time.Duration) (core.Credential, error) {
	if subjectID == "" {
		return core.Credential{}, fmt.Errorf("%w: empty subject", core.ErrIssueFailed)
	}

	// JWT NumericDate has second precision
	now := s.now().UTC().Truncate(time.Second)
	claims := core.Claims{
		SubjectID: subjectID,
		Kind:      kind,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
		ID:        uuid.NewString(),
	}

	token, err := s.codec.Encode(claims)
	if err != nil {
		return core.Credential{}, fmt.Errorf("%w: %v", core.ErrIssueFailed, err)
	}

	return core.Credential{Token: token, Claims: claims}, nil
}

// VerifyAccess returns the subject of a valid access token. The revocation
// store is not consulted.
func (s *TokenService) VerifyAccess(token string) (string, error) {
	claims, err := s.codec.Decode(token)
	if err != nil {
		return "", err
	}
	if claims.Kind != core.KindAccess {
		return "", core.ErrWrongKind
	}
	return claims.SubjectID, nil
}

// VerifyRefresh returns the subject and id of a valid, unrevoked refresh token
func (s *TokenService) VerifyRefresh(ctx context.Context, token string) (string, string, error) {
	claims, err := s.verifyRefresh(ctx, token)
	if err != nil {
		return "", "", err
	}
	return claims.SubjectID, claims.ID, nil
}

func (s *TokenService) verifyRefresh(ctx context.Context, token string) (core.Claims, error) {
	claims, err := s.codec.Decode(token)
	if err != nil {
		return core.Claims{}, err
	}
	if claims.Kind != core.KindRefresh {
		return core.Claims{}, core.ErrWrongKind
	}

	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	revoked, err := s.store.Contains(ctx, claims.ID)
	if err != nil {
		return core.Claims{}, storeErr(err)
	}
	if revoked {
		return core.Claims{}, core.ErrTokenRevoked
	}

	return claims, nil
}

// Rotate spends a refresh token and returns a brand new pair for the same
// subject. The old id is recorded before the new pair is minted.
func (s *TokenService) Rotate(ctx context.Context, token string) (core.TokenPair, error) {
	old, err := s.verifyRefresh(ctx, token)
	if err != nil {
		return core.TokenPair{}, err
	}

	added, err := s.add(ctx, old.ID, old.ExpiresAt)
	if err != nil {
		return core.TokenPair{}, err
	}
	if !added {
		// Another request rotated the same token first
		return core.TokenPair{}, core.ErrTokenRevoked
	}

	pair, err := s.IssuePair(old.SubjectID)
	if err != nil {
		s.logger.Error(ctx, "refresh token spent but new pair could not be issued",
			"subject", old.SubjectID, "jti", old.ID, "error", err)
		return core.TokenPair{}, err
	}

	s.publish(ctx, old, core.ReasonRotation)
	return pair, nil
}

// Revoke records a refresh token as spent. Tokens that cannot be decoded,
// have already expired or are not refresh tokens need no record and are
// ignored; only store failures are returned.
func (s *TokenService) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	claims, err := s.codec.Decode(token)
	if err != nil {
		s.logger.Debug(ctx, "ignoring undecodable token on revoke", "error", err)
		return nil
	}
	if claims.Kind != core.KindRefresh {
		return nil
	}

	added, err := s.add(ctx, claims.ID, claims.ExpiresAt)
	if err != nil {
		return err
	}
	if added {
		s.publish(ctx, claims, core.ReasonLogout)
	}
	return nil
}

func (s *TokenService) add(ctx context.Context, id string, notValidAfter time.Time) (bool, error) {
	ctx, cancel := s.storeContext(ctx)
	defer cancel()

	added, err := s.store.Add(ctx, id, notValidAfter)
	if err != nil {
		return false, storeErr(err)
	}
	return added, nil
}

func (s *TokenService) publish(ctx context.Context, claims core.Claims, reason core.RevocationReason) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishRevocation(ctx, claims.SubjectID, claims.ID, reason); err != nil {
		s.logger.Warn(ctx, "failed to publish revocation event",
			"subject", claims.SubjectID, "jti", claims.ID, "reason", reason, "error", err)
	}
}

func (s *TokenService) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

// storeErr makes sure every store failure, timeouts included, is reported
// as core.ErrStoreUnavailable
func storeErr(err error) error {
	if errors.Is(err, core.ErrStoreUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", core.ErrStoreUnavailable, err)
}
