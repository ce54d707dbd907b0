package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/quill/core"
	"github.com/layer-3/quill/logging"
	"github.com/layer-3/quill/ports"
)

const principalKey = "quill.principal"

// AccessVerifier resolves an access token to its subject
type AccessVerifier interface {
	VerifyAccess(token string) (string, error)
}

// Principal is the authenticated caller of a request
type Principal struct {
	Identity *core.Identity
	Token    string // Raw access token the caller presented
}

// principalMemo caches the outcome of Authenticate, including "anonymous"
type principalMemo struct {
	principal *Principal
}

// CredentialExtractor authenticates requests from the access cookie
type CredentialExtractor struct {
	verifier   AccessVerifier
	identities ports.IdentityStore
	cookieName string
	logger     logging.Logger
}

// NewCredentialExtractor creates a new extractor
func NewCredentialExtractor(verifier AccessVerifier, identities ports.IdentityStore, cookieName string, logger logging.Logger) *CredentialExtractor {
	if logger == nil {
		logger = logging.Nop()
	}
	return &CredentialExtractor{
		verifier:   verifier,
		identities: identities,
		cookieName: cookieName,
		logger:     logger.With("component", "credential_extractor"),
	}
}

// Authenticate returns the caller of the request, or false for anonymous
// requests. A bad cookie looks exactly like a missing one. The result is
// memoized on the request.
func (e *CredentialExtractor) Authenticate(c *gin.Context) (*Principal, bool) {
	if v, ok := c.Get(principalKey); ok {
		if memo, ok := v.(*principalMemo); ok {
			return memo.principal, memo.principal != nil
		}
	}

	p := e.authenticate(c)
	c.Set(principalKey, &principalMemo{principal: p})
	return p, p != nil
}

func (e *CredentialExtractor) authenticate(c *gin.Context) *Principal {
	token, err := c.Cookie(e.cookieName)
	if err != nil {
		return nil
	}
	if strings.TrimSpace(token) == "" {
		return nil
	}

	ctx := c.Request.Context()
	subject, err := e.verifier.VerifyAccess(token)
	if err != nil {
		e.logger.Warn(ctx, "access token rejected",
			"reason", err.Error(), "path", c.Request.URL.Path, "user_agent", c.Request.UserAgent())
		return nil
	}

	identity, err := e.identities.FindByID(ctx, subject)
	if err != nil {
		e.logger.Warn(ctx, "access token subject could not be resolved", "subject", subject, "error", err)
		return nil
	}
	if !identity.IsActive {
		e.logger.Warn(ctx, "access token subject is inactive", "subject", subject)
		return nil
	}

	return &Principal{Identity: identity, Token: token}
}

// Middleware resolves the caller once so later handlers read the memo
func (e *CredentialExtractor) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		e.Authenticate(c)
		c.Next()
	}
}

// RequireAuth aborts anonymous requests with 401
func (e *CredentialExtractor) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := e.Authenticate(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			return
		}
		c.Next()
	}
}

// CurrentPrincipal returns the principal memoized on the request, if any
func CurrentPrincipal(c *gin.Context) (*Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	memo, ok := v.(*principalMemo)
	if !ok || memo.principal == nil {
		return nil, false
	}
	return memo.principal, true
}

