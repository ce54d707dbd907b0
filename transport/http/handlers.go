package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/quill/core"
	"github.com/layer-3/quill/service"
)

// Authenticator is the orchestration surface the handlers depend on
type Authenticator interface {
	Register(ctx context.Context, email, password string) (*core.Identity, error)
	Login(ctx context.Context, identifier, password string) (*service.LoginResult, error)
	Logout(ctx context.Context, refreshToken string)
	Refresh(ctx context.Context, refreshToken string) (core.TokenPair, error)
	Verify(ctx context.Context, token string) bool
}

// AuthHandlers contains HTTP handlers for auth endpoints
type AuthHandlers struct {
	auth      Authenticator
	cookies   CookieConfig
	extractor *CredentialExtractor
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(auth Authenticator, cookies CookieConfig, extractor *CredentialExtractor) *AuthHandlers {
	return &AuthHandlers{
		auth:      auth,
		cookies:   cookies,
		extractor: extractor,
	}
}

// Register creates an account. It sets no cookies; the client logs in next.
func (h *AuthHandlers) Register(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Registration failed"})
		return
	}

	identity, err := h.auth.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Registered",
		"user": gin.H{
			"id":    identity.ID,
			"email": identity.Email,
		},
	})
}

// Login handles the login request
func (h *AuthHandlers) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	res, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	h.cookies.setTokenCookies(c, res.Tokens)
	c.JSON(http.StatusOK, gin.H{
		"message": "Logged in",
		"user": gin.H{
			"id":    res.Identity.ID,
			"email": res.Identity.Email,
		},
	})
}

// Logout revokes the refresh cookie and clears both credential cookies. It
// needs no valid access cookie and always answers 200.
func (h *AuthHandlers) Logout(c *gin.Context) {
	if refreshToken, err := c.Cookie(h.cookies.RefreshName); err == nil && refreshToken != "" {
		h.auth.Logout(c.Request.Context(), refreshToken)
	}

	h.cookies.clearTokenCookies(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Refresh rotates the refresh cookie
func (h *AuthHandlers) Refresh(c *gin.Context) {
	refreshToken, err := c.Cookie(h.cookies.RefreshName)
	if err != nil || refreshToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh credential missing"})
		return
	}

	pair, err := h.auth.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		writeError(c, err)
		return
	}

	h.cookies.setTokenCookies(c, pair)
	c.JSON(http.StatusOK, gin.H{"message": "Credentials refreshed"})
}

// Verify reports whether an access token is valid. The token comes from the
// JSON body when given, otherwise from the access cookie.
func (h *AuthHandlers) Verify(c *gin.Context) {
	var req struct {
		Token string `json:"token"`
	}
	if c.Request.Method == http.MethodPost && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
	}

	token := req.Token
	if token == "" {
		token, _ = c.Cookie(h.cookies.AccessName)
	}

	c.JSON(http.StatusOK, gin.H{"valid": token != "" && h.auth.Verify(c.Request.Context(), token)})
}

// Me returns the authenticated identity
func (h *AuthHandlers) Me(c *gin.Context) {
	p, ok := h.extractor.Authenticate(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":    p.Identity.ID,
		"email": p.Identity.Email,
	})
}

// Health is the liveness probe
func (h *AuthHandlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
