package http

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/quill/logging"
)

// DefaultCSRFHeader is the request header that must echo the CSRF cookie
const DefaultCSRFHeader = "X-CSRFToken"

const csrfTokenBytes = 32

// CSRFGuard implements the double-submit cookie check for unsafe methods
type CSRFGuard struct {
	cookies        CookieConfig
	header         string
	trustedOrigins map[string]struct{}
	logger         logging.Logger
}

// NewCSRFGuard creates a guard. An empty trustedOrigins list disables the
// Origin check.
func NewCSRFGuard(cookies CookieConfig, header string, trustedOrigins []string, logger logging.Logger) *CSRFGuard {
	if header == "" {
		header = DefaultCSRFHeader
	}
	if logger == nil {
		logger = logging.Nop()
	}

	origins := make(map[string]struct{}, len(trustedOrigins))
	for _, o := range trustedOrigins {
		origins[strings.TrimRight(strings.ToLower(o), "/")] = struct{}{}
	}

	return &CSRFGuard{
		cookies:        cookies,
		header:         header,
		trustedOrigins: origins,
		logger:         logger.With("component", "csrf"),
	}
}

// Issue handles GET /csrf. An existing well-formed token is reused so open
// tabs keep working.
func (g *CSRFGuard) Issue(c *gin.Context) {
	token, err := c.Cookie(g.cookies.CSRFName)
	if err != nil || !wellFormedCSRFToken(token) {
		token, err = generateCSRFToken()
		if err != nil {
			g.logger.Error(c.Request.Context(), "failed to generate csrf token", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate CSRF token"})
			return
		}
	}

	g.cookies.setCSRFCookie(c, token)
	c.JSON(http.StatusOK, gin.H{"csrf_token": token})
}

// Middleware rejects unsafe requests whose header does not match the cookie.
// It must run before any handler that touches credentials.
func (g *CSRFGuard) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if isSafeMethod(c.Request.Method) {
			c.Next()
			return
		}

		if !g.originAllowed(c.GetHeader("Origin")) {
			g.reject(c, "CSRF_ORIGIN", "Origin not allowed")
			return
		}

		expected, err := c.Cookie(g.cookies.CSRFName)
		if err != nil || expected == "" {
			g.reject(c, "CSRF_MISSING", "CSRF cookie not set")
			return
		}

		received := c.GetHeader(g.header)
		if subtle.ConstantTimeCompare([]byte(expected), []byte(received)) != 1 {
			g.reject(c, "CSRF_INVALID", "CSRF token mismatch")
			return
		}

		c.Next()
	}
}

func (g *CSRFGuard) reject(c *gin.Context, code, msg string) {
	g.logger.Warn(c.Request.Context(), "csrf check failed",
		"code", code, "method", c.Request.Method, "path", c.Request.URL.Path)
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
		"code":  code,
		"error": msg,
	})
}

func (g *CSRFGuard) originAllowed(origin string) bool {
	if len(g.trustedOrigins) == 0 || origin == "" {
		return true
	}
	_, ok := g.trustedOrigins[strings.TrimRight(strings.ToLower(origin), "/")]
	return ok
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

func generateCSRFToken() (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func wellFormedCSRFToken(token string) bool {
	if len(token) != hex.EncodedLen(csrfTokenBytes) {
		return false
	}
	_, err := hex.DecodeString(token)
	return err == nil
}
