package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/quill/core"
)

// CookieConfig describes the cookies the auth endpoints read and write
type CookieConfig struct {
	AccessName  string
	RefreshName string
	CSRFName    string
	Domain      string
	Path        string
	Secure      bool

	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
	CSRFMaxAge    time.Duration
}

func (cfg CookieConfig) path() string {
	if cfg.Path == "" {
		return "/"
	}
	return cfg.Path
}

// setTokenCookies writes both credentials as HttpOnly cookies
func (cfg CookieConfig) setTokenCookies(c *gin.Context, pair core.TokenPair) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.AccessName, pair.Access.Token, seconds(cfg.AccessMaxAge), cfg.path(), cfg.Domain, cfg.Secure, true)
	c.SetCookie(cfg.RefreshName, pair.Refresh.Token, seconds(cfg.RefreshMaxAge), cfg.path(), cfg.Domain, cfg.Secure, true)
}

// clearTokenCookies expires both credential cookies
func (cfg CookieConfig) clearTokenCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.AccessName, "", -1, cfg.path(), cfg.Domain, cfg.Secure, true)
	c.SetCookie(cfg.RefreshName, "", -1, cfg.path(), cfg.Domain, cfg.Secure, true)
}

// setCSRFCookie writes the CSRF token readable by scripts
func (cfg CookieConfig) setCSRFCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(cfg.CSRFName, token, seconds(cfg.CSRFMaxAge), cfg.path(), cfg.Domain, cfg.Secure, false)
}

func seconds(d time.Duration) int {
	return int(d / time.Second)
}
