package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/quill/logging"
)

// RouterConfig holds everything SetupRouter wires together
type RouterConfig struct {
	Auth           Authenticator
	Extractor      *CredentialExtractor
	CSRF           *CSRFGuard
	Cookies        CookieConfig
	AllowedOrigins []string // CORS; empty disables the CORS middleware
	Logger         logging.Logger
}

// SetupRouter sets up the Gin router
func SetupRouter(cfg RouterConfig) *gin.Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}

	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(logger))

	if len(cfg.AllowedOrigins) > 0 {
		corsConfig := cors.DefaultConfig()
		corsConfig.AllowOrigins = cfg.AllowedOrigins
		corsConfig.AllowCredentials = true
		corsConfig.AllowHeaders = []string{
			"Origin",
			"Content-Type",
			"Accept",
			cfg.CSRF.header,
		}
		corsConfig.MaxAge = 12 * time.Hour
		router.Use(cors.New(corsConfig))
	}

	handlers := NewAuthHandlers(cfg.Auth, cfg.Cookies, cfg.Extractor)

	router.GET("/healthz", handlers.Health)

	// CSRF runs before anything that touches credentials
	auth := router.Group("/api/auth")
	auth.Use(cfg.CSRF.Middleware(), cfg.Extractor.Middleware())
	{
		auth.GET("/csrf", cfg.CSRF.Issue)
		auth.POST("/register", handlers.Register)
		auth.POST("/login", handlers.Login)
		auth.POST("/logout", handlers.Logout)
		auth.POST("/refresh", handlers.Refresh)
		auth.GET("/verify", handlers.Verify)
		auth.POST("/verify", handlers.Verify)
		auth.GET("/me", cfg.Extractor.RequireAuth(), handlers.Me)
	}

	return router
}
