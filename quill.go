// Package quill assembles the credential service from its configuration:
// stores, token codec, services, event publisher, sweeper and HTTP router.
package quill

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/layer-3/quill/adapters/codec"
	"github.com/layer-3/quill/adapters/events"
	"github.com/layer-3/quill/adapters/identity"
	"github.com/layer-3/quill/adapters/store"
	"github.com/layer-3/quill/config"
	"github.com/layer-3/quill/jobs"
	"github.com/layer-3/quill/logging"
	"github.com/layer-3/quill/migrations"
	"github.com/layer-3/quill/ports"
	"github.com/layer-3/quill/service"
	transport "github.com/layer-3/quill/transport/http"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 15 * time.Second

// App is a fully wired service instance
type App struct {
	Router      *gin.Engine
	Tokens      *service.TokenService
	Auth        *service.AuthService
	Revocations ports.RevocationStore
	Identities  ports.IdentityRegistry
	Sweeper     *jobs.Sweeper

	cfg       *config.Config
	logger    logging.Logger
	redis     redis.UniversalClient
	db        *sql.DB
	publisher message.Publisher
	scheduler *jobs.Scheduler
}

// New connects to the configured backends and wires the service. The caller
// must Close the returned App.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger) (app *App, err error) {
	if logger == nil {
		logger = logging.Nop()
	}

	app = &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	if err := app.connect(ctx); err != nil {
		return nil, err
	}
	if err := app.buildStores(); err != nil {
		return nil, err
	}
	if err := app.buildPublisher(); err != nil {
		return nil, err
	}
	if err := app.buildServices(); err != nil {
		return nil, err
	}

	return app, nil
}

func (a *App) connect(ctx context.Context) error {
	if a.cfg.RedisURL != "" {
		opts, err := redis.ParseURL(a.cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		a.redis = redis.NewClient(opts)
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
	}

	if a.usesPostgres() {
		db, err := sql.Open("pgx", a.cfg.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		a.db = db
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := migrations.Up(ctx, db); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	return nil
}

func (a *App) usesPostgres() bool {
	return a.cfg.RevocationBackend == config.BackendPostgres || a.cfg.IdentityBackend == config.BackendPostgres
}

func (a *App) buildStores() error {
	switch a.cfg.RevocationBackend {
	case config.BackendMemory:
		a.Revocations = store.NewMemoryStore()
	case config.BackendRedis:
		if a.redis == nil {
			return errors.New("redis revocation backend needs REDIS_URL")
		}
		a.Revocations = store.NewRedisStore(a.redis)
	case config.BackendPostgres:
		a.Revocations = store.NewPostgresStore(a.db)
	default:
		return fmt.Errorf("unknown revocation backend %q", a.cfg.RevocationBackend)
	}

	switch a.cfg.IdentityBackend {
	case config.BackendMemory:
		a.Identities = identity.NewMemoryStore()
	case config.BackendPostgres:
		a.Identities = identity.NewPostgresStore(a.db)
	default:
		return fmt.Errorf("unknown identity backend %q", a.cfg.IdentityBackend)
	}

	return nil
}

// buildPublisher publishes revocations to Redis Streams when Redis is
// configured, otherwise to an in-process channel.
func (a *App) buildPublisher() error {
	wmLogger := events.NewWatermillLogger(a.logger)

	if a.redis != nil {
		publisher, err := redisstream.NewPublisher(
			redisstream.PublisherConfig{
				Client: a.redis,
			},
			wmLogger,
		)
		if err != nil {
			return fmt.Errorf("failed to create Redis publisher: %w", err)
		}
		a.publisher = publisher
		return nil
	}

	a.publisher = gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
	return nil
}

func (a *App) buildServices() error {
	jwtCodec, err := codec.NewJWTCodec(codec.Config{
		SigningKey: []byte(a.cfg.SigningKey),
		Issuer:     a.cfg.Issuer,
		Audience:   a.cfg.Audience,
	})
	if err != nil {
		return err
	}

	a.Tokens, err = service.NewTokenService(
		jwtCodec,
		a.Revocations,
		events.NewWatermillPublisher(a.publisher),
		a.logger,
		service.TokenConfig{
			AccessTTL:    a.cfg.AccessTTL,
			RefreshTTL:   a.cfg.RefreshTTL,
			StoreTimeout: a.cfg.StoreTimeout,
		},
	)
	if err != nil {
		return err
	}

	a.Auth = service.NewAuthService(a.Tokens, a.Identities, a.logger)
	a.Sweeper = jobs.NewSweeper(a.Revocations, a.logger)

	cookies := transport.CookieConfig{
		AccessName:    a.cfg.AccessCookieName,
		RefreshName:   a.cfg.RefreshCookieName,
		CSRFName:      a.cfg.CSRFCookieName,
		Domain:        a.cfg.CookieDomain,
		Path:          a.cfg.CookiePath,
		Secure:        a.cfg.SecureCookies(),
		AccessMaxAge:  a.cfg.AccessTTL,
		RefreshMaxAge: a.cfg.RefreshTTL,
		CSRFMaxAge:    a.cfg.CSRFCookieMaxAge,
	}

	a.Router = transport.SetupRouter(transport.RouterConfig{
		Auth:           a.Auth,
		Extractor:      transport.NewCredentialExtractor(a.Tokens, a.Identities, cookies.AccessName, a.logger),
		CSRF:           transport.NewCSRFGuard(cookies, a.cfg.CSRFHeaderName, a.cfg.CSRFTrustedOrigins, a.logger),
		Cookies:        cookies,
		AllowedOrigins: a.cfg.CORSAllowedOrigins,
		Logger:         a.logger,
	})

	return nil
}

// StartBackground starts the revocation sweep. Redis expires records on its
// own; the other backends are swept through asynq when Redis is available and
// by an in-process ticker otherwise.
func (a *App) StartBackground(ctx context.Context) error {
	if a.cfg.RevocationBackend == config.BackendRedis {
		return nil
	}

	if a.cfg.RedisURL != "" {
		scheduler, err := jobs.NewScheduler(a.cfg.RedisURL, a.cfg.SweepInterval, a.Sweeper, a.logger)
		if err != nil {
			return err
		}
		if err := scheduler.Start(); err != nil {
			return err
		}
		a.scheduler = scheduler
		return nil
	}

	go a.Sweeper.Run(ctx, a.cfg.SweepInterval)
	return nil
}

// Run serves HTTP on the configured address until ctx is done, then shuts the
// server down gracefully
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if err := a.StartBackground(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info(ctx, "starting HTTP server", "addr", a.cfg.HTTPAddr, "env", a.cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info(context.Background(), "shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Close releases every connection the App opened
func (a *App) Close() error {
	var errs []error

	if a.scheduler != nil {
		a.scheduler.Shutdown()
	}
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close database: %w", err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}

	return errors.Join(errs...)
}
