package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	httpapi "github.com/aussiebroadwan/sessionauth/internal/auth/http"
	"github.com/aussiebroadwan/sessionauth/internal/auth/registry"
	"github.com/aussiebroadwan/sessionauth/internal/auth/service"
	"github.com/aussiebroadwan/sessionauth/internal/auth/store"
	"github.com/aussiebroadwan/sessionauth/internal/auth/store/drivers/postgres"
	"github.com/aussiebroadwan/sessionauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/sessionauth/pkg/cryptox"
	"github.com/aussiebroadwan/sessionauth/pkg/httpx"
	"github.com/aussiebroadwan/sessionauth/pkg/jwtx"
	"github.com/aussiebroadwan/sessionauth/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db          store.Store
	registry    registry.Registry
	redisClient *redis.Client // only with the redis registry

	issuer          *jwtx.Issuer
	accessVerifier  *jwtx.HS256Verifier
	refreshVerifier *jwtx.HS256Verifier

	// Services
	tokenService        *service.TokenService
	userService         *service.UserService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	gate   *bootGate
	router *httpapi.Router

	housekeeping bool
}

// New creates a new Application with its configuration checked, the logger
// and pepper loaded and the HTTP server built. Backends are connected by
// Init, until then the server only reports that it is starting.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "auth-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
		gate: newBootGate(BuildVersion),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)
	if err := cryptox.LoadPepper(); err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           app.gate,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return app, nil
}

// Init connects the store and registry, retrying as configured, then wires
// the services and opens the router to traffic. Cancelling ctx abandons the
// retries.
func (app *Application) Init(ctx context.Context) error {
	if err := app.initDatabase(ctx); err != nil {
		return err
	}

	if err := app.initRegistry(ctx); err != nil {
		_ = app.db.Close()
		app.db = nil
		return err
	}

	if err := app.initTokens(); err != nil {
		_ = app.closeBackends()
		return err
	}

	app.initServices()
	app.initHTTP()
	app.gate.ready(app.router)
	return nil
}

// Run starts listening straight away, connects the backends behind the boot
// gate and blocks until shutdown is requested.
func (app *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()
	app.logger.Info("auth service listening", "port", app.cfg.Port, "version", BuildVersion)

	if err := app.Init(ctx); err != nil {
		_ = app.Shutdown()
		if ctx.Err() != nil {
			app.logger.Info("shutdown signal received while starting")
			return nil
		}
		return fmt.Errorf("failed to initialize: %w", err)
	}

	// Start housekeeping service
	app.housekeepingService.Start()
	app.housekeeping = true

	app.logger.Info("auth service ready",
		"store", app.cfg.StoreDriver,
		"registry", app.cfg.Registry,
		"access_ttl", app.cfg.AccessTokenTTL,
		"refresh_ttl", app.cfg.RefreshTokenTTL,
	)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.stopHousekeeping()
			_ = app.closeBackends()
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		app.logger.Info("shutdown signal received")

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.stopHousekeeping()

	if err := app.closeBackends(); err != nil {
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// Handler exposes the server's handler, used by tests that drive the whole
// application without a listening socket. Before Init it answers as the
// listener does while starting.
func (app *Application) Handler() http.Handler {
	return app.gate
}

func (app *Application) stopHousekeeping() {
	if app.housekeeping {
		app.housekeepingService.Stop()
		app.housekeeping = false
	}
}

func (app *Application) closeBackends() error {
	var errs []error
	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
			errs = append(errs, err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", "error", err)
			errs = append(errs, err)
		}
	}
	app.redisClient, app.db = nil, nil
	return errors.Join(errs...)
}

// initDatabase opens the credential store, waits for it to answer and applies
// migrations. The process gives up after StoreConnectAttempts.
func (app *Application) initDatabase(ctx context.Context) error {
	var (
		db  store.Store
		err error
	)
	switch app.cfg.StoreDriver {
	case StorePostgres:
		db, err = postgres.NewStore(app.cfg.DatabaseURL)
	default:
		db, err = sqlite.NewStore(sqlite.DSN(app.cfg.DatabaseFile))
	}
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	err = connectWithRetry(ctx, app.logger, "store",
		app.cfg.StoreConnectAttempts, app.cfg.StoreConnectDelay, db.Ping)
	if err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}
	app.db = db

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.StoreDriver)
	return nil
}

// initRegistry picks where refresh tokens are tracked.
func (app *Application) initRegistry(ctx context.Context) error {
	switch app.cfg.Registry {
	case RegistryMemory:
		app.logger.Warn("refresh token registry is process-local, sessions will not survive a restart")
		app.registry = registry.NewMemory()
	case RegistryRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     app.cfg.RedisAddr,
			Password: app.cfg.RedisPassword,
			DB:       app.cfg.RedisDB,
		})
		err := connectWithRetry(ctx, app.logger, "redis",
			app.cfg.StoreConnectAttempts, app.cfg.StoreConnectDelay,
			func(ctx context.Context) error { return client.Ping(ctx).Err() })
		if err != nil {
			_ = client.Close()
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.redisClient = client
		app.registry = registry.NewRedis(client, app.cfg.RedisPrefix)
	default:
		app.registry = registry.NewStore(app.db)
	}

	app.logger.Info("refresh token registry ready", "backend", app.cfg.Registry)
	return nil
}

// initTokens builds the issuer and the two verifiers. Each token kind only
// verifies against its own secret.
func (app *Application) initTokens() error {
	access, refresh := []byte(app.cfg.AccessSecret), []byte(app.cfg.RefreshSecret)

	issuer, err := jwtx.NewIssuer(access, refresh, app.cfg.Issuer, app.cfg.AccessTokenTTL, app.cfg.RefreshTokenTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize token issuer: %w", err)
	}
	app.issuer = issuer

	accessOpts := jwtx.VerifyOptions{Issuer: app.cfg.Issuer, Audience: []string{jwtx.AudienceAccess}}
	refreshOpts := jwtx.VerifyOptions{Issuer: app.cfg.Issuer, Audience: []string{jwtx.AudienceRefresh}}
	if app.accessVerifier, err = jwtx.NewVerifierHS256(access, accessOpts); err != nil {
		return fmt.Errorf("failed to initialize access token verifier: %w", err)
	}
	if app.refreshVerifier, err = jwtx.NewVerifierHS256(refresh, refreshOpts); err != nil {
		return fmt.Errorf("failed to initialize refresh token verifier: %w", err)
	}
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.tokenService = &service.TokenService{
		Store:           app.db,
		Registry:        app.registry,
		Issuer:          app.issuer,
		RefreshVerifier: app.refreshVerifier,
	}

	app.userService = &service.UserService{
		Store:    app.db,
		Registry: app.registry,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.registry,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.accessVerifier,
		BuildVersion,
		app.db,
		app.logger,
	)

	// Wire services to router
	router.TokenService = app.tokenService
	router.UserService = app.userService
	router.CORS = httpx.CORSConfig{
		AllowedOrigins: app.cfg.CORSOrigins,
		AllowedMethods: httpx.DefaultCORSConfig.AllowedMethods,
		AllowedHeaders: httpx.DefaultCORSConfig.AllowedHeaders,
	}
	if rp, ok := app.registry.(httpapi.Pinger); ok {
		router.RegistryPinger = rp
	}
	router.ApplyRoutes()

	app.router = router
}
