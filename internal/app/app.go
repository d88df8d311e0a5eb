package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	httpapi "github.com/musterapp/muster/internal/http"
	"github.com/musterapp/muster/internal/service"
	"github.com/musterapp/muster/internal/session"
	"github.com/musterapp/muster/internal/store"
	"github.com/musterapp/muster/internal/store/drivers/sqlite"
	"github.com/musterapp/muster/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"

	serviceName = "muster"
)

// Application encapsulates the service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db    store.Store
	cache session.Cache

	tokenService        *service.TokenService
	userService         *service.UserService
	eventService        *service.EventService
	housekeepingService *service.HousekeepingService

	server *http.Server
}

// New creates a new Application instance with all dependencies initialized.
// The config is validated eagerly; a bad config never produces a half-started
// service.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: serviceName,
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initSessionCache(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()

	if err := app.eventService.SeedCatalog(context.Background(), defaultCatalog); err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to seed catalog: %w", err)
	}

	app.initHTTP()

	return app, nil
}

// defaultCatalog is inserted on first run so the public catalog endpoints have
// something to serve before any curation happens.
var defaultCatalog = []service.CatalogSeed{
	{Category: "social", Subcategories: []string{"board games", "trivia", "meetup"}},
	{Category: "sport", Subcategories: []string{"football", "climbing", "running"}},
	{Category: "food", Subcategories: []string{"dinner", "bbq", "picnic"}},
	{Category: "arts", Subcategories: []string{"music", "theatre", "workshop"}},
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("muster starting", "port", app.cfg.Port, "version", BuildVersion,
		"session_cache", app.cfg.SessionCacheBackend)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down muster...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("muster stopped")
	return nil
}

func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initSessionCache() error {
	switch app.cfg.SessionCacheBackend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     app.cfg.RedisAddr,
			Password: app.cfg.RedisPassword,
			DB:       app.cfg.RedisDB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis at %s: %w", app.cfg.RedisAddr, err)
		}

		app.cache = session.NewRedisCache(client)
		app.logger.Info("session cache backend: redis", "addr", app.cfg.RedisAddr)
	default:
		app.cache = session.NewMemoryCache()
		app.logger.Info("session cache backend: memory")
	}
	return nil
}

func (app *Application) initServices() {
	app.tokenService = &service.TokenService{
		Store:            app.db,
		Cache:            app.cache,
		TokenSize:        app.cfg.TokenSizeBytes,
		AccessTTL:        app.cfg.AccessTokenTTL,
		RefreshTTL:       app.cfg.RefreshTokenTTL,
		MaxTokensPerUser: app.cfg.MaxTokensPerUser,
	}

	app.userService = &service.UserService{Store: app.db}
	app.eventService = &service.EventService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(httpapi.RouterConfig{
		Logger: app.logger,
		Cache:  app.cache,
		Auth: &httpapi.AuthHandler{
			Users:  app.userService,
			Tokens: app.tokenService,
		},
		Events:  &httpapi.EventHandler{Events: app.eventService},
		Catalog: &httpapi.CatalogHandler{Events: app.eventService},
		System: &httpapi.SystemHandler{
			Store:   app.db,
			Service: serviceName,
			Version: BuildVersion,
		},
	})

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
