// ===========================================
// LinkTrack - Main Entry Point
// ===========================================
// RESPONSIBILITY:
// 1. Load configuration
// 2. Open the link store (Postgres or SQLite) and optional Redis cache
// 3. Wire services, handlers and the router
// 4. Serve until SIGINT/SIGTERM, then shut down gracefully
//
// If any critical dependency fails at startup, exit immediately.
// ===========================================

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/user/linktrack/internal/config"
	"github.com/user/linktrack/internal/database"
	"github.com/user/linktrack/internal/handler"
	"github.com/user/linktrack/internal/logger"
	"github.com/user/linktrack/internal/repository"
	"github.com/user/linktrack/internal/service"
)

// Version is set at build time using ldflags.
// go build -ldflags "-X main.Version=1.0.0"
var Version = "dev"

func main() {
	// Missing .env is fine; production sets real env vars.
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.Log)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	log.Info().
		Str("version", Version).
		Str("port", cfg.Server.Port).
		Str("storage", cfg.Storage.Driver).
		Msg("starting linktrack")

	// Startup gets 30 seconds to reach every dependency.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// ===========================================
	// Storage
	// ===========================================
	store, checks, closeStore, err := openStore(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}
	defer closeStore()

	var links repository.LinkStore = store
	if cfg.Redis.Enabled {
		cache, err := database.NewRedisDB(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer cache.Close()

		links = repository.NewCachedLinkStore(store, cache, cfg.Redis.CacheTTL, log)
		checks["redis"] = cache
		log.Info().Dur("ttl", cfg.Redis.CacheTTL).Msg("redis lookup cache enabled")
	}

	// ===========================================
	// Services
	// ===========================================
	validator, err := service.NewURLValidator(cfg.Shortener.ValidationMode)
	if err != nil {
		return err
	}
	log.Info().Str("mode", validator.Mode()).Msg("url validation configured")
	generator := service.NewCodeGenerator(links, cfg.Shortener, log)
	linkService := service.NewLinkService(links, generator, validator, cfg.Shortener, log)
	resolver := service.NewResolver(links, store, cfg.Shortener.RecordTimeout, log)
	bulk := service.NewBulkImporter(linkService, cfg.Bulk, log)
	// Aggregates read the backing store directly; cached counters may lag.
	reporter := service.NewReporter(store, store, linkService)

	// ===========================================
	// HTTP
	// ===========================================
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router, err := handler.NewRouter(cfg.Server, handler.Handlers{
		Home:   handler.NewHomeHandler(),
		Links:  handler.NewLinkHandler(linkService, resolver, bulk, cfg.Bulk.MaxBodyBytes),
		Stats:  handler.NewStatsHandler(reporter),
		Health: handler.NewHealthHandler(checks, Version),
	}, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		return fmt.Errorf("listen: %w", err)
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	// Stops accepting requests and waits for in-flight ones, so no
	// click write is cut off before the stores close.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}

	log.Info().Msg("server stopped")
	return nil
}

// openStore connects to the configured backend, applies the schema and
// returns the store with its health checks and a closer.
func openStore(ctx context.Context, cfg config.StorageConfig, log zerolog.Logger) (repository.Store, map[string]handler.Checker, func(), error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		db, err := database.NewSQLiteDB(ctx, cfg.URL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		log.Info().Str("driver", db.Driver).Msg("sqlite connected")

		closeDB := func() {
			if err := db.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close sqlite")
			}
		}
		return repository.NewSQLiteStore(db.DB), map[string]handler.Checker{"sqlite": db}, closeDB, nil

	default:
		db, err := database.NewPostgresDB(ctx, cfg)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		log.Info().Msg("postgres connected")

		return repository.NewPostgresStore(db.Pool), map[string]handler.Checker{"postgres": db}, db.Close, nil
	}
}
