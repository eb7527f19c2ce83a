// Package main is the entry point for the page-builder API server.
// It loads configuration, connects to services, sets up routing, and runs
// the HTTP server until a shutdown signal arrives.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"pagebuilder/internal/cache"
	"pagebuilder/internal/config"
	"pagebuilder/internal/database"
	"pagebuilder/internal/engine"
	"pagebuilder/internal/handlers"
	"pagebuilder/internal/middleware"
	"pagebuilder/internal/registry"
	"pagebuilder/internal/router"
	"pagebuilder/internal/storage"
	"pagebuilder/internal/store"
)

func main() {
	// Structured logger: JSON in production, text in development.
	var h slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	if os.Getenv("APP_ENV") == "" || os.Getenv("APP_ENV") == "development" {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(h))

	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped gracefully")
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("configuration loaded", "env", cfg.Env, "addr", cfg.Addr())

	// Connect to PostgreSQL and bring the schema up to date.
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		return err
	}

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(db); err != nil {
			return err
		}
	}

	reg, err := registry.Load(cfg.RegistryFile)
	if err != nil {
		return err
	}

	templateStore := store.NewTemplateStore(db)
	structureStore := store.NewStructureStore(db)
	revisionStore := store.NewRevisionStore(db)
	blueprintStore := store.NewBlueprintStore(db)
	userStore := store.NewUserStore(db)
	eventStore := store.NewEventStore(db)
	attendeeStore := store.NewAttendeeStore(db)
	cacheLogStore := store.NewCacheLogStore(db)

	eng, err := engine.New(reg, engine.Stores{
		Templates:  templateStore,
		Structures: structureStore,
		Revisions:  revisionStore,
		Blueprints: blueprintStore,
	})
	if err != nil {
		return err
	}
	eng.SetInvalidationLog(cacheLogStore)

	// Valkey is optional; without it every read goes to PostgreSQL.
	if cfg.CacheEnabled() {
		client, err := cache.ConnectValkey(cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword, cfg.ValkeyDB)
		if err != nil {
			return err
		}
		defer client.Close()
		eng.SetCache(cache.NewTemplateCache(client, cfg.CacheTTL))
	} else {
		slog.Warn("valkey not configured, template cache disabled")
	}

	// S3 snapshots are optional too.
	if cfg.SnapshotsEnabled() {
		snapshots, err := storage.New(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicURL)
		if err != nil {
			return err
		}
		if snapshots != nil {
			eng.SetSnapshots(snapshots)
			slog.Info("s3 snapshots enabled", "endpoint", cfg.S3Endpoint, "bucket", cfg.S3Bucket)
		}
	} else {
		slog.Warn("s3 storage not configured, publish snapshots disabled")
	}

	deps := router.Deps{
		JWTSecret: []byte(cfg.JWTSecret),
		Builder:   handlers.NewBuilder(eng),
		Public:    handlers.NewPublic(eng),
		Events:    handlers.NewEvents(eventStore, attendeeStore),
		Account:   handlers.NewAccount(userStore),
	}
	if cfg.RateLimitIP > 0 {
		deps.IPLimiter = middleware.NewRateLimiter(cfg.RateLimitIP, time.Minute)
		defer deps.IPLimiter.Stop()
	}
	if cfg.RateLimitUser > 0 {
		deps.UserLimiter = middleware.NewRateLimiter(cfg.RateLimitUser, time.Minute)
		defer deps.UserLimiter.Stop()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: router.New(deps),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	eg.Go(func() error {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Graceful shutdown: drain connections for up to 30 seconds once the
	// signal context (or a failed server) cancels egctx.
	eg.Go(func() error {
		<-egctx.Done()
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}
