package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/artzymeri/miteinander/internal/api"
	"github.com/artzymeri/miteinander/internal/auth"
	"github.com/artzymeri/miteinander/internal/config"
	"github.com/artzymeri/miteinander/internal/realtime"
	"github.com/artzymeri/miteinander/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	ctx := context.Background()

	// Pick the relational store: Postgres in deployment, SQLite for a
	// single-file local setup, in-memory as a last resort.
	var (
		db  store.DataStore
		err error
	)
	switch {
	case cfg.DatabaseURL != "":
		db, err = store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		logger.Info().Msg("connected to PostgreSQL")
	case cfg.SQLitePath != "":
		db, err = store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Msg("sqlite open failed")
		}
		logger.Info().Str("path", cfg.SQLitePath).Msg("opened SQLite database")
	default:
		db = store.NewMemoryStore()
		logger.Warn().Msg("no DATABASE_URL or SQLITE_PATH set, using in-memory store")
	}
	defer db.Close()

	// Initialize Redis store (offline notifications, rate limit counters)
	var redisStore *store.RedisStore
	if cfg.RedisURL != "" {
		redisStore, err = store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisStore.Close()
		logger.Info().Msg("connected to Redis")
	}

	// Token verification shares a secret with the marketplace backend
	verifier, err := auth.NewTokenVerifier(cfg.JWTSecret)
	if err != nil {
		logger.Fatal().Err(err).Msg("token verifier setup failed")
	}
	authenticator := auth.NewAuthenticator(verifier, db)

	// Realtime gateway
	var queue realtime.NotificationQueue
	if redisStore != nil {
		queue = redisStore
	}
	gateway := realtime.NewGateway(authenticator, db, queue, realtime.DefaultPolicy(), cfg.AllowedOrigins, logger)

	// Create router
	router := api.NewRouter(api.Deps{
		Logger:         logger,
		Store:          db,
		Redis:          redisStore,
		Authenticator:  authenticator,
		Gateway:        gateway,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimit:      cfg.RateLimitEnabled,
	})

	// Create server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Msg("starting miteinander realtime server")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	// Close websocket connections before stopping the listener so clients
	// see a clean going-away close frame.
	gateway.Close()

	// Graceful shutdown with 30 second timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server stopped")
}
