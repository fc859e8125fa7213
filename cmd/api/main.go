package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mamacare-api/internal/adapters/auth/clerk"
	mem "mamacare-api/internal/adapters/storage/memory"
	"mamacare-api/internal/adapters/storage/mongodb"
	"mamacare-api/internal/adapters/storage/postgres"
	"mamacare-api/internal/domain/profiles"
	"mamacare-api/internal/platform/config"
	"mamacare-api/internal/platform/logger"
	"mamacare-api/internal/platform/metrics"
	"mamacare-api/internal/ports/auth"
	"mamacare-api/internal/router"
)

// @title Mamacare API
// @version 1.0
// @description Backend de perfiles de embarazo.
// @BasePath /api
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewFromEnv().Error("invalid configuration", map[string]any{"error": err})
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: logger.ParseFormat(cfg.Log.Format),
		App:    cfg.Log.App,
		File:   cfg.Log.File,
	})

	verifier, err := newVerifier(cfg.Auth)
	if err != nil {
		log.Error("auth setup failed", map[string]any{"error": err})
		os.Exit(1)
	}
	if verifier == nil {
		log.Warn("auth dev mode: X-Debug-User-ID is trusted", nil)
	}

	repo, closeStore := newStore(cfg)

	r := router.NewRouter(router.Options{
		AuthVerifier:       verifier,
		Profiles:           repo,
		StoreDriver:        cfg.StoreDriver,
		Logger:             log,
		Metrics:            metrics.New(),
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		MaxBodyBytes:       cfg.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", map[string]any{"addr": cfg.Addr(), "store": cfg.StoreDriver})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	exitCode := 0
	select {
	case <-ctx.Done():
		log.Info("shutting down", nil)
	case err := <-errCh:
		if err != nil {
			log.Error("server error", map[string]any{"error": err})
			exitCode = 1
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", map[string]any{"error": err})
	}
	if err := closeStore(shutdownCtx); err != nil {
		log.Error("store close", map[string]any{"error": err})
	}

	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

// newVerifier devuelve nil en modo dev (sin llaves de Clerk).
func newVerifier(cfg config.AuthConfig) (auth.AuthVerifier, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	var jwks *clerk.Client
	if cfg.ClerkJWKSURL != "" {
		jwks = clerk.NewClient(clerk.Config{
			JWKSURL:   cfg.ClerkJWKSURL,
			SecretKey: cfg.ClerkSecretKey,
		}, nil)
	}

	v, err := clerk.NewVerifier(clerk.VerifierConfig{
		PublicKeyPEM:      cfg.ClerkJWTKey,
		Issuer:            cfg.Issuer,
		AuthorizedParties: cfg.AuthorizedParties,
		ClockSkew:         cfg.ClockSkew,
	}, jwks)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// newStore no conecta: mongodb y postgres conectan en el primer request.
func newStore(cfg config.Config) (profiles.Repository, func(context.Context) error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool := postgres.NewLazyPool(cfg.DatabaseDSN, postgres.PoolOptions{})
		return postgres.NewProfilesRepo(pool), func(context.Context) error {
			pool.Close()
			return nil
		}
	case config.DriverMemory:
		return mem.NewProfileRepo(), func(context.Context) error { return nil }
	default:
		acc := mongodb.NewAccessor(mongodb.Config{
			URI:            cfg.MongoURI,
			Database:       cfg.MongoDB,
			Collection:     cfg.MongoCollection,
			ConnectTimeout: cfg.MongoConnectTimeout,
			StickyErrors:   cfg.MongoStickyErrors,
		})
		return mongodb.NewProfilesRepo(acc), acc.Close
	}
}
