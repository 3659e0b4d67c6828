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

	"github.com/jackc/pgx/v5/pgxpool"

	"socialapi/internal/auth"
	"socialapi/internal/config"
	"socialapi/internal/httpx"
	"socialapi/internal/logging"
	"socialapi/internal/platform/postgres"
	"socialapi/internal/session"
	"socialapi/internal/tokencache"
	"socialapi/internal/user"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	config.LoadEnvFiles()
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(os.Stdout, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	config.Watch(func(level string) {
		if err := logger.SetLevel(level); err != nil {
			logger.Warn(context.Background(), "ignoring log level from config file", "level", level, "error", err)
			return
		}
		logger.Info(context.Background(), "log level changed", "level", level)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.Open(ctx, cfg.DB.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer pool.Close()
	logger.Info(ctx, "database connection OK")

	if err := postgres.Migrate(ctx, pool); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	sessions := session.NewPostgresRepo(pool, cfg.DB.Timeout)
	users := user.NewPostgresRepo(pool, cfg.DB.Timeout)

	cleaners := map[string]session.Cleaner{"refresh_tokens": sessions}
	cache, closeCache, err := newTokenCache(cfg, pool, cleaners)
	if err != nil {
		return err
	}
	defer closeCache()

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL, sessions)
	guard := auth.NewGuard(issuer, cache)
	authService := auth.NewService(users, issuer, sessions, cache, logger, auth.Options{
		RotateRefreshTokens: cfg.Auth.RefreshTokenRotation,
	})
	userService := user.NewService(users, authService, logger)

	limiter := httpx.NewRateLimitMiddleware(cfg.Limits.RateLimitRPS, cfg.Limits.RateLimitBurst, cfg.HTTP.TrustProxyHeaders)
	go limiter.Run(ctx)
	go session.RunJanitor(ctx, cfg.JanitorInterval, logger, cleaners)

	a := &app{
		cfg:         cfg,
		log:         logger,
		guard:       guard,
		authHandler: auth.NewHTTPHandler(authService, logger),
		userHandler: user.NewHTTPHandler(userService, logger),
		limiter:     limiter,
		ready:       pool.Ping,
	}

	srv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      a.routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "starting server", "addr", cfg.HTTP.Addr, "api_prefix", cfg.HTTP.APIPrefix, "token_cache", cfg.Cache.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "http shutdown failed", "error", err)
	}
	// Deletions may still be revoking sessions in the background.
	if err := authService.Wait(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "pending revocations did not finish", "error", err)
	}
	return nil
}

// newTokenCache builds the configured cache. The postgres cache also
// registers its expired-row cleaner with the janitor.
func newTokenCache(cfg *config.Config, pool *pgxpool.Pool, cleaners map[string]session.Cleaner) (tokencache.Cache, func(), error) {
	switch cfg.Cache.Driver {
	case config.CacheDriverMemory:
		c, err := tokencache.NewMemoryCache(cfg.Cache.TTL, 0)
		if err != nil {
			return nil, nil, fmt.Errorf("token cache: %w", err)
		}
		return c, c.Close, nil
	default:
		c := tokencache.NewPostgresCache(pool, cfg.Cache.TTL, cfg.DB.Timeout)
		cleaners["token_cache"] = c
		return c, func() {}, nil
	}
}
