package main

import (
	"context"
	"net/http"
	"time"

	"socialapi/internal/auth"
	"socialapi/internal/config"
	"socialapi/internal/httpx"
	"socialapi/internal/logging"
	"socialapi/internal/user"
)

type app struct {
	cfg         *config.Config
	log         logging.Logger
	guard       auth.Authenticator
	authHandler *auth.HTTPHandler
	userHandler *user.HTTPHandler
	limiter     *httpx.RateLimitMiddleware
	ready       func(ctx context.Context) error
}

func (a *app) routes() http.Handler {
	p := a.cfg.HTTP.APIPrefix
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := a.ready(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	mux.HandleFunc("POST "+p+"/auth/signup", a.userHandler.RegisterUser)
	mux.HandleFunc("POST "+p+"/auth/login", a.authHandler.Login)
	mux.HandleFunc("POST "+p+"/auth/refresh-token", a.authHandler.RefreshToken)
	mux.Handle("POST "+p+"/auth/logout", a.protect(user.RoleUser, a.authHandler.Logout))

	mux.Handle("GET "+p+"/me", a.protect(user.RoleUser, a.userHandler.GetCurrentUser))
	mux.Handle("GET "+p+"/users/{id}", a.protect(user.RoleAdmin, a.userHandler.GetUser))
	mux.Handle("PUT "+p+"/users/{id}", a.protect(user.RoleUser, a.userHandler.UpdateUser))
	mux.Handle("DELETE "+p+"/users/{id}", a.protect(user.RoleUser, a.userHandler.DeleteUser))
	mux.Handle("PUT "+p+"/users/{id}/update-password", a.protect(user.RoleUser, a.userHandler.UpdatePassword))

	return httpx.Chain(mux,
		httpx.RecoveryMiddleware(a.log),
		httpx.RequestIDMiddleware,
		httpx.AccessLogMiddleware(a.log),
		httpx.SecurityHeadersMiddleware(a.cfg.HTTP.EnableHSTS),
		httpx.CORSMiddleware(a.cfg.HTTP.AllowedOrigins),
		httpx.RequestSizeLimitMiddleware(a.cfg.Limits.MaxBodyBytes),
		a.limiter.Middleware,
		httpx.BaseURLMiddleware(p, a.cfg.HTTP.TrustProxyHeaders),
		httpx.BearerTokenMiddleware,
	)
}

func (a *app) protect(role string, h http.HandlerFunc) http.Handler {
	return auth.Protect(a.guard, a.log, role, h)
}
