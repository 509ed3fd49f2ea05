package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-promo/internal/auth"
	"github.com/noah-isme/toko-promo/internal/discount"
	"github.com/noah-isme/toko-promo/internal/health"
	"github.com/noah-isme/toko-promo/internal/obs"
	"github.com/noah-isme/toko-promo/internal/ratelimit"
	"github.com/noah-isme/toko-promo/internal/security"
)

type routerDeps struct {
	Logger         zerolog.Logger
	Discount       *discount.Handler
	Auth           auth.Middleware
	RateLimit      *ratelimit.Handler
	Health         health.Handler
	HTTPMetrics    *obs.HTTPMetrics
	Tracing        bool
	Metrics        bool
	Pprof          http.Handler
	AllowedOrigins []string
	MaxBodyBytes   int64
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if d.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if d.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: d.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(security.Headers{EnableHSTS: true}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   originsOrWildcard(d.AllowedOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if d.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}
	if d.Pprof != nil {
		r.Mount("/debug", d.Pprof)
	}
	r.Get("/health/live", d.Health.Live)
	r.Get("/health/ready", d.Health.Ready)

	r.Route("/api/v1/user-coupons", func(uc chi.Router) {
		uc.Use(d.Auth.RequireAuth)
		if d.RateLimit != nil {
			uc.Use(d.RateLimit.Middleware)
		}
		uc.Use(security.BodyLimit{Max: d.MaxBodyBytes}.Middleware)
		uc.Post("/available", d.Discount.Available)
		uc.Post("/discount", d.Discount.Calculate)
	})

	return r
}

func originsOrWildcard(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
