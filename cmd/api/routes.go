// AngelaMos | 2026
// routes.go

package main

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/storefront-api/internal/admin"
	"github.com/carterperez-dev/storefront-api/internal/auth"
	"github.com/carterperez-dev/storefront-api/internal/config"
	"github.com/carterperez-dev/storefront-api/internal/health"
	"github.com/carterperez-dev/storefront-api/internal/metrics"
	"github.com/carterperez-dev/storefront-api/internal/middleware"
	"github.com/carterperez-dev/storefront-api/internal/product"
	"github.com/carterperez-dev/storefront-api/internal/user"
)

type routeDeps struct {
	cfg      *config.Config
	logger   *slog.Logger
	redis    *redis.Client
	verifier middleware.TokenVerifier
	auth     *auth.Handler
	users    *user.Handler
	products *product.Handler
	health   *health.Handler
	admin    *admin.Handler
}

// registerRoutes installs the middleware chain and every route. Probes and
// /metrics sit outside the API prefix and are never rate limited.
func registerRoutes(router chi.Router, d routeDeps) {
	cfg := d.cfg

	router.Use(middleware.RequestID)
	router.Use(middleware.Tracing)
	router.Use(middleware.Logger(d.logger))
	router.Use(middleware.Metrics)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))
	router.Use(middleware.MaxBodyBytes(cfg.Server.MaxBodyBytes))

	d.health.RegisterRoutes(router)
	router.Handle("/metrics", metrics.Handler())

	authenticator := middleware.Authenticator(d.verifier)
	optionalAuth := middleware.OptionalAuth(d.verifier)

	apiLimit := middleware.Per(
		cfg.RateLimit.Requests,
		cfg.RateLimit.Burst,
		cfg.RateLimit.Window,
	)
	apiLimiter := middleware.NewRateLimiter(d.redis, middleware.RateLimitConfig{
		Name:      "api",
		Limit:     apiLimit,
		KeyFunc:   middleware.KeyByUser,
		LimitFunc: middleware.RoleLimits(apiLimit),
		FailOpen:  true,
	})

	authLimit := middleware.Per(
		cfg.RateLimit.AuthRequests,
		cfg.RateLimit.AuthBurst,
		cfg.RateLimit.Window,
	)
	authLimiter := middleware.NewRateLimiter(d.redis, middleware.RateLimitConfig{
		Name:     "auth",
		Limit:    authLimit,
		KeyFunc:  middleware.KeyByIP,
		FailOpen: true,
	})

	router.Route(cfg.Server.APIPrefix, func(r chi.Router) {
		// The identity is attached up front so the limiter can key and scale
		// by caller. Routes that require a login still run the authenticator.
		r.Use(optionalAuth)
		r.Use(apiLimiter.Handler)

		d.auth.RegisterRoutes(r, authenticator, authLimiter.Handler)
		d.users.RegisterRoutes(r, authenticator)
		d.products.RegisterRoutes(r, authenticator)
		d.admin.RegisterRoutes(r, authenticator, middleware.RequireAdmin)
	})
}
