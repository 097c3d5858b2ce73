// Package middleware wires the cross-cutting request chain: HTTPS policy,
// CORS, request ids, health probes, API key auth and rate limiting.
package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/xid"

	"docpress/internal/config"
	"docpress/internal/tokens"
)

// Deps carries what the middleware chain needs from the composition root.
// Tokens may be nil when no token store is configured; requests then run
// anonymously. Store backs the rate limiter counters.
type Deps struct {
	Config config.Config
	Tokens *tokens.Cache
	Store  fiber.Storage
}

// Register attaches the global middleware chain in order. Auth runs before
// the limiters so token budgets apply to authenticated requests and the
// anonymous limiter to the rest.
func Register(app *fiber.App, d Deps) {
	if d.Config.Server.ForceHTTPS {
		app.Use(HTTPSRedirect())
	}

	app.Use(cors.New())

	app.Use(requestid.New(requestid.Config{
		Generator: func() string {
			return xid.New().String()
		},
	}))

	app.Use(healthcheck.New(healthcheck.Config{
		LivenessEndpoint:  "/ops/health",
		ReadinessEndpoint: "/ops/ready",
	}))

	rl := RateLimitConfig{
		RateInterval:           time.Duration(d.Config.RateLimiter.Interval),
		EnableTokenRateLimiter: d.Config.RateLimiter.EnableTokenRateLimiter,
		EnableUserLimiter:      d.Config.RateLimiter.EnableUserLimiter,
		UserLimit:              d.Config.RateLimiter.UserLimit,
	}
	if d.Tokens != nil {
		app.Use(APIKeyAuth(d.Tokens))
		app.Use(TokenRateLimit(rl, d.Tokens, d.Store, NewLimiterCache()))
	}
	app.Use(UserRateLimit(rl, d.Store))

	app.Use(Observe())
}

// errorJSON writes the service-wide error envelope.
func errorJSON(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    status,
			"message": message,
		},
	})
}
