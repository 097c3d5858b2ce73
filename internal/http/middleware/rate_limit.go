package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"docpress/internal/infra/logging"
)

// RateLimitConfig carries the limiter settings shared by the token and the
// anonymous limiter.
type RateLimitConfig struct {
	RateInterval           time.Duration
	EnableTokenRateLimiter bool
	EnableUserLimiter      bool
	UserLimit              int
}

// TokenRater resolves the per-interval request budget for an API token.
// Zero disables the limiter for that token.
type TokenRater interface {
	RateLimit(token string) int
}

// LimiterCache memoizes limiter handlers per request budget, so tokens with
// the same budget share one sliding-window configuration.
type LimiterCache struct {
	mu       sync.RWMutex
	handlers map[int]fiber.Handler
}

// NewLimiterCache returns an empty limiter cache.
func NewLimiterCache() *LimiterCache {
	return &LimiterCache{handlers: make(map[int]fiber.Handler)}
}

func (lc *LimiterCache) get(limit int, build func() fiber.Handler) fiber.Handler {
	lc.mu.RLock()
	h, ok := lc.handlers[limit]
	lc.mu.RUnlock()
	if ok {
		return h
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()
	if h, ok := lc.handlers[limit]; ok {
		return h
	}
	h = build()
	lc.handlers[limit] = h
	return h
}

// TokenRateLimit throttles authenticated requests by their API token. The
// budget comes from the rater per token; anonymous requests and tokens with
// no budget pass through untouched.
func TokenRateLimit(cfg RateLimitConfig, rater TokenRater, store fiber.Storage, cache *LimiterCache) fiber.Handler {
	if !cfg.EnableTokenRateLimiter {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}
	return func(c *fiber.Ctx) error {
		token, ok := c.Locals("api_key").(string)
		if !ok || token == "" {
			return c.Next()
		}
		limit := rater.RateLimit(token)
		if limit <= 0 {
			return c.Next()
		}
		h := cache.get(limit, func() fiber.Handler {
			return limiter.New(limiter.Config{
				Max:               limit,
				Expiration:        cfg.RateInterval,
				LimiterMiddleware: limiter.SlidingWindow{},
				Storage:           store,
				KeyGenerator: func(c *fiber.Ctx) string {
					if token, ok := c.Locals("api_key").(string); ok {
						return token
					}
					return ""
				},
				LimitReached: func(c *fiber.Ctx) error {
					token, _ := c.Locals("api_key").(string)
					logging.Warn("Rate limit exceeded", "token", token, "path", c.Path())
					return tooManyRequests(c)
				},
			})
		})
		return h(c)
	}
}

// UserRateLimit throttles anonymous clients. Token-authenticated requests
// skip it, their budget comes from the token limiter.
func UserRateLimit(cfg RateLimitConfig, store fiber.Storage) fiber.Handler {
	if !cfg.EnableUserLimiter || cfg.UserLimit <= 0 {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}
	userLimiter := limiter.New(limiter.Config{
		Max:               cfg.UserLimit,
		Expiration:        cfg.RateInterval,
		LimiterMiddleware: limiter.SlidingWindow{},
		Storage:           store,
		KeyGenerator: func(c *fiber.Ctx) string {
			return anonymousKey(c)
		},
		LimitReached: func(c *fiber.Ctx) error {
			logging.Warn("Rate limit exceeded", "user", anonymousKey(c), "path", c.Path())
			return tooManyRequests(c)
		},
	})
	return func(c *fiber.Ctx) error {
		if token, ok := c.Locals("api_key").(string); ok && token != "" {
			return c.Next()
		}
		return userLimiter(c)
	}
}

// anonymousKey hashes client address and user agent so raw IPs never reach
// the limiter store.
func anonymousKey(c *fiber.Ctx) string {
	sum := sha256.Sum256([]byte(c.IP() + c.Get(fiber.HeaderUserAgent)))
	return hex.EncodeToString(sum[:])
}

func tooManyRequests(c *fiber.Ctx) error {
	return errorJSON(c, fiber.StatusTooManyRequests, "Too many requests")
}
