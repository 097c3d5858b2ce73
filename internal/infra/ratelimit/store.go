package ratelimit

import (
	"github.com/gofiber/fiber/v2"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	redisStorage "github.com/gofiber/storage/redis/v2"

	"docpress/internal/infra/logging"
)

// RedisConfig selects the Redis database backing the limiter counters.
type RedisConfig struct {
	Addr string
	DB   int
}

// NewStore returns the storage for rate limiter counters. It prefers Redis so
// limits hold across instances, but falls back to an in-process memory store
// when Redis is unconfigured or unreachable. The redis storage panics on a
// failed initial ping, hence the recover.
func NewStore(cfg RedisConfig) fiber.Storage {
	var store fiber.Storage = memoryStorage.New()
	if cfg.Addr == "" {
		return store
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				logging.Error("Redis limiter store init panicked, falling back to memory", "panic", r)
			}
		}()
		store = redisStorage.New(redisStorage.Config{
			Addrs:    []string{cfg.Addr},
			Database: cfg.DB,
		})
		logging.Info("Using Redis for rate limiting", "addr", cfg.Addr, "db", cfg.DB)
	}()

	return store
}
