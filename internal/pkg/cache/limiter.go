package cache

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/storage/redis"
)

// limiterDatabase keeps rate-limit counters apart from the keys in database 0.
const limiterDatabase = 1

// NewLimiterStorage returns Redis-backed storage for the fiber limiter, or nil (the
// limiter's in-memory default) when no cache host is configured.
func NewLimiterStorage(host, port, password string) fiber.Storage {
	if host == "" {
		return nil
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		p = 6379
	}
	return redis.New(redis.Config{
		Host:     host,
		Port:     p,
		Password: password,
		Database: limiterDatabase,
		Reset:    false,
	})
}
