package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const rateLimitPrefix = "rl:signup:"

// SignupRateLimit limits signups per referrer and client IP within a one
// minute window using Redis counters. Without Redis it is a no-op, and cache
// errors fail open.
func SignupRateLimit(cache *redis.Client, maxPerMin int, logger *slog.Logger) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 10
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		var req struct {
			Referrer string `json:"referrer"`
		}
		_ = c.BodyParser(&req)
		key := rateLimitPrefix + c.IP()
		if referrer := strings.TrimSpace(req.Referrer); referrer != "" {
			key += ":" + referrer
		}

		ctx := c.UserContext()
		cnt, err := cache.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("signup rate limit unavailable", slog.Any("error", err))
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(ctx, key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			c.Set(fiber.HeaderRetryAfter, "60")
			return fiber.NewError(http.StatusTooManyRequests, "too many signups, try again later")
		}
		return c.Next()
	}
}
