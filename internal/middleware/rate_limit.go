package middleware

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// RateLimit allows maxPerMin requests per minute for each key returned by
// keyFn, counted in Redis. Without Redis, or when Redis fails, requests pass.
func RateLimit(cache *redis.Client, scope string, maxPerMin int, keyFn func(c *fiber.Ctx) string) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 30
	}
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		id := keyFn(c)
		if id == "" {
			id = c.IP()
		}
		key := "rl:" + scope + ":" + id
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			return c.Next() // fail-open on cache errors
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many "+scope+" requests, try again later")
		}
		return c.Next()
	}
}

// ByParam keys a rate limit on a route parameter.
func ByParam(name string) func(c *fiber.Ctx) string {
	return func(c *fiber.Ctx) string { return c.Params(name) }
}
