package middleware

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const idempotencyKeyPrefix = "idempotency:cars:"

// Idempotency replays cached responses for repeated mutating requests that
// carry the same X-Correlation-ID within the TTL. Listing creation uploads
// images to external storage, so a blind client retry would duplicate both
// the document and the stored objects.
func Idempotency(redisClient *redis.Client, ttl time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodPost, fiber.MethodPatch, fiber.MethodPut, fiber.MethodDelete:
		default:
			return c.Next()
		}

		correlationID := c.Get("X-Correlation-ID")
		if correlationID == "" {
			return c.Next()
		}

		key := idempotencyKeyPrefix + correlationID

		cached, err := redisClient.Get(c.Context(), key).Bytes()
		if err == nil && len(cached) > 0 {
			c.Set("X-Idempotent-Replay", "true")
			c.Set("Content-Type", "application/json")
			return c.Send(cached)
		}

		if err := c.Next(); err != nil {
			return err
		}

		// Only successful outcomes are worth replaying
		statusCode := c.Response().StatusCode()
		if statusCode < 200 || statusCode >= 300 {
			return nil
		}

		body := c.Response().Body()
		if len(body) == 0 {
			return nil
		}

		// Persist in the background; a lost cache entry just means the next
		// retry runs the handler again
		cachedBody := make([]byte, len(body))
		copy(cachedBody, body)
		go func() {
			bgCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			redisClient.Set(bgCtx, key, cachedBody, ttl)
		}()

		return nil
	}
}
