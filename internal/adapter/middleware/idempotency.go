package middleware

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// cachedResponse is what we keep in redis per idempotency key.
type cachedResponse struct {
	StatusCode int    `json:"status_code"`
	Body       []byte `json:"body"`
}

const idempotencyTTL = 24 * time.Hour

// Idempotency replays the cached response for a repeated Idempotency-Key so a
// retried initiate call cannot create a second payment intent. Redis being
// down fails open: better to risk a duplicate intent than to block deposits.
func Idempotency(rdb *redis.Client) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get("Idempotency-Key")
		if key == "" {
			return c.Next()
		}

		ctx := c.Context()
		val, err := rdb.Get(ctx, "idempotency:"+key).Result()
		if err == nil {
			var cached cachedResponse
			if err := json.Unmarshal([]byte(val), &cached); err == nil {
				slog.Info("Idempotency hit, returning cached response", "key", key)
				c.Set("X-Idempotency-Hit", "true")
				c.Set("Content-Type", "application/json")
				return c.Status(cached.StatusCode).Send(cached.Body)
			}
		} else if err != redis.Nil {
			slog.Error("Idempotency lookup failed, continuing without cache", "error", err, "key", key)
		}

		if err := c.Next(); err != nil {
			return err
		}

		// 5xx responses are not cached so the client can retry them.
		status := c.Response().StatusCode()
		if status >= 500 {
			return nil
		}

		body := make([]byte, len(c.Response().Body()))
		copy(body, c.Response().Body())

		bytes, err := json.Marshal(cachedResponse{StatusCode: status, Body: body})
		if err != nil {
			return nil
		}
		if err := rdb.Set(ctx, "idempotency:"+key, bytes, idempotencyTTL).Err(); err != nil {
			slog.Error("Failed to save idempotency key", "error", err, "key", key)
		}
		return nil
	}
}
