package middleware

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"time"

	"posterboard/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy decides what a limiter does when redis cannot answer.
type FailPolicy int

const (
	FailOpen FailPolicy = iota
	FailClosed
)

var errNoRedis = errors.New("ratelimit: no redis client")

// bypassed is true for the test and stress profiles. Development keeps the
// post cooldown since it is part of how the board behaves.
func bypassed() bool {
	env := os.Getenv("APP_ENV")
	return env == "test" || env == "stress"
}

func clientKey(c *fiber.Ctx) string {
	return "ip:" + c.IP()
}

// CheckRateLimit counts one hit for id against resource in a fixed window and
// reports whether the hit is within limit.
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, error) {
	if bypassed() {
		return true, nil
	}
	if rdb == nil {
		return false, errNoRedis
	}

	key := "rl:" + resource + ":" + id
	hits, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		observability.RedisErrors.WithLabelValues("ratelimit").Inc()
		return false, err
	}
	if hits == 1 {
		// first hit opens the window
		rdb.Expire(ctx, key, window)
	}
	return hits <= int64(limit), nil
}

// RateLimit limits each client IP to limit requests per window and lets
// requests through when redis is down.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, FailOpen, name...)
}

// RateLimitWithPolicy is RateLimit with an explicit failure policy. The
// resource defaults to the request path.
func RateLimitWithPolicy(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		resource := c.Path()
		if len(name) > 0 {
			resource = name[0]
		}

		ok, err := CheckRateLimit(c.UserContext(), rdb, resource, clientKey(c), limit, window)
		switch {
		case err != nil && policy == FailClosed:
			slog.WarnContext(c.UserContext(), "rate limiter unavailable, rejecting",
				"resource", resource,
				"error", err,
			)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "rate limit unavailable"})
		case err != nil:
			return c.Next()
		case !ok:
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"error": "rate limit exceeded"})
		}
		return c.Next()
	}
}

// Cooldown lets each client through once per window. The slot is taken with
// SET NX before the handler runs and given back when the handler does not
// answer 2xx, so a failed post can be retried immediately. A rejected request
// gets message, code COOLDOWN and a Retry-After header. Redis errors let the
// request through.
func Cooldown(rdb *redis.Client, window time.Duration, resource, message string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if bypassed() || rdb == nil || window <= 0 {
			return c.Next()
		}

		ctx := c.UserContext()
		key := "cd:" + resource + ":" + clientKey(c)

		taken, err := rdb.SetNX(ctx, key, time.Now().UnixMilli(), window).Result()
		if err != nil {
			observability.RedisErrors.WithLabelValues("cooldown").Inc()
			slog.WarnContext(ctx, "cooldown unavailable, allowing post", "resource", resource, "error", err)
			return c.Next()
		}
		if !taken {
			if left, err := rdb.PTTL(ctx, key).Result(); err == nil && left > 0 {
				c.Set(fiber.HeaderRetryAfter, strconv.FormatInt(int64((left+time.Second-1)/time.Second), 10))
			}
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": message,
				"code":  "COOLDOWN",
			})
		}

		err = c.Next()
		if st := c.Response().StatusCode(); err != nil || st < 200 || st >= 300 {
			rdb.Del(context.WithoutCancel(ctx), key)
		}
		return err
	}
}
