package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/shopflow/internal/config"
)

// throttleScript increments the window counter and starts the window on
// the first hit.  It returns the count and the window's remaining ms.
var throttleScript = redis.NewScript(`
	local n = redis.call('INCR', KEYS[1])
	if n == 1 then
		redis.call('PEXPIRE', KEYS[1], ARGV[1])
	end
	return { n, redis.call('PTTL', KEYS[1]) }
`)

// NewThrottle limits side-effecting submissions (code resends, reset
// requests, checkout) to cfg.Limit per cfg.Window per visitor, using a
// fixed window counter in Redis.  Without Redis, or when Redis errors,
// requests pass through.
func NewThrottle(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := throttleKey(cfg.Prefix, c)
			ctx := c.Request().Context()

			vals, err := throttleScript.Run(ctx, rdb, []string{key}, cfg.Window.Milliseconds()).Int64Slice()
			if err != nil || len(vals) != 2 {
				if cfg.Debug {
					c.Logger().Warnf("[throttle] redis error for key=%s: %v", key, err)
				}
				return next(c)
			}

			count := vals[0]
			remaining := int64(cfg.Limit) - count
			if remaining < 0 {
				remaining = 0
			}
			c.Response().Header().Set("X-RateLimit-Limit", strconv.Itoa(cfg.Limit))
			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(cfg.Limit) {
				wait := time.Duration(vals[1]) * time.Millisecond
				if wait < 0 {
					wait = cfg.Window
				}
				secs := int(math.Ceil(float64(wait) / float64(time.Second)))
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				if cfg.Debug {
					c.Logger().Infof("[throttle] block key=%s count=%d retry=%ds", key, count, secs)
				}
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "Too many requests",
					"message":     "Please wait a moment before trying again.",
					"retry_after": secs,
				})
			}
			return next(c)
		}
	}
}
