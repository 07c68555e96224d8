package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
)

// Delay holds every request for d before handling it, so the storefront
// can be exercised against realistic latency.  A cancelled request stops
// waiting.
func Delay(d time.Duration) echo.MiddlewareFunc {
	if d <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-c.Request().Context().Done():
				return c.Request().Context().Err()
			case <-t.C:
			}
			return next(c)
		}
	}
}
