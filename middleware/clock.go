package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
)

// ContextKeyNow is the context key for the request's instant
const ContextKeyNow = "now"

// RequestClock fixes the instant a request runs at. Every scheduling
// decision of the request reads the same value.
func RequestClock(now func() time.Time) echo.MiddlewareFunc {
	if now == nil {
		now = time.Now
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(ContextKeyNow, now().UTC())
			return next(c)
		}
	}
}

// Now returns the request instant, or the wall clock outside RequestClock
func Now(c echo.Context) time.Time {
	if t, ok := c.Get(ContextKeyNow).(time.Time); ok {
		return t
	}
	return time.Now().UTC()
}
