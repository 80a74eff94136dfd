package middleware

import (
	"github.com/labstack/echo/v4"
)

// ResponseHeaders returns an Echo middleware that stamps every response with
// Cache-Control: no-store and X-Content-Type-Options: nosniff.
//
// The headers are added in a Before hook so they reach the client no matter
// which handler commits the response, including Echo's error handler.
// Cache-Control is appended, not set: an upstream Cache-Control relayed by
// the proxy stays, followed by no-store.
func ResponseHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			res := c.Response()
			res.Before(func() {
				res.Header().Add(echo.HeaderCacheControl, "no-store")
				res.Header().Set(echo.HeaderXContentTypeOptions, "nosniff")
			})
			return next(c)
		}
	}
}
