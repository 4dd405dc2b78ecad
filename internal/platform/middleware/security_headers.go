package middleware

import (
	"github.com/labstack/echo/v4"
)

// portalHeaders go on every response. Geolocation stays allowed for the
// emergency flow and camera for diagnosis photos taken in the browser.
var portalHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Strict-Transport-Security", "max-age=31536000; includeSubDomains"},
	{"Referrer-Policy", "no-referrer"},
	{"Permissions-Policy", "camera=(self), microphone=(), geolocation=(self)"},
	{"Cache-Control", "no-store"},
}

func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			for _, kv := range portalHeaders {
				h.Set(kv[0], kv[1])
			}
			return next(c)
		}
	}
}
