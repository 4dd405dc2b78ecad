package auth

import (
	"strings"

	"github.com/labstack/echo/v4"
)

var publicPaths = map[string]bool{
	"/health":    true,
	"/health/db": true,
}

// publicPrefixes serve content that needs no account.
var publicPrefixes = []string{
	"/api/v1/wellness/",
}

// AuthSkipper reports whether token parsing is skipped for the route.
// Directory reads are public too, but only for GET.
func AuthSkipper(c echo.Context) bool {
	path := c.Path()
	if path == "" {
		path = c.Request().URL.Path
	}
	return IsPublicPath(c.Request().Method, path)
}

func IsPublicPath(method, path string) bool {
	if publicPaths[path] {
		return true
	}
	for _, p := range publicPrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	if method == "GET" && (strings.HasPrefix(path, "/api/v1/doctors") || strings.HasPrefix(path, "/api/v1/hospitals")) {
		return true
	}
	return false
}
