package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	AllowOrigins []string
	AllowMethods []string
	AllowHeaders []string
}

// CORS returns CORS middleware. Requests from origins outside the allow list
// pass through without CORS headers.
func CORS(cfg CORSConfig) echo.MiddlewareFunc {
	wildcard := false
	allowed := make(map[string]bool, len(cfg.AllowOrigins))
	for _, o := range cfg.AllowOrigins {
		if o == "*" {
			wildcard = true
		}
		allowed[o] = true
	}
	methods := strings.Join(cfg.AllowMethods, ", ")
	headers := strings.Join(cfg.AllowHeaders, ", ")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			origin := c.Request().Header.Get("Origin")

			switch {
			case origin != "" && (wildcard || allowed[origin]):
				c.Response().Header().Set("Access-Control-Allow-Origin", origin)
			case wildcard:
				c.Response().Header().Set("Access-Control-Allow-Origin", "*")
			default:
				return next(c)
			}

			if methods != "" {
				c.Response().Header().Set("Access-Control-Allow-Methods", methods)
			}
			if headers != "" {
				c.Response().Header().Set("Access-Control-Allow-Headers", headers)
			}

			if c.Request().Method == http.MethodOptions {
				return c.NoContent(http.StatusNoContent)
			}

			return next(c)
		}
	}
}
