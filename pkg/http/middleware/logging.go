package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	applogger "github.com/layiku/data-simulator/pkg/logger"
)

// RequestLogging logs each HTTP request with method, path, status and latency.
func RequestLogging(log *applogger.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = applogger.Nop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			start := time.Now()

			err := next(c)

			log.Debug("http request",
				applogger.String("method", req.Method),
				applogger.String("path", req.RequestURI),
				applogger.String("remote", c.RealIP()),
				applogger.Int("status", c.Response().Status),
				applogger.Duration("latency", time.Since(start)),
			)

			return err
		}
	}
}
