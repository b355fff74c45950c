package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"

	applogger "github.com/layiku/data-simulator/pkg/logger"
)

// Recover returns recovery middleware: a panicking handler becomes a 500
// response instead of killing the connection.
func Recover(log *applogger.Logger) echo.MiddlewareFunc {
	if log == nil {
		log = applogger.Nop()
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			defer func() {
				if r := recover(); r != nil {
					err, ok := r.(error)
					if !ok {
						err = fmt.Errorf("%v", r)
					}
					log.Error("handler panicked",
						applogger.String("path", c.Request().RequestURI),
						applogger.Error(err),
						applogger.String("stack", string(debug.Stack())),
					)
					_ = c.JSON(http.StatusInternalServerError, map[string]interface{}{
						"status":  http.StatusInternalServerError,
						"message": "Internal Server Error",
					})
				}
			}()
			return next(c)
		}
	}
}
