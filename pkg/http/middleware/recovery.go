package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	applogger "StockPulse/pkg/logger"

	"github.com/labstack/echo/v4"
)

// Recover turns a handler panic into a 500 envelope. The panic value is
// stored under ErrorKey so request logging reports it as the cause.
func Recover(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (ret error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}
				err, ok := r.(error)
				if !ok {
					err = fmt.Errorf("panic: %v", r)
				}
				c.Set(ErrorKey, err)
				l.Error("http handler panic",
					applogger.String("method", c.Request().Method),
					applogger.String("route", c.Path()),
					applogger.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
					applogger.Error(err),
					applogger.String("stack", string(debug.Stack())))

				if c.Response().Committed {
					return
				}
				ret = c.JSON(http.StatusInternalServerError, map[string]interface{}{
					"status":  http.StatusInternalServerError,
					"message": "Internal Server Error",
				})
			}()
			return next(c)
		}
	}
}
