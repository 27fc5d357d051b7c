package middleware

import (
	"time"

	applogger "StockPulse/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ErrorKey holds the cause of an error response on the echo context.
const ErrorKey = "response_error"

// RequestLogging logs HTTP requests and tags each with a request id.
// 5xx responses are logged at error level with their cause.
func RequestLogging(l *applogger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()

			rid := req.Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			res.Header().Set(echo.HeaderXRequestID, rid)

			if err := next(c); err != nil {
				c.Set(ErrorKey, err)
				c.Error(err)
			}

			fields := []applogger.Field{
				applogger.String("request_id", rid),
				applogger.String("method", req.Method),
				applogger.String("route", c.Path()),
				applogger.String("uri", req.RequestURI),
				applogger.String("remote", c.RealIP()),
				applogger.Int("status", res.Status),
				applogger.Duration("latency", time.Since(start)),
			}
			if cause, ok := c.Get(ErrorKey).(error); ok && cause != nil {
				fields = append(fields, applogger.Error(cause))
			}

			if res.Status >= 500 {
				l.Error("http request", fields...)
			} else {
				l.Info("http request", fields...)
			}
			return nil
		}
	}
}
