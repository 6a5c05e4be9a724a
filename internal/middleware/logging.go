package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rental-payments/internal/logger"
)

// RequestLogging logs one line per request once the handler returns.  The
// request id echo's RequestID middleware put on the response is copied into
// the request context so downstream log lines carry it too.
func RequestLogging(log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			ctx := logger.WithRequestID(req.Context(), c.Response().Header().Get(echo.HeaderXRequestID))
			c.SetRequest(req.WithContext(ctx))

			err := next(c)
			if err != nil {
				c.Error(err)
			}
			res := c.Response()
			args := []any{
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"route", c.Path(),
				"status", res.Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_addr", c.RealIP(),
			}
			if a := ActorFrom(c); a.UserID != 0 {
				args = append(args, "user_id", a.UserID)
			}
			reqLog := log.Ctx(ctx)
			if res.Status >= 500 {
				reqLog.Error("HTTP request completed", args...)
			} else {
				reqLog.Info("HTTP request completed", args...)
			}
			return nil
		}
	}
}
