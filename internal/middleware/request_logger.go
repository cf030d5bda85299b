package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// リクエストログ。user_idはAuthJWTより外側に置くと取れないことがある。
func RequestLogger(logger *zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			var userID int64
			if v, ok := c.Get(CtxUserIDKey).(int64); ok {
				userID = v
			}

			evt := logger.Info()
			if c.Response().Status >= 500 {
				evt = logger.Error()
			}

			evt.
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", c.Response().Status).
				Int64("user_id", userID).
				Dur("latency", time.Since(start)).
				Msg("request completed")

			return err
		}
	}
}
