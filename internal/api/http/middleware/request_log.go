package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/leafit/leafit-backend/internal/platform/logger"
	"github.com/leafit/leafit-backend/internal/session"
)

// RequestLog writes one line per request. 5xx log at error, 4xx at warn.
// It must run after the session middleware for user_id to be filled in.
func RequestLog(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		fields := []interface{}{
			"request_id", c.GetString(requestIDField),
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if actor := session.ActorFrom(c); actor.Authenticated() {
			fields = append(fields, "user_id", actor.UserID)
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}

		switch {
		case status >= 500:
			log.Error("request", fields...)
		case status >= 400:
			log.Warn("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}
