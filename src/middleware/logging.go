package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/brocketdesign/rakubun-sub003/src/logging"
)

// LoggingMiddleware emits one structured log line per request after the
// handler chain has run. The caller identity is resolved after c.Next(), so
// requests that passed auth are logged with their owner id.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()

		// Derived per request so it picks up the configured global logger
		httpLog := logging.ComponentLogger("http")

		var event *zerolog.Event
		switch {
		case status >= 500:
			event = httpLog.Error()
		case status >= 400:
			event = httpLog.Warn()
		default:
			event = httpLog.Info()
		}

		event.
			Str("request_id", GetRequestID(c)).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("duration", time.Since(start)).
			Str("client_ip", c.ClientIP())

		if caller := GetCaller(c); caller != nil {
			event.Str("owner_id", caller.OwnerID)
			if caller.KeyID != nil {
				event.Str("key_id", caller.KeyID.String())
			}
		}

		if len(c.Errors) > 0 {
			event.Str("error", c.Errors.String())
		}

		event.Msg("request")
	}
}
