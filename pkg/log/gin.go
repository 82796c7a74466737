package log

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const headerRequestID = "X-Request-ID"

// GinMiddleware tags every request with an id, puts a request-scoped
// logger on the context, and writes one completion line per request.
// WebSocket upgrades get the logger but skip the completion line:
// long-lived connections would otherwise log a bogus latency when they
// finally close.
func GinMiddleware(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(headerRequestID)
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Header(headerRequestID, reqID)

		reqLogger := logger.With().
			Str(FieldRequestID, reqID).
			Str(FieldMethod, c.Request.Method).
			Str(FieldPath, c.Request.URL.Path).
			Str(FieldClientIP, c.ClientIP()).
			Logger()
		c.Request = c.Request.WithContext(WithLogger(c.Request.Context(), reqLogger))

		upgrade := c.GetHeader("Upgrade") == "websocket"

		c.Next()

		if upgrade {
			return
		}

		evt := reqLogger.Info().
			Int(FieldStatus, c.Writer.Status()).
			Dur(FieldLatency, time.Since(start))
		// The auth middleware runs inside c.Next, so the actor is only
		// known here.
		if userID, ok := c.Get(FieldUserID); ok {
			if id, ok := userID.(string); ok {
				evt = evt.Str(FieldUserID, id)
			}
		}
		evt.Msg("request completed")
	}
}
