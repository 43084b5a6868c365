package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const headerRequestID = "X-Request-ID"

// GinMiddleware attaches a request-scoped logger to the request context
// and logs each completed request.
func GinMiddleware(l zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		reqID := c.GetHeader(headerRequestID)
		if reqID == "" {
			reqID = uuid.New().String()
		}

		child := l.With().
			Str(FieldRequestID, reqID).
			Str(FieldMethod, c.Request.Method).
			Str(FieldPath, c.Request.URL.Path).
			Str(FieldClientIP, c.ClientIP()).
			Logger()

		c.Header(headerRequestID, reqID)
		c.Request = c.Request.WithContext(WithLogger(c.Request.Context(), child))

		c.Next()

		evt := child.Info().
			Int(FieldStatus, c.Writer.Status()).
			Float64(FieldLatency, float64(time.Since(start).Milliseconds()))
		if subject := c.GetString("user_id"); subject != "" {
			evt = evt.Str(FieldSubject, subject)
		}
		evt.Msg("request completed")
	}
}
