package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"jan-server/services/plm-chat-api/internal/utils/redact"
)

// LoggingMiddleware writes one access log line per request. The query
// string and session id go through the redactor.
func LoggingMiddleware(logger zerolog.Logger, redactor *redact.Redactor) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		raw := c.Request.URL.RawQuery

		c.Next()

		statusCode := c.Writer.Status()
		logEvent := logger.Info()
		if statusCode >= 500 {
			logEvent = logger.Error()
		} else if statusCode >= 400 {
			logEvent = logger.Warn()
		}

		span := trace.SpanFromContext(c.Request.Context())
		if span.SpanContext().IsValid() {
			logEvent = logEvent.
				Str("trace_id", span.SpanContext().TraceID().String()).
				Str("span_id", span.SpanContext().SpanID().String())
		}
		if requestID := RequestIDFromContext(c); requestID != "" {
			logEvent = logEvent.Str("request_id", requestID)
		}
		if sessionID := SessionIDFromContext(c); sessionID != "" {
			logEvent = logEvent.Str("session", redactor.Identifier(sessionID))
		}

		logEvent.
			Str("client_ip", redactor.Text(c.ClientIP())).
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", redactor.Text(raw)).
			Int("status", statusCode).
			Dur("latency", time.Since(start)).
			Msg(c.Errors.ByType(gin.ErrorTypePrivate).String())
	}
}
