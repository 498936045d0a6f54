package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spigell/applyflow/internal/logger"
)

const zapLoggerKey = "zapLogger"

// RequestLogger attaches a request scoped zap logger and logs completion.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		requestLogger := log.With(
			zap.String(logger.FieldCorrelationID, GetCorrelationID(c)),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
		)
		c.Set(zapLoggerKey, requestLogger)

		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		requestLogger.Info("request completed", fields...)
	}
}

// LoggerFromContext returns the request logger, or a no-op logger outside a
// request.
func LoggerFromContext(c *gin.Context) *zap.Logger {
	if value, ok := c.Get(zapLoggerKey); ok {
		if l, ok := value.(*zap.Logger); ok {
			return l
		}
	}
	return zap.NewNop()
}
