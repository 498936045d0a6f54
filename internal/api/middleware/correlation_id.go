package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/spigell/applyflow/internal/logger"
)

const (
	correlationIDKey    = "correlationID"
	CorrelationIDHeader = "X-Correlation-ID"
)

// CorrelationID makes sure every request carries a correlation id. The id is
// echoed in the response and stored in the request context.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(CorrelationIDHeader)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(correlationIDKey, id)
		c.Header(CorrelationIDHeader, id)
		c.Request = c.Request.WithContext(logger.ContextWithCorrelationID(c.Request.Context(), id))

		c.Next()
	}
}

// GetCorrelationID returns the correlation id of the request.
func GetCorrelationID(c *gin.Context) string {
	if value, ok := c.Get(correlationIDKey); ok {
		if id, ok := value.(string); ok {
			return id
		}
	}
	return ""
}
