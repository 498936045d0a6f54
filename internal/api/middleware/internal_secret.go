package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const InternalSecretHeader = "X-Internal-Secret"

// InternalSecret rejects requests without the shared secret header. An empty
// secret disables the check.
func InternalSecret(secret string) gin.HandlerFunc {
	secret = strings.TrimSpace(secret)

	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		token := strings.TrimSpace(c.GetHeader(InternalSecretHeader))
		if token == "" || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
