package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/bbasli/bdrive/utils"

	"github.com/gin-gonic/gin"
)

const (
	WebhookSecretHeader  = "X-Webhook-Secret"
	InternalSecretHeader = "X-Internal-Secret"
)

// RequireSecret admits requests whose header carries the shared secret. An
// empty secret disables the endpoint.
func RequireSecret(header string, secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.GetHeader(header)
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			utils.Error(c, http.StatusUnauthorized, "invalid shared secret")
			c.Abort()
			return
		}
		c.Next()
	}
}
