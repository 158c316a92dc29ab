package middleware

import (
	"net/http"
	"strings"

	"github.com/bbasli/bdrive/config"
	"github.com/bbasli/bdrive/services"
	"github.com/bbasli/bdrive/utils"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// AuthMiddleware resolves the caller from a Bearer token. Requests without
// an Authorization header continue anonymously; a malformed or invalid token
// is rejected.
func AuthMiddleware(cfg config.AuthConfig) gin.HandlerFunc {
	secret := []byte(cfg.Secret)
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			utils.Error(c, http.StatusUnauthorized, "authorization header must be Bearer {token}")
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(parts[1], secret, cfg.Issuer)
		if err != nil {
			utils.Error(c, http.StatusUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(identityKey, &services.Identity{
			TokenIdentifier: claims.TokenIdentifier(),
			Issuer:          claims.Issuer,
			Subject:         claims.Subject,
			Name:            claims.Name,
			Email:           claims.Email,
		})
		c.Next()
	}
}

// CurrentIdentity returns the authenticated caller or nil.
func CurrentIdentity(c *gin.Context) *services.Identity {
	value, ok := c.Get(identityKey)
	if !ok {
		return nil
	}
	identity, _ := value.(*services.Identity)
	return identity
}
