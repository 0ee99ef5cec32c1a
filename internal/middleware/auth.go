package middleware

import (
	"net/http"
	"strings"

	"storefront/internal/authz"
	"storefront/pkg/tokens"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Authenticate verifies the bearer token and stores the principal on the request.
func Authenticate(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(raw) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "msg": "Login First"})
			return
		}

		claims, err := tokens.AccessClaimsFromToken(strings.TrimSpace(raw), secret)
		if err != nil {
			log.Debug().Err(err).Str("path", c.FullPath()).Msg("rejected token")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "msg": "Login First"})
			return
		}

		p := authz.Principal{ID: claims.ID, Name: claims.Name, Email: claims.Email, Role: claims.Role}
		c.Request = c.Request.WithContext(authz.WithPrincipal(c.Request.Context(), p))
		c.Next()
	}
}

// Principal returns the principal Authenticate put on the request context.
func Principal(c *gin.Context) (authz.Principal, bool) {
	return authz.FromContext(c.Request.Context())
}

// AdminOnly rejects non-admin principals. Must run after Authenticate.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := Principal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "msg": "Login First"})
			return
		}
		if !p.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": http.StatusForbidden, "msg": "Admin access required"})
			return
		}
		c.Next()
	}
}
