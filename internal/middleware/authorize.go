package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eduplatform/internal/models"
	"eduplatform/internal/response"
)

// RequireRoles must run after a guard that stored access claims.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	roleSet := make(map[models.Role]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}

	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}

		if _, ok := roleSet[models.Role(claims.Role)]; !ok {
			response.Abort(c, http.StatusForbidden, "FORBIDDEN", "Insufficient role")
			return
		}

		c.Next()
	}
}
