package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"eduplatform/internal/models"
	"eduplatform/internal/response"
	"eduplatform/internal/security"
)

const claimsKey = "access_claims"

// TokenVerifier is satisfied by *security.TokenIssuer.
type TokenVerifier interface {
	VerifyType(token string, typ security.TokenType) (*security.Claims, error)
}

// Auth requires a valid bearer access token issued for role.
func Auth(tokens TokenVerifier, role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := BearerToken(c)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, "MISSING_TOKEN", "Missing bearer token")
			return
		}

		claims, err := tokens.VerifyType(tokenStr, security.TokenTypeAccess)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			return
		}

		if models.Role(claims.Role) != role {
			response.Abort(c, http.StatusForbidden, "FORBIDDEN", "Token is not valid for this role")
			return
		}

		c.Set(claimsKey, *claims)
		c.Next()
	}
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Claims returns the claims stored by Auth.
func Claims(c *gin.Context) (security.Claims, bool) {
	v, ok := c.Get(claimsKey)
	if !ok {
		return security.Claims{}, false
	}
	claims, ok := v.(security.Claims)
	return claims, ok
}
