package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"subforecast/pkg/utils"
)

// AdminAuthMiddleware guards the forecast report routes. Tokens are minted
// by the host bot; this side only verifies the HMAC signature and the
// admin claim.
func AdminAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			utils.RespondError(c, http.StatusUnauthorized, "Missing bearer token")
			c.Abort()
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, utils.ErrUnauthorized
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			utils.RespondError(c, http.StatusUnauthorized, "Invalid token")
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || claims["role"] != "admin" {
			utils.RespondError(c, http.StatusForbidden, "Admin role required")
			c.Abort()
			return
		}

		if sub, ok := claims["sub"].(string); ok {
			c.Set("admin_id", sub)
		}
		c.Next()
	}
}
