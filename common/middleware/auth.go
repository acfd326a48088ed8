package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yashrajoria/checkout-service/common/auth"
)

const UserKey = "userID"

// AuthMiddleware accepts a Bearer access token. When trustGateway is set, a
// request already authenticated by the API gateway may instead carry X-User-ID.
func AuthMiddleware(parser *auth.TokenParser, trustGateway bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			claims, err := parser.Parse(strings.TrimSpace(token), "access")
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
				return
			}
			userID := auth.UserID(claims)
			if userID == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
				return
			}
			c.Set(UserKey, userID)
			c.Next()
			return
		}

		if userID := c.GetHeader("X-User-ID"); trustGateway && userID != "" {
			c.Set(UserKey, userID)
			c.Next()
			return
		}

		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
}

func GetUserID(c *gin.Context) string {
	return c.GetString(UserKey)
}
