package middleware

import (
	"net/http"
	"strings"

	"sous-system/internal/utils"

	"github.com/gin-gonic/gin"
)

const ClaimsKey = "claims"

// JWTAuth requires a valid bearer token signed with secret. An empty secret
// disables the check.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Missing bearer token",
			})
			return
		}

		claims, err := utils.ParseToken([]byte(secret), tokenStr)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid token",
			})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}
