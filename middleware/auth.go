package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AuthMiddleware verifies the host's bearer token and puts the
// verified identity on the context as "host_id". Token issuance is the
// identity provider's job; this layer only checks the signature.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "kind": "unauthorized", "error": "Authorization header required"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "kind": "unauthorized", "error": "Bearer token required"})
			c.Abort()
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(jwtSecret), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "kind": "unauthorized", "error": "Invalid token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "kind": "unauthorized", "error": "Invalid token claims"})
			c.Abort()
			return
		}

		hostID, ok := claims["host_id"].(float64)
		if !ok || hostID <= 0 {
			c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "kind": "unauthorized", "error": "Invalid host identity"})
			c.Abort()
			return
		}

		c.Set("host_id", uint(hostID))
		c.Next()
	}
}
