package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// SubjectKey is the gin context key holding the authenticated subject.
const SubjectKey = "user_id"

// TokenVerifier resolves a bearer token to a subject.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// JWTAuth creates middleware that requires a valid bearer identity token
func JWTAuth(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "no auth",
			})
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization header format",
			})
			return
		}

		subject, err := verifier.Verify(c.Request.Context(), parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid token",
			})
			return
		}

		c.Set(SubjectKey, subject)
		c.Next()
	}
}
