package identity

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const contextKey = "identity.userID"

// Middleware verifies the bearer token issued by the external auth service
// and resolves it to the opaque user id carried in the subject claim.
// Authentication itself (signup, login, token issuing) lives outside this
// service.
func Middleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing bearer token"})
			return
		}

		userID, err := ResolveToken(strings.TrimPrefix(header, "Bearer "), secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			return
		}

		c.Set(contextKey, userID)
		c.Next()
	}
}

// ResolveToken validates a token and returns the user id in its subject
func ResolveToken(tokenString, secret string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	sub, err := token.Claims.GetSubject()
	if err != nil {
		return "", fmt.Errorf("failed to read subject claim: %w", err)
	}
	if sub == "" {
		return "", fmt.Errorf("token has empty subject")
	}
	return sub, nil
}

// CurrentUserID returns the user id resolved by Middleware
func CurrentUserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(contextKey)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
