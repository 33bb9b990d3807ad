package utils

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// SessionResolver turns a bearer token into the caller's user id and session value.
type SessionResolver func(ctx context.Context, token string) (uint64, interface{}, error)

// BearerToken extracts the token from an Authorization header.
func BearerToken(header string) (string, bool) {
	tokenParts := strings.Split(strings.TrimSpace(header), " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" || tokenParts[1] == "" {
		return "", false
	}
	return tokenParts[1], true
}

// AuthMiddleware verifies the bearer token and sets user context.
func AuthMiddleware(resolve SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := BearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": -1, "msg": "unauthorized"})
			return
		}
		userID, session, err := resolve(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": -1, "msg": "unauthorized"})
			return
		}
		c.Set("user_id", userID)
		c.Set("session", session)
		c.Next()
	}
}
