package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// UserIDKey is the gin context key holding the authenticated user id.
const UserIDKey = "user_id"

// TokenKey is the gin context key holding the raw bearer token of the
// authenticated request.
const TokenKey = "auth_token"

// TokenValidator validates a bearer token and returns the user id.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (uint, error)
}

// AuthMiddleware rejects requests without a valid bearer token before
// any object-level check runs.
func AuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing or malformed authorization header"})
			c.Abort()
			return
		}

		userID, err := validator.ValidateToken(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			c.Abort()
			return
		}

		c.Set(UserIDKey, userID)
		c.Set(TokenKey, token)
		c.Next()
	}
}

// OptionalAuthMiddleware resolves the viewer on open read endpoints so
// per-user flags (is_subscribed, is_favorited, is_in_shopping_cart)
// can be computed. Anonymous and invalid-token requests pass through
// with no user set.
func OptionalAuthMiddleware(validator TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if userID, err := validator.ValidateToken(c.Request.Context(), token); err == nil {
				c.Set(UserIDKey, userID)
			}
		}
		c.Next()
	}
}

// ViewerID returns the authenticated user id, or 0 for anonymous
// requests.
func ViewerID(c *gin.Context) uint {
	if v, ok := c.Get(UserIDKey); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

// Token returns the raw bearer token validated by AuthMiddleware, or
// "" when the request did not pass through it.
func Token(c *gin.Context) string {
	if v, ok := c.Get(TokenKey); ok {
		if token, ok := v.(string); ok {
			return token
		}
	}
	return ""
}

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}
