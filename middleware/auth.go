package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/azattekce/redischat/cache"
	"github.com/azattekce/redischat/config"
	"github.com/gin-gonic/gin"
)

const UserIDKey = "user_id"

const cacheTimeout = 2 * time.Second

// SessionKey builds the cache key under which a login session is stored.
// Logout revokes a token by deleting this key, so possession of an
// unexpired JWT alone is not enough to authenticate.
func SessionKey(token string) string {
	return "session:" + token
}

// bearerToken extracts the token from an Authorization header.
func bearerToken(ctx *gin.Context) (string, bool) {
	header := ctx.GetHeader("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", false
	}
	return token, true
}

// Auth validates the Bearer JWT and confirms the session is still live
// in the cache.
func Auth(sec config.SecurityConfig, c cache.Cache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenStr, ok := bearerToken(ctx)
		if !ok {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		claims, err := ParseToken(tokenStr, sec.JWTSecret)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		cacheCtx, cancel := context.WithTimeout(ctx.Request.Context(), cacheTimeout)
		defer cancel()
		exists, err := c.Exists(cacheCtx, SessionKey(tokenStr))
		if err != nil || !exists {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}

		ctx.Set(UserIDKey, claims.UserID)
		ctx.Next()
	}
}

// GetUserID retrieves the authenticated user ID from the Gin context.
func GetUserID(c *gin.Context) string {
	if v, exists := c.Get(UserIDKey); exists {
		return v.(string)
	}
	return ""
}
