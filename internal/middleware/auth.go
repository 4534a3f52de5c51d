package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quocanhngo/lostfound/pkg/auth"
	"github.com/redis/go-redis/v9"
)

// Context keys set by AuthMiddleware
const (
	ContextUserID   = "user_id"
	ContextUserName = "user_name"
)

const blacklistTimeout = 2 * time.Second

// IsRevoked reports whether the token was put on the logout blacklist by the
// account service. A nil client disables the check.
func IsRevoked(ctx context.Context, rdb *redis.Client, token string) (bool, error) {
	if rdb == nil {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, blacklistTimeout)
	defer cancel()
	n, err := rdb.Exists(ctx, "blacklist:"+token).Result()
	return n > 0, err
}

// AuthMiddleware validates JWT tokens and injects user claims into context
func AuthMiddleware(jwtManager *auth.JWTManager, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		tokenString, ok := auth.BearerToken(authHeader)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format. Use: Bearer <token>"})
			return
		}

		revoked, err := IsRevoked(c.Request.Context(), rdb, tokenString)
		if err != nil {
			// fail closed
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Auth server error"})
			return
		}
		if revoked {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token has been revoked"})
			return
		}

		claims, err := jwtManager.ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserName, claims.Name)

		c.Next()
	}
}
