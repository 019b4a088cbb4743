package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Context keys under which the authenticated principal is stored. Handlers
// read the wallet address and pass it explicitly into every service call.
const (
	ContextUserID    = "user_id"
	ContextPrincipal = "wallet_address"
)

// AuthMiddleware validates the bearer token and stores the principal in the
// request context. A token without a wallet address is rejected: every
// workflow authorization decision needs the principal.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authorization header required",
			})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid authorization header format. Expected: Bearer <token>",
			})
			c.Abort()
			return
		}

		claims, err := ValidateToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			c.Abort()
			return
		}

		if claims.WalletAddress == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Token carries no principal",
			})
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextPrincipal, claims.WalletAddress)

		c.Next()
	}
}

// GetUserID retrieves the authenticated user's ID from the context
func GetUserID(c *gin.Context) (uint, bool) {
	userID, exists := c.Get(ContextUserID)
	if !exists {
		return 0, false
	}

	id, ok := userID.(uint)
	return id, ok
}

// GetPrincipal retrieves the authenticated wallet address from the context
func GetPrincipal(c *gin.Context) (string, bool) {
	addr, exists := c.Get(ContextPrincipal)
	if !exists {
		return "", false
	}

	address, ok := addr.(string)
	return address, ok
}
