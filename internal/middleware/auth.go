package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"chaindice-backend/internal/services"
)

// AuthMiddleware resolves the wallet address from the session token and
// stores it on the request context. The body is never trusted for identity.
func AuthMiddleware(jwtService *services.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		var tokenString string

		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format"})
				c.Abort()
				return
			}
			tokenString = parts[1]
		} else {
			// Websocket clients cannot set headers; allow ?token=.
			tokenString = c.Query("token")
			if tokenString == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
				c.Abort()
				return
			}
		}

		claims, err := jwtService.ValidateToken(tokenString)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("wallet", claims.Wallet)

		c.Next()
	}
}

// RateLimitMiddleware is a coarse transport-level guard in front of the
// engine's own admission control.
func RateLimitMiddleware(ledger *services.BetLedger) gin.HandlerFunc {
	return func(c *gin.Context) {
		wallet := c.GetString("wallet")
		if wallet == "" {
			c.Next()
			return
		}

		path := c.Request.URL.Path

		var limit int
		var window time.Duration

		switch {
		case strings.HasSuffix(path, "/bets"):
			limit = 30
			window = time.Minute
		case strings.HasSuffix(path, "/bets/roll"):
			limit = 60
			window = time.Minute
		default:
			c.Next()
			return
		}

		allowed, err := ledger.CheckRateLimit(c.Request.Context(), wallet, path, limit, window)
		if err != nil || !allowed {
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Rate limit exceeded",
				"retry_after": window.Seconds(),
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
