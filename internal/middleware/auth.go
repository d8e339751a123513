package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/playpong/backend/internal/auth"
)

const identityKey = "identity"

// AuthGate runs the sliding-refresh token contract on every request. Rotated
// or cleared cookies are written to the response before the handler runs, so
// handlers never touch the token pair themselves.
//
// WebSocket routes must not pass through this gate: the upgrade response is
// hijacked, so a rotation here would blacklist the old refresh token while
// the Set-Cookie headers carrying its replacement are silently dropped.
func AuthGate(tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		accessRaw, _ := c.Cookie(tokens.AccessCookieName())
		refreshRaw, _ := c.Cookie(tokens.RefreshCookieName())

		result := tokens.Gate(c.Request.Context(), accessRaw, refreshRaw)
		for _, cookie := range result.SetCookies {
			http.SetCookie(c.Writer, cookie)
		}
		if result.Identity != nil {
			c.Set(identityKey, result.Identity)
		}
		c.Next()
	}
}

// RequireAuth rejects requests that did not authenticate at the gate.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := Identity(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"status":  "error",
				"message": "authentication required",
			})
			return
		}
		c.Next()
	}
}

// Identity returns the identity bound to the request by AuthGate.
func Identity(c *gin.Context) (*auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	ident, ok := v.(*auth.Identity)
	return ident, ok
}
