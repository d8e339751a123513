package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/playpong/backend/internal/auth"
	"github.com/playpong/backend/internal/middleware"
	"github.com/playpong/backend/internal/models"
)

// identity returns the authenticated identity or aborts with 401. Handlers
// behind RequireAuth never hit the abort path; it covers misrouting.
func identity(c *gin.Context) (*auth.Identity, bool) {
	ident, ok := middleware.Identity(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"status":  "error",
			"message": "authentication required",
		})
	}
	return ident, ok
}

// respondError maps a domain error to its HTTP status with the uniform error
// body. Internal errors are logged and masked.
func respondError(c *gin.Context, err error) {
	status := statusForKind(models.KindOf(err))
	message := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("[API] %s %s: %v", c.Request.Method, c.FullPath(), err)
		message = "internal error"
	}
	c.JSON(status, gin.H{"status": "error", "message": message})
}

func statusForKind(kind string) int {
	switch kind {
	case models.KindAuthMissing, models.KindAuthInvalid, models.KindAuthExpired:
		return http.StatusUnauthorized
	case models.KindPermissionDenied:
		return http.StatusForbidden
	case models.KindValidation, models.KindConflict:
		return http.StatusBadRequest
	case models.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// setPairCookies writes both token cookies onto the response.
func setPairCookies(c *gin.Context, tokens *auth.TokenService, pair *auth.TokenPair) {
	for _, cookie := range tokens.PairCookies(pair) {
		http.SetCookie(c.Writer, cookie)
	}
}

// publicPlayer is the profile shape safe to show to other players.
func publicPlayer(p *models.Player) gin.H {
	return gin.H{
		"id":       p.ID,
		"username": p.Username,
		"avatar":   p.Avatar,
		"online":   p.Online,
		"wins":     p.Wins,
		"losses":   p.Losses,
	}
}
