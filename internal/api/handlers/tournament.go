package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/playpong/backend/internal/game"
)

// CreateTournament starts a four-player bracket. The creator must be among
// the four named players.
func CreateTournament(tournaments *game.Tournaments) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := identity(c)
		if !ok {
			return
		}
		var req struct {
			Players []string `json:"players"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "players required"})
			return
		}

		tournament, err := tournaments.Create(c.Request.Context(), ident.PlayerID, req.Players)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"status": "success", "tournament_id": tournament.ID})
	}
}
