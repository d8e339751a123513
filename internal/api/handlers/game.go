package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/playpong/backend/internal/game"
	"github.com/playpong/backend/internal/store"
)

// RequestGame puts the caller into the matchmaking queue. When the enqueue
// itself completes a pair the new game id comes back immediately; otherwise
// the caller waits for the matched event on its matchmaking socket.
func RequestGame(matchmaker *game.Matchmaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := identity(c)
		if !ok {
			return
		}

		gameID, err := matchmaker.Enqueue(c.Request.Context(), ident.PlayerID)
		if err != nil {
			respondError(c, err)
			return
		}
		if gameID != "" {
			c.JSON(http.StatusCreated, gin.H{"status": "success", "game_id": gameID})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "success", "message": "Queued for matchmaking"})
	}
}

// RequestGameWithPlayer sends a direct challenge to a named opponent.
func RequestGameWithPlayer(challenges *game.Challenges) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := identity(c)
		if !ok {
			return
		}
		var req struct {
			Username string `json:"username"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "username required"})
			return
		}

		request, err := challenges.Send(c.Request.Context(), ident.PlayerID, strings.TrimSpace(req.Username))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"status": "success", "request_id": request.ID})
	}
}

// AcceptGameRequest accepts a pending challenge and returns the created game.
func AcceptGameRequest(challenges *game.Challenges) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := identity(c)
		if !ok {
			return
		}
		var req struct {
			RequestID string `json:"request_id"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "request_id required"})
			return
		}

		pongGame, err := challenges.Accept(c.Request.Context(), req.RequestID, ident.PlayerID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "game_id": pongGame.ID})
	}
}

// RejectGameRequest declines a pending challenge.
func RejectGameRequest(challenges *game.Challenges) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := identity(c)
		if !ok {
			return
		}
		var req struct {
			RequestID string `json:"request_id"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "request_id required"})
			return
		}

		if err := challenges.Reject(c.Request.Context(), req.RequestID, ident.PlayerID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "message": "game request rejected"})
	}
}

// MatchHistory lists a player's finished games, newest first.
func MatchHistory(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		player, err := st.PlayerByUsername(ctx, c.Param("username"))
		if err != nil {
			respondError(c, err)
			return
		}

		records, err := st.MatchHistory(ctx, player.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "matches": records})
	}
}
