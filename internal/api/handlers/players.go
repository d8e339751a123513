package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/playpong/backend/internal/models"
	"github.com/playpong/backend/internal/store"
)

// Me returns the caller's own profile, including private settings.
func Me(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := identity(c)
		if !ok {
			return
		}
		player, err := st.PlayerByID(c.Request.Context(), ident.PlayerID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "player": player})
	}
}

// ListPlayers returns everyone visible to the caller. Players with a block
// in either direction are filtered out.
func ListPlayers(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := identity(c)
		if !ok {
			return
		}
		players, err := st.ListPlayersVisibleTo(c.Request.Context(), ident.PlayerID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "players": players})
	}
}

// PlayerProfile returns a public profile. A block in either direction hides
// the player entirely, indistinguishable from an unknown username.
func PlayerProfile(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := identity(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		target, err := st.PlayerByUsername(ctx, c.Param("username"))
		if err != nil {
			respondError(c, err)
			return
		}
		if target.ID != ident.PlayerID {
			blocked, err := st.Blocked(ctx, ident.PlayerID, target.ID)
			if err != nil {
				respondError(c, err)
				return
			}
			if blocked {
				respondError(c, models.ErrNotFound("player not found"))
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "player": publicPlayer(target)})
	}
}

// BlockPlayer adds a player to the caller's block list and severs any
// friendship between them.
func BlockPlayer(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := identity(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		target, err := st.PlayerByUsername(ctx, c.Param("username"))
		if err != nil {
			respondError(c, err)
			return
		}
		if target.ID == ident.PlayerID {
			respondError(c, models.ErrConflict(models.CodeSelfAction, "you cannot block yourself"))
			return
		}
		if err := st.BlockPlayer(ctx, ident.PlayerID, target.ID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "message": "player blocked"})
	}
}

// UnblockPlayer removes a player from the caller's block list.
func UnblockPlayer(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := identity(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		target, err := st.PlayerByUsername(ctx, c.Param("username"))
		if err != nil {
			respondError(c, err)
			return
		}
		if err := st.UnblockPlayer(ctx, ident.PlayerID, target.ID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "message": "player unblocked"})
	}
}

// ListBlocked returns the caller's block list.
func ListBlocked(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := identity(c)
		if !ok {
			return
		}
		players, err := st.ListBlocked(c.Request.Context(), ident.PlayerID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "players": players})
	}
}
