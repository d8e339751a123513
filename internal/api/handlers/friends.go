package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/playpong/backend/internal/models"
	"github.com/playpong/backend/internal/store"
)

// SendFriendRequest creates a pending friendship and notifies the addressee.
func SendFriendRequest(st *store.Store, bus models.NotifyBus) gin.HandlerFunc {
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

		ctx := c.Request.Context()
		target, err := st.PlayerByUsername(ctx, strings.TrimSpace(req.Username))
		if err != nil {
			respondError(c, err)
			return
		}
		if target.ID == ident.PlayerID {
			respondError(c, models.ErrConflict(models.CodeSelfAction, "you cannot befriend yourself"))
			return
		}

		blocked, err := st.Blocked(ctx, ident.PlayerID, target.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		if blocked {
			respondError(c, models.ErrConflict(models.CodeBlocked, "player not available"))
			return
		}

		existing, err := st.FriendshipBetween(ctx, ident.PlayerID, target.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		if existing != nil {
			respondError(c, models.ErrValidation("friendship already exists or is pending"))
			return
		}

		friendship, err := st.CreateFriendship(ctx, ident.PlayerID, target.ID)
		if err != nil {
			respondError(c, err)
			return
		}

		requester, err := st.PlayerByID(ctx, ident.PlayerID)
		if err == nil {
			bus.Send(target.ID, models.ChannelNotification, models.Notification(models.EventFriendRequest, map[string]any{
				"friendship_id":  friendship.ID,
				"requester_name": requester.Username,
				"avatar":         requester.Avatar,
			}))
		}

		c.JSON(http.StatusCreated, gin.H{"status": "success", "friendship": friendship})
	}
}

// AcceptFriend accepts a pending friendship. Only the addressee may accept.
func AcceptFriend(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := identity(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		friendship, err := st.FriendshipByID(ctx, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		if friendship.Player2ID != ident.PlayerID {
			respondError(c, models.ErrPermissionDenied("only the addressee may accept a friend request"))
			return
		}
		if friendship.Accepted {
			respondError(c, models.ErrValidation("friend request already accepted"))
			return
		}
		if err := st.AcceptFriendship(ctx, friendship.ID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "message": "friend request accepted"})
	}
}

// DeleteFriend rejects a pending request (addressee only) or dissolves an
// accepted friendship (either side).
func DeleteFriend(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := identity(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		friendship, err := st.FriendshipByID(ctx, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}

		isRequester := friendship.Player1ID == ident.PlayerID
		isAddressee := friendship.Player2ID == ident.PlayerID
		switch {
		case !isRequester && !isAddressee:
			respondError(c, models.ErrNotFound("friendship not found"))
			return
		case !friendship.Accepted && !isAddressee:
			respondError(c, models.ErrPermissionDenied("only the addressee may reject a friend request"))
			return
		}

		if err := st.DeleteFriendship(ctx, friendship.ID); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// ListFriends returns the caller's accepted friends with live online flags.
func ListFriends(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := identity(c)
		if !ok {
			return
		}
		friends, err := st.ListFriends(c.Request.Context(), ident.PlayerID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "friends": friends})
	}
}
