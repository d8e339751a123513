package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/playpong/backend/internal/models"
	"github.com/playpong/backend/internal/store"
)

// ListConversations returns the caller's visible threads, most recently
// active first.
func ListConversations(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := identity(c)
		if !ok {
			return
		}
		conversations, err := st.ListConversations(c.Request.Context(), ident.PlayerID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "conversations": conversations})
	}
}

// OpenConversation returns the thread with the named player, creating it on
// first contact.
func OpenConversation(st *store.Store) gin.HandlerFunc {
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
			respondError(c, models.ErrConflict(models.CodeSelfAction, "you cannot message yourself"))
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

		conversation, err := st.ConversationBetween(ctx, ident.PlayerID, target.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		if conversation == nil {
			conversation, err = st.CreateConversation(ctx, ident.PlayerID, target.ID)
			if err != nil {
				respondError(c, err)
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "conversation": conversation})
	}
}

// ListMessages returns the thread's messages still visible to the caller.
func ListMessages(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := identity(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()
		conversation, err := conversationForParticipant(c, st, ident.PlayerID)
		if err != nil {
			respondError(c, err)
			return
		}

		messages, err := st.ListMessages(ctx, conversation.ID, conversation.Player1ID == ident.PlayerID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "success", "messages": messages})
	}
}

// SendMessage appends a message to the thread and pushes it to the
// recipient's chat sockets.
func SendMessage(st *store.Store, bus models.NotifyBus) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := identity(c)
		if !ok {
			return
		}
		var req struct {
			Content string `json:"content"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "content required"})
			return
		}
		content := strings.TrimSpace(req.Content)
		if content == "" {
			respondError(c, models.ErrValidation("message content must not be empty"))
			return
		}

		ctx := c.Request.Context()
		conversation, err := conversationForParticipant(c, st, ident.PlayerID)
		if err != nil {
			respondError(c, err)
			return
		}

		recipientID := conversation.Player1ID
		if recipientID == ident.PlayerID {
			recipientID = conversation.Player2ID
		}
		blocked, err := st.Blocked(ctx, ident.PlayerID, recipientID)
		if err != nil {
			respondError(c, err)
			return
		}
		if blocked {
			respondError(c, models.ErrConflict(models.CodeBlocked, "player not available"))
			return
		}

		message, err := st.InsertMessage(ctx, conversation.ID, ident.PlayerID, content)
		if err != nil {
			respondError(c, err)
			return
		}

		bus.Send(recipientID, models.ChannelChat, models.Notification(models.EventChatMessage, map[string]any{
			"conversation_id": conversation.ID,
			"data":            message,
		}))

		c.JSON(http.StatusCreated, gin.H{"status": "success", "data": message})
	}
}

// ClearConversation hides the thread and its current messages for the caller
// only. The other side keeps their copy.
func ClearConversation(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident, ok := identity(c)
		if !ok {
			return
		}
		conversation, err := conversationForParticipant(c, st, ident.PlayerID)
		if err != nil {
			respondError(c, err)
			return
		}
		if err := st.ClearConversation(c.Request.Context(), conversation.ID, conversation.Player1ID == ident.PlayerID); err != nil {
			respondError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// conversationForParticipant loads the :id thread; a caller who is not a
// participant gets the same NOT_FOUND as an unknown id.
func conversationForParticipant(c *gin.Context, st *store.Store, playerID string) (*models.Conversation, error) {
	conversation, err := st.ConversationByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		return nil, err
	}
	if conversation.Player1ID != playerID && conversation.Player2ID != playerID {
		return nil, models.ErrNotFound("conversation not found")
	}
	return conversation, nil
}
