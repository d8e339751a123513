package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/playpong/backend/internal/models"
)

// ConversationBetween returns the thread between two players regardless of
// who opened it, or nil when none exists.
func (s *Store) ConversationBetween(ctx context.Context, a, b string) (*models.Conversation, error) {
	var c models.Conversation
	err := s.db.GetContext(ctx, &c, `
		SELECT * FROM conversations
		WHERE (player1_id = $1 AND player2_id = $2)
		   OR (player1_id = $2 AND player2_id = $1)
	`, a, b)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return &c, nil
}

func (s *Store) CreateConversation(ctx context.Context, player1ID, player2ID string) (*models.Conversation, error) {
	var c models.Conversation
	err := s.db.GetContext(ctx, &c, `
		INSERT INTO conversations (id, player1_id, player2_id)
		VALUES ($1, $2, $3)
		RETURNING *
	`, uuid.NewString(), player1ID, player2ID)
	if err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	return &c, nil
}

func (s *Store) ConversationByID(ctx context.Context, id string) (*models.Conversation, error) {
	var c models.Conversation
	err := s.db.GetContext(ctx, &c, `SELECT * FROM conversations WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound("conversation not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return &c, nil
}

// ListConversations returns the player's threads, hiding ones the player has
// cleared, most recently active first.
func (s *Store) ListConversations(ctx context.Context, playerID string) ([]models.Conversation, error) {
	conversations := []models.Conversation{}
	err := s.db.SelectContext(ctx, &conversations, `
		SELECT * FROM conversations
		WHERE (player1_id = $1 AND visible_to_player1 = TRUE)
		   OR (player2_id = $1 AND visible_to_player2 = TRUE)
		ORDER BY last_message_at DESC NULLS LAST
	`, playerID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return conversations, nil
}

// InsertMessage appends a message and refreshes the thread preview. A new
// message makes the thread visible to both sides again.
func (s *Store) InsertMessage(ctx context.Context, conversationID, senderID, content string) (*models.Message, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insert message: %w", err)
	}
	defer tx.Rollback()

	var m models.Message
	err = tx.GetContext(ctx, &m, `
		INSERT INTO messages (id, conversation_id, sender_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, uuid.NewString(), conversationID, senderID, content)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE conversations
		SET last_message = $2, last_message_at = NOW(),
		    visible_to_player1 = TRUE, visible_to_player2 = TRUE
		WHERE id = $1
	`, conversationID, content); err != nil {
		return nil, fmt.Errorf("update conversation preview: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insert message: %w", err)
	}
	return &m, nil
}

// ClearConversation hides the thread and everything currently in it for one
// side only. The other participant keeps their copy; a new message makes the
// thread itself visible again.
func (s *Store) ClearConversation(ctx context.Context, conversationID string, viewerIsPlayer1 bool) error {
	column := "visible_to_player2"
	if viewerIsPlayer1 {
		column = "visible_to_player1"
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear conversation: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE conversations SET `+column+` = FALSE WHERE id = $1
	`, conversationID); err != nil {
		return fmt.Errorf("hide conversation: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE messages SET `+column+` = FALSE WHERE conversation_id = $1
	`, conversationID); err != nil {
		return fmt.Errorf("hide messages: %w", err)
	}
	return tx.Commit()
}

// ListMessages returns the thread's messages still visible to the viewer's
// side, oldest first.
func (s *Store) ListMessages(ctx context.Context, conversationID string, viewerIsPlayer1 bool) ([]models.Message, error) {
	column := "visible_to_player2"
	if viewerIsPlayer1 {
		column = "visible_to_player1"
	}
	messages := []models.Message{}
	err := s.db.SelectContext(ctx, &messages, `
		SELECT * FROM messages
		WHERE conversation_id = $1 AND `+column+` = TRUE
		ORDER BY created_at ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}
