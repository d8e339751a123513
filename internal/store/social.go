package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/playpong/backend/internal/models"
)

// FriendEntry is a friend row joined with the player's public fields.
type FriendEntry struct {
	FriendshipID string `db:"friendship_id" json:"friendship_id"`
	ID           string `db:"id" json:"id"`
	Username     string `db:"username" json:"username"`
	Avatar       string `db:"avatar" json:"avatar"`
	Online       bool   `db:"online" json:"online"`
	Wins         int    `db:"wins" json:"wins"`
	Losses       int    `db:"losses" json:"losses"`
}

// FriendshipBetween returns the friendship row between two players in any
// state and direction, or nil when none exists.
func (s *Store) FriendshipBetween(ctx context.Context, a, b string) (*models.Friendship, error) {
	var f models.Friendship
	err := s.db.GetContext(ctx, &f, `
		SELECT * FROM friendships
		WHERE (player1_id = $1 AND player2_id = $2)
		   OR (player1_id = $2 AND player2_id = $1)
	`, a, b)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get friendship: %w", err)
	}
	return &f, nil
}

// CreateFriendship inserts a pending friend request from requester to
// addressee.
func (s *Store) CreateFriendship(ctx context.Context, requesterID, addresseeID string) (*models.Friendship, error) {
	var f models.Friendship
	err := s.db.GetContext(ctx, &f, `
		INSERT INTO friendships (id, player1_id, player2_id)
		VALUES ($1, $2, $3)
		RETURNING *
	`, uuid.NewString(), requesterID, addresseeID)
	if err != nil {
		return nil, fmt.Errorf("create friendship: %w", err)
	}
	return &f, nil
}

func (s *Store) FriendshipByID(ctx context.Context, id string) (*models.Friendship, error) {
	var f models.Friendship
	err := s.db.GetContext(ctx, &f, `SELECT * FROM friendships WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound("friendship not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get friendship: %w", err)
	}
	return &f, nil
}

func (s *Store) AcceptFriendship(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE friendships SET accepted = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("accept friendship: %w", err)
	}
	return nil
}

func (s *Store) DeleteFriendship(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM friendships WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete friendship: %w", err)
	}
	return nil
}

// ListFriends returns the player's accepted friends with live public fields.
func (s *Store) ListFriends(ctx context.Context, playerID string) ([]FriendEntry, error) {
	friends := []FriendEntry{}
	err := s.db.SelectContext(ctx, &friends, `
		SELECT f.id AS friendship_id,
		       p.id, p.username, p.avatar, p.online, p.wins, p.losses
		FROM friendships f
		JOIN players p
		  ON p.id = CASE WHEN f.player1_id = $1 THEN f.player2_id ELSE f.player1_id END
		WHERE f.accepted = TRUE AND (f.player1_id = $1 OR f.player2_id = $1)
		ORDER BY p.username
	`, playerID)
	if err != nil {
		return nil, fmt.Errorf("list friends: %w", err)
	}
	return friends, nil
}

// BlockPlayer records a block and severs any friendship in either direction.
func (s *Store) BlockPlayer(ctx context.Context, playerID, blockedID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin block: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO blocked_users (id, player_id, blocked_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (player_id, blocked_id) DO NOTHING
	`, uuid.NewString(), playerID, blockedID); err != nil {
		return fmt.Errorf("insert block: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM friendships
		WHERE (player1_id = $1 AND player2_id = $2)
		   OR (player1_id = $2 AND player2_id = $1)
	`, playerID, blockedID); err != nil {
		return fmt.Errorf("sever friendship: %w", err)
	}
	return tx.Commit()
}

func (s *Store) UnblockPlayer(ctx context.Context, playerID, blockedID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM blocked_users WHERE player_id = $1 AND blocked_id = $2
	`, playerID, blockedID)
	if err != nil {
		return fmt.Errorf("unblock: %w", err)
	}
	return nil
}

func (s *Store) ListBlocked(ctx context.Context, playerID string) ([]models.Player, error) {
	players := []models.Player{}
	err := s.db.SelectContext(ctx, &players, `
		SELECT p.* FROM blocked_users b
		JOIN players p ON p.id = b.blocked_id
		WHERE b.player_id = $1
		ORDER BY p.username
	`, playerID)
	if err != nil {
		return nil, fmt.Errorf("list blocked: %w", err)
	}
	return players, nil
}
