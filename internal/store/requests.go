package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/playpong/backend/internal/models"
)

func (s *Store) CreateRequest(ctx context.Context, requesterID, opponentID string) (*models.GameRequest, error) {
	var r models.GameRequest
	err := s.db.GetContext(ctx, &r, `
		INSERT INTO game_requests (id, requester_id, opponent_id)
		VALUES ($1, $2, $3)
		RETURNING *
	`, uuid.NewString(), requesterID, opponentID)
	if err != nil {
		return nil, fmt.Errorf("create game request: %w", err)
	}
	return &r, nil
}

func (s *Store) RequestByID(ctx context.Context, id string) (*models.GameRequest, error) {
	var r models.GameRequest
	err := s.db.GetContext(ctx, &r, `SELECT * FROM game_requests WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound("game request not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get game request: %w", err)
	}
	return &r, nil
}

func (s *Store) SetRequestStatus(ctx context.Context, id, status string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE game_requests SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("set request status: %w", err)
	}
	return nil
}

// HasPendingRequest reports whether the player is on either side of a
// PENDING challenge.
func (s *Store) HasPendingRequest(ctx context.Context, playerID string) (bool, error) {
	var pending bool
	err := s.db.GetContext(ctx, &pending, `
		SELECT EXISTS (
			SELECT 1 FROM game_requests
			WHERE (requester_id = $1 OR opponent_id = $1) AND status = $2
		)
	`, playerID, models.RequestStatusPending)
	if err != nil {
		return false, fmt.Errorf("check pending request: %w", err)
	}
	return pending, nil
}

// DeletePendingRequests drops every PENDING challenge the player is part of,
// on either side. Used when the player goes offline.
func (s *Store) DeletePendingRequests(ctx context.Context, playerID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM game_requests
		WHERE (requester_id = $1 OR opponent_id = $1) AND status = $2
	`, playerID, models.RequestStatusPending)
	if err != nil {
		return 0, fmt.Errorf("delete pending requests: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
