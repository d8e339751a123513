package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/playpong/backend/internal/models"
)

// CreateTournament persists an IN_PROGRESS tournament with its four
// participants in bracket order (slot 1 is the creator).
func (s *Store) CreateTournament(ctx context.Context, creatorID string, slots []string) (*models.Tournament, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create tournament: %w", err)
	}
	defer tx.Rollback()

	var t models.Tournament
	err = tx.GetContext(ctx, &t, `
		INSERT INTO tournaments (id, creator_id, status)
		VALUES ($1, $2, $3)
		RETURNING *
	`, uuid.NewString(), creatorID, models.TournamentStatusInProgress)
	if err != nil {
		return nil, fmt.Errorf("create tournament: %w", err)
	}

	for i, playerID := range slots {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO tournament_participants (tournament_id, player_id, slot)
			VALUES ($1, $2, $3)
		`, t.ID, playerID, i+1); err != nil {
			return nil, fmt.Errorf("add participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create tournament: %w", err)
	}
	return &t, nil
}

// FinishTournament records the champion. Finished tournaments are immutable.
func (s *Store) FinishTournament(ctx context.Context, id, winnerID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE tournaments SET status = $2, winner_id = $3
		WHERE id = $1 AND status <> $2
	`, id, models.TournamentStatusFinished, winnerID)
	if err != nil {
		return fmt.Errorf("finish tournament: %w", err)
	}
	return nil
}
