package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/playpong/backend/internal/models"
)

// CreateGame inserts a PENDING game. tournamentID may be empty for games
// created by matchmaking or a direct challenge.
func (s *Store) CreateGame(ctx context.Context, player1ID, player2ID, tournamentID string) (*models.PongGame, error) {
	tid := sql.NullString{String: tournamentID, Valid: tournamentID != ""}
	var g models.PongGame
	err := s.db.GetContext(ctx, &g, `
		INSERT INTO pong_games (id, player1_id, player2_id, tournament_id)
		VALUES ($1, $2, $3, $4)
		RETURNING *
	`, uuid.NewString(), player1ID, player2ID, tid)
	if err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}
	return &g, nil
}

func (s *Store) GameByID(ctx context.Context, id string) (*models.PongGame, error) {
	var g models.PongGame
	err := s.db.GetContext(ctx, &g, `SELECT * FROM pong_games WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound("game not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get game: %w", err)
	}
	return &g, nil
}

// MarkGameStarted moves a PENDING game to STARTED. Already started or
// finished games are left untouched.
func (s *Store) MarkGameStarted(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE pong_games SET status = $2 WHERE id = $1 AND status = $3
	`, id, models.GameStatusStarted, models.GameStatusPending)
	if err != nil {
		return fmt.Errorf("mark game started: %w", err)
	}
	return nil
}

// HasActiveGame reports whether the player appears in any non-terminal game.
func (s *Store) HasActiveGame(ctx context.Context, playerID string) (bool, error) {
	var active bool
	err := s.db.GetContext(ctx, &active, `
		SELECT EXISTS (
			SELECT 1 FROM pong_games
			WHERE (player1_id = $1 OR player2_id = $1)
			  AND status IN ($2, $3)
		)
	`, playerID, models.GameStatusPending, models.GameStatusStarted)
	if err != nil {
		return false, fmt.Errorf("check active game: %w", err)
	}
	return active, nil
}

// FinalizeGame closes a game exactly once. The row is re-read under a row
// lock; a game that is already FINISHED is left untouched and the win/loss
// counters are not bumped again. Returns whether this call applied the
// result.
func (s *Store) FinalizeGame(ctx context.Context, id, winnerID string, player1Score, player2Score int) (bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin finalize: %w", err)
	}
	defer tx.Rollback()

	var g models.PongGame
	err = tx.GetContext(ctx, &g, `SELECT * FROM pong_games WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, models.ErrNotFound("game not found")
	}
	if err != nil {
		return false, fmt.Errorf("lock game: %w", err)
	}

	if g.Status == models.GameStatusFinished {
		return false, nil
	}
	if winnerID != g.Player1ID && winnerID != g.Player2ID {
		return false, models.ErrValidation("winner is not a participant of this game")
	}
	loserID := g.Player1ID
	if winnerID == g.Player1ID {
		loserID = g.Player2ID
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE pong_games
		SET status = $2, player1_score = $3, player2_score = $4, winner_id = $5, finished_at = NOW()
		WHERE id = $1
	`, id, models.GameStatusFinished, player1Score, player2Score, winnerID); err != nil {
		return false, fmt.Errorf("finish game: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE players SET wins = wins + 1 WHERE id = $1`, winnerID); err != nil {
		return false, fmt.Errorf("bump wins: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE players SET losses = losses + 1 WHERE id = $1`, loserID); err != nil {
		return false, fmt.Errorf("bump losses: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit finalize: %w", err)
	}
	return true, nil
}

// MatchHistory lists the player's finished games, newest first.
func (s *Store) MatchHistory(ctx context.Context, playerID string) ([]models.MatchRecord, error) {
	records := []models.MatchRecord{}
	err := s.db.SelectContext(ctx, &records, `
		SELECT g.id,
		       p1.username AS player1, p2.username AS player2,
		       g.player1_score, g.player2_score,
		       w.username AS winner,
		       g.finished_at
		FROM pong_games g
		JOIN players p1 ON p1.id = g.player1_id
		JOIN players p2 ON p2.id = g.player2_id
		JOIN players w  ON w.id = g.winner_id
		WHERE g.status = $2 AND (g.player1_id = $1 OR g.player2_id = $1)
		ORDER BY g.finished_at DESC
	`, playerID, models.GameStatusFinished)
	if err != nil {
		return nil, fmt.Errorf("match history: %w", err)
	}
	return records, nil
}

// DeleteStalePendingGames removes games that never started before the
// cutoff, so an abandoned PENDING row cannot keep its players locked out of
// matchmaking forever. Live tournament games resolve themselves well inside
// any sane cutoff via their attach deadline; a PENDING one this old is
// orphaned either way.
func (s *Store) DeleteStalePendingGames(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM pong_games
		WHERE status = $1 AND created_at < $2
	`, models.GameStatusPending, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete stale games: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
