package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/playpong/backend/internal/models"
)

// CreatePlayer inserts a new account. The username must be unique.
func (s *Store) CreatePlayer(ctx context.Context, username, passwordHash string) (*models.Player, error) {
	var p models.Player
	err := s.db.GetContext(ctx, &p, `
		INSERT INTO players (id, username, password_hash)
		VALUES ($1, $2, $3)
		RETURNING *
	`, uuid.NewString(), username, passwordHash)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, models.ErrValidation("username already taken")
		}
		return nil, fmt.Errorf("create player: %w", err)
	}
	return &p, nil
}

func (s *Store) PlayerByID(ctx context.Context, id string) (*models.Player, error) {
	var p models.Player
	err := s.db.GetContext(ctx, &p, `SELECT * FROM players WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound("player not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get player: %w", err)
	}
	return &p, nil
}

func (s *Store) PlayerByUsername(ctx context.Context, username string) (*models.Player, error) {
	var p models.Player
	err := s.db.GetContext(ctx, &p, `SELECT * FROM players WHERE username = $1`, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound("player not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get player by username: %w", err)
	}
	return &p, nil
}

func (s *Store) SetOnline(ctx context.Context, playerID string, online bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE players SET online = $2 WHERE id = $1`, playerID, online)
	if err != nil {
		return fmt.Errorf("set online: %w", err)
	}
	return nil
}

// ListPlayersVisibleTo returns every player except the viewer and anyone
// with a block in either direction.
func (s *Store) ListPlayersVisibleTo(ctx context.Context, viewerID string) ([]models.Player, error) {
	players := []models.Player{}
	err := s.db.SelectContext(ctx, &players, `
		SELECT p.* FROM players p
		WHERE p.id <> $1
		  AND NOT EXISTS (
		      SELECT 1 FROM blocked_users b
		      WHERE (b.player_id = $1 AND b.blocked_id = p.id)
		         OR (b.player_id = p.id AND b.blocked_id = $1)
		  )
		ORDER BY p.username
	`, viewerID)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	return players, nil
}

// FriendIDs returns the ids of every accepted friend of the player.
func (s *Store) FriendIDs(ctx context.Context, playerID string) ([]string, error) {
	ids := []string{}
	err := s.db.SelectContext(ctx, &ids, `
		SELECT CASE WHEN player1_id = $1 THEN player2_id ELSE player1_id END
		FROM friendships
		WHERE accepted = TRUE AND (player1_id = $1 OR player2_id = $1)
	`, playerID)
	if err != nil {
		return nil, fmt.Errorf("list friend ids: %w", err)
	}
	return ids, nil
}

// Blocked reports whether either player has blocked the other.
func (s *Store) Blocked(ctx context.Context, playerID, otherID string) (bool, error) {
	var blocked bool
	err := s.db.GetContext(ctx, &blocked, `
		SELECT EXISTS (
			SELECT 1 FROM blocked_users
			WHERE (player_id = $1 AND blocked_id = $2)
			   OR (player_id = $2 AND blocked_id = $1)
		)
	`, playerID, otherID)
	if err != nil {
		return false, fmt.Errorf("check block: %w", err)
	}
	return blocked, nil
}

// SetTwoFactorSecret stages a TOTP secret. 2FA stays disabled until the
// player confirms a code.
func (s *Store) SetTwoFactorSecret(ctx context.Context, playerID, secret string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE players SET two_factor_secret = $2, two_factor_enabled = FALSE WHERE id = $1
	`, playerID, secret)
	if err != nil {
		return fmt.Errorf("set 2fa secret: %w", err)
	}
	return nil
}

func (s *Store) EnableTwoFactor(ctx context.Context, playerID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE players SET two_factor_enabled = TRUE
		WHERE id = $1 AND two_factor_secret IS NOT NULL
	`, playerID)
	if err != nil {
		return fmt.Errorf("enable 2fa: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrValidation("no two-factor secret has been set up")
	}
	return nil
}

// DisableTwoFactor turns 2FA off and burns the secret and all backup codes.
func (s *Store) DisableTwoFactor(ctx context.Context, playerID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin disable 2fa: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE players SET two_factor_enabled = FALSE, two_factor_secret = NULL WHERE id = $1
	`, playerID); err != nil {
		return fmt.Errorf("disable 2fa: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM backup_codes WHERE player_id = $1`, playerID); err != nil {
		return fmt.Errorf("delete backup codes: %w", err)
	}
	return tx.Commit()
}

// ReplaceBackupCodes swaps the player's backup codes for a fresh set.
func (s *Store) ReplaceBackupCodes(ctx context.Context, playerID string, hashes []string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace backup codes: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM backup_codes WHERE player_id = $1`, playerID); err != nil {
		return fmt.Errorf("delete backup codes: %w", err)
	}
	for _, h := range hashes {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO backup_codes (player_id, code_hash) VALUES ($1, $2)
		`, playerID, h); err != nil {
			return fmt.Errorf("insert backup code: %w", err)
		}
	}
	return tx.Commit()
}

func (s *Store) UnusedBackupCodes(ctx context.Context, playerID string) ([]models.BackupCode, error) {
	codes := []models.BackupCode{}
	err := s.db.SelectContext(ctx, &codes, `
		SELECT * FROM backup_codes WHERE player_id = $1 AND used = FALSE
	`, playerID)
	if err != nil {
		return nil, fmt.Errorf("list backup codes: %w", err)
	}
	return codes, nil
}

func (s *Store) MarkBackupCodeUsed(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE backup_codes SET used = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark backup code used: %w", err)
	}
	return nil
}
