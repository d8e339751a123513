package store

import (
	"context"
	"fmt"
	"time"
)

// BlacklistToken records a refresh jti that may no longer be used. Inserting
// the same jti twice is a no-op.
func (s *Store) BlacklistToken(ctx context.Context, jti, playerID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_token_blacklist (jti, player_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (jti) DO NOTHING
	`, jti, playerID, expiresAt)
	if err != nil {
		return fmt.Errorf("blacklist token: %w", err)
	}
	return nil
}

func (s *Store) IsTokenBlacklisted(ctx context.Context, jti string) (bool, error) {
	var listed bool
	err := s.db.GetContext(ctx, &listed, `
		SELECT EXISTS (SELECT 1 FROM refresh_token_blacklist WHERE jti = $1)
	`, jti)
	if err != nil {
		return false, fmt.Errorf("check blacklist: %w", err)
	}
	return listed, nil
}

// PruneExpiredTokens drops blacklist rows whose tokens have expired anyway.
func (s *Store) PruneExpiredTokens(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM refresh_token_blacklist WHERE expires_at < NOW()`)
	if err != nil {
		return 0, fmt.Errorf("prune blacklist: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
