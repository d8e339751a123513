package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/playpong/backend/internal/models"
)

const (
	loginStashPrefix = "2fa:login:"
	loginStashTTL    = 5 * time.Minute
)

// PendingLogin is a password-verified login waiting on its second factor.
// The minted pair is stashed server-side so the password is never replayed;
// the client only ever sees the opaque login token.
type PendingLogin struct {
	PlayerID string `json:"player_id"`
	Username string `json:"username"`
	Access   string `json:"access"`
	Refresh  string `json:"refresh"`
}

// StashPendingLogin stores the pending login in Redis and returns the opaque
// token the client must echo back with its code.
func StashPendingLogin(ctx context.Context, rdb *redis.Client, pending PendingLogin) (string, error) {
	token := uuid.NewString()
	data, err := json.Marshal(pending)
	if err != nil {
		return "", fmt.Errorf("marshal pending login: %w", err)
	}
	if err := rdb.Set(ctx, loginStashPrefix+token, data, loginStashTTL).Err(); err != nil {
		return "", fmt.Errorf("stash pending login: %w", err)
	}
	return token, nil
}

// PendingLoginByToken fetches a stashed login without consuming it, so a
// mistyped code can be retried until the stash expires.
func PendingLoginByToken(ctx context.Context, rdb *redis.Client, token string) (*PendingLogin, error) {
	val, err := rdb.Get(ctx, loginStashPrefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return nil, models.ErrAuthInvalid("invalid or expired login token")
	}
	if err != nil {
		return nil, fmt.Errorf("fetch pending login: %w", err)
	}
	var pending PendingLogin
	if err := json.Unmarshal([]byte(val), &pending); err != nil {
		return nil, fmt.Errorf("decode pending login: %w", err)
	}
	return &pending, nil
}

// ConsumePendingLogin removes a stashed login after a successful second
// factor.
func ConsumePendingLogin(ctx context.Context, rdb *redis.Client, token string) {
	if err := rdb.Del(ctx, loginStashPrefix+token).Err(); err != nil {
		log.Printf("[AUTH] Failed to consume pending login: %v", err)
	}
}
