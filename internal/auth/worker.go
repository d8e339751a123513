package auth

import (
	"context"
	"log"
	"time"
)

// BlacklistPruner deletes blacklist rows whose tokens have expired anyway.
type BlacklistPruner interface {
	PruneExpiredTokens(ctx context.Context) (int64, error)
}

// StartBlacklistPruner runs the blacklist cleanup on an interval until the
// context is cancelled.
func StartBlacklistPruner(ctx context.Context, store BlacklistPruner, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		log.Printf("[BLACKLIST] Pruner started (interval %s)", interval)
		for {
			select {
			case <-ctx.Done():
				log.Println("[BLACKLIST] Pruner stopped")
				return
			case <-ticker.C:
				pruned, err := store.PruneExpiredTokens(ctx)
				if err != nil {
					log.Printf("[BLACKLIST] Prune failed: %v", err)
					continue
				}
				if pruned > 0 {
					log.Printf("[BLACKLIST] Pruned %d expired tokens", pruned)
				}
			}
		}
	}()
}
