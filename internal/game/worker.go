package game

import (
	"context"
	"log"
	"time"
)

// StaleGameStore deletes PENDING games nobody ever played.
type StaleGameStore interface {
	DeleteStalePendingGames(ctx context.Context, cutoff time.Time) (int64, error)
}

// StartStaleGameSweeper runs a background pass that reaps waiting sessions
// older than maxAge from the registry and deletes their PENDING rows, so an
// abandoned match cannot hold its players in ALREADY_IN_GAME forever.
func StartStaleGameSweeper(ctx context.Context, store StaleGameStore, registry *Registry, interval, maxAge time.Duration) {
	log.Printf("[SWEEPER] Stale game sweeper started (interval %s, max age %s)", interval, maxAge)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("[SWEEPER] Stale game sweeper stopping")
				return
			case <-ticker.C:
				if reaped := registry.ReapStale(maxAge); reaped > 0 {
					log.Printf("[SWEEPER] Reaped %d idle session(s)", reaped)
				}
				deleted, err := store.DeleteStalePendingGames(ctx, time.Now().Add(-maxAge))
				if err != nil {
					log.Printf("[SWEEPER] Failed to delete stale games: %v", err)
					continue
				}
				if deleted > 0 {
					log.Printf("[SWEEPER] Deleted %d stale pending game(s)", deleted)
				}
			}
		}
	}()
}
