package game

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/playpong/backend/internal/models"
)

// queueKey is the Redis list backing the FIFO matchmaking queue. Head is the
// longest-waiting player.
const queueKey = "matchmaking:queue"

// Matchmaker pairs players first-in-first-out. The queue lives in Redis; the
// pop-two-and-create critical section is serialized by an in-process mutex
// (single matchmaking process by design) so no player can be paired twice.
type Matchmaker struct {
	rdb   *redis.Client
	store models.GameStore
	bus   models.NotifyBus
	mu    sync.Mutex
}

func NewMatchmaker(rdb *redis.Client, store models.GameStore, bus models.NotifyBus) *Matchmaker {
	return &Matchmaker{rdb: rdb, store: store, bus: bus}
}

// Enqueue adds the player to the queue and attempts a pairing. When a pair
// forms, the new game's id is returned and both players receive a matched
// event on their matchmaking sockets; otherwise the id is empty and the
// player waits in the queue.
func (m *Matchmaker) Enqueue(ctx context.Context, playerID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	active, err := m.store.HasActiveGame(ctx, playerID)
	if err != nil {
		return "", fmt.Errorf("check active game: %w", err)
	}
	if active {
		return "", models.ErrConflict(models.CodeAlreadyInGame, "player already has a game in progress")
	}

	queued, err := m.rdb.LRange(ctx, queueKey, 0, -1).Result()
	if err != nil {
		return "", fmt.Errorf("read queue: %w", err)
	}
	for _, id := range queued {
		if id == playerID {
			return "", models.ErrConflict(models.CodeAlreadyQueued, "player is already in the matchmaking queue")
		}
	}

	if err := m.rdb.RPush(ctx, queueKey, playerID).Err(); err != nil {
		return "", fmt.Errorf("enqueue player: %w", err)
	}
	log.Printf("[MATCHMAKER] Player %s queued (%d waiting)", playerID, len(queued)+1)

	if len(queued)+1 < 2 {
		return "", nil
	}

	first, second, gameID, err := m.pairHead(ctx)
	if err != nil {
		return "", err
	}
	if playerID == first || playerID == second {
		return gameID, nil
	}
	// A backlog pair ahead of the caller was matched; the caller stays
	// queued for the next arrival.
	return "", nil
}

// pairHead pops the two longest-waiting players and creates their game.
// Caller holds the matchmaker lock.
func (m *Matchmaker) pairHead(ctx context.Context) (first, second, gameID string, err error) {
	first, err = m.rdb.LPop(ctx, queueKey).Result()
	if err != nil {
		return "", "", "", fmt.Errorf("pop first player: %w", err)
	}
	second, err = m.rdb.LPop(ctx, queueKey).Result()
	if err != nil {
		// Put the head back so the lone player keeps their spot.
		m.rdb.LPush(ctx, queueKey, first)
		return "", "", "", fmt.Errorf("pop second player: %w", err)
	}

	game, err := m.store.CreateGame(ctx, first, second, "")
	if err != nil {
		// Restore both players in their original order.
		m.rdb.LPush(ctx, queueKey, second)
		m.rdb.LPush(ctx, queueKey, first)
		return "", "", "", fmt.Errorf("create matched game: %w", err)
	}

	log.Printf("[MATCHMAKER] Matched %s vs %s into game %s", first, second, game.ID)

	matched := models.StatusFrame("matched", map[string]any{"game_id": game.ID})
	m.bus.Send(first, models.ChannelMatchmaking, matched)
	m.bus.Send(second, models.ChannelMatchmaking, matched)

	return first, second, game.ID, nil
}

// Cancel removes the player from the queue. Not being queued is a no-op.
func (m *Matchmaker) Cancel(ctx context.Context, playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed, err := m.rdb.LRem(ctx, queueKey, 0, playerID).Result()
	if err != nil {
		return fmt.Errorf("cancel matchmaking: %w", err)
	}
	if removed > 0 {
		log.Printf("[MATCHMAKER] Player %s left the queue", playerID)
	}
	return nil
}

// QueueLength reports how many players are waiting.
func (m *Matchmaker) QueueLength(ctx context.Context) (int64, error) {
	return m.rdb.LLen(ctx, queueKey).Result()
}
