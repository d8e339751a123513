package game

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/playpong/backend/internal/models"
)

// Registry owns every live game session in the process, keyed by game id.
// Sessions for matchmade and challenge games are created lazily when the
// first player connects; tournament sessions are registered up front so
// their attach deadlines run even if nobody shows.
type Registry struct {
	store models.GameStore
	users models.UserStore
	cfg   EngineConfig
	tick  time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(store models.GameStore, users models.UserStore) *Registry {
	return &Registry{
		store:    store,
		users:    users,
		cfg:      DefaultEngineConfig(),
		tick:     defaultTickInterval,
		sessions: make(map[string]*Session),
	}
}

// Get returns the live session for a game, if any.
func (r *Registry) Get(gameID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[gameID]
	return s, ok
}

// GetOrCreate returns the live session for a game, building one from the
// persisted row when none exists. Finished games do not get sessions.
func (r *Registry) GetOrCreate(ctx context.Context, gameID string) (*Session, error) {
	r.mu.Lock()
	if s, ok := r.sessions[gameID]; ok {
		r.mu.Unlock()
		return s, nil
	}
	r.mu.Unlock()

	game, err := r.store.GameByID(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if game.Status == models.GameStatusFinished {
		return nil, models.ErrValidation("game is already over")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[gameID]; ok {
		return s, nil
	}
	s := r.newSession(game)
	r.sessions[gameID] = s
	return s, nil
}

// CreateForMatch registers a session before any player has connected, with a
// deadline by which both must attach and a callback fired after the result
// is recorded. Used by the tournament engine. Returns the existing session
// if one is already registered for the game.
func (r *Registry) CreateForMatch(game *models.PongGame, attachDeadline time.Duration, afterFinalize func(gameID, winnerID string)) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[game.ID]; ok {
		return s
	}
	s := r.newSession(game)
	s.afterFinalize = afterFinalize
	if attachDeadline > 0 {
		s.setAttachDeadline(attachDeadline)
	}
	r.sessions[game.ID] = s
	return s
}

// Remove drops a session from the registry. Safe for ids already gone.
func (r *Registry) Remove(gameID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, gameID)
}

// ReapStale quietly terminates sessions that have been waiting for players
// longer than maxAge and returns how many were reaped. Sessions with an
// attach deadline resolve themselves and are skipped.
func (r *Registry) ReapStale(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)

	r.mu.Lock()
	var stale []*Session
	for _, s := range r.sessions {
		if s.createdAt.Before(cutoff) && !s.deadlined {
			stale = append(stale, s)
		}
	}
	r.mu.Unlock()

	reaped := 0
	for _, s := range stale {
		if s.terminateQuietly() {
			r.Remove(s.gameID)
			log.Printf("[SESSION] Game %s session reaped before start", s.gameID)
			reaped++
		}
	}
	return reaped
}

func (r *Registry) newSession(game *models.PongGame) *Session {
	s := NewSession(game, NewEngine(r.cfg, game.Player1ID, game.Player2ID, nil), r.store, r.users)
	s.tick = r.tick
	s.onTerminated = r.Remove
	return s
}
