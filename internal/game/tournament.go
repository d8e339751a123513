package game

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/playpong/backend/internal/models"
)

// defaultAttachDeadline is how long a tournament match waits for both
// players before the bracket advances without them.
const defaultAttachDeadline = 60 * time.Second

// bracket tracks one running tournament: the four players in slot order and
// the three games as they come into existence.
type bracket struct {
	id      string
	players [4]string
	names   map[string]string

	semi1 string
	semi2 string
	final string

	semi1Winner  string
	semi2Winner  string
	finalPending bool
}

// Tournaments runs four-player single-elimination brackets. Semifinals are
// (slot1 vs slot2) and (slot3 vs slot4); the final is created only after
// both semifinals have recorded a winner.
type Tournaments struct {
	store    models.GameStore
	users    models.UserStore
	bus      models.NotifyBus
	registry *Registry

	attachDeadline time.Duration

	mu       sync.Mutex
	brackets map[string]*bracket
	byGame   map[string]string
	byPlayer map[string]string
}

func NewTournaments(store models.GameStore, users models.UserStore, bus models.NotifyBus, registry *Registry) *Tournaments {
	return &Tournaments{
		store:          store,
		users:          users,
		bus:            bus,
		registry:       registry,
		attachDeadline: defaultAttachDeadline,
		brackets:       make(map[string]*bracket),
		byGame:         make(map[string]string),
		byPlayer:       make(map[string]string),
	}
}

// SetAttachDeadline overrides how long bracket matches wait for both players
// to connect. Must be called before the first tournament is created.
func (t *Tournaments) SetAttachDeadline(d time.Duration) {
	if d > 0 {
		t.attachDeadline = d
	}
}

// Create validates the four usernames, persists the tournament, creates both
// semifinal games with live sessions and notifies the participants. The
// creator must be among the players and is placed in slot 1.
func (t *Tournaments) Create(ctx context.Context, creatorID string, usernames []string) (*models.Tournament, error) {
	if len(usernames) != 4 {
		return nil, models.ErrValidation("a tournament needs exactly four players")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	players := make([]*models.Player, 0, 4)
	seen := make(map[string]bool, 4)
	for _, name := range usernames {
		p, err := t.users.PlayerByUsername(ctx, name)
		if err != nil {
			return nil, err
		}
		if seen[p.ID] {
			return nil, models.ErrValidation("tournament players must be distinct")
		}
		seen[p.ID] = true
		players = append(players, p)
	}
	if !seen[creatorID] {
		return nil, models.ErrValidation("the creator must be one of the four players")
	}

	// Creator takes slot 1.
	for i, p := range players {
		if p.ID == creatorID && i != 0 {
			players[0], players[i] = players[i], players[0]
			break
		}
	}

	for _, p := range players {
		if !t.bus.IsOnline(p.ID) {
			return nil, models.ErrConflict(models.CodeOpponentOffline, p.Username+" is not online")
		}
		if _, busy := t.byPlayer[p.ID]; busy {
			return nil, models.ErrConflict(models.CodeAlreadyInGame, p.Username+" is already in a tournament")
		}
		active, err := t.store.HasActiveGame(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if active {
			return nil, models.ErrConflict(models.CodeAlreadyInGame, p.Username+" already has a game in progress")
		}
	}

	ids := make([]string, 4)
	names := make(map[string]string, 4)
	for i, p := range players {
		ids[i] = p.ID
		names[p.ID] = p.Username
	}

	tournament, err := t.store.CreateTournament(ctx, creatorID, ids)
	if err != nil {
		return nil, err
	}

	semi1, err := t.store.CreateGame(ctx, ids[0], ids[1], tournament.ID)
	if err != nil {
		return nil, err
	}
	semi2, err := t.store.CreateGame(ctx, ids[2], ids[3], tournament.ID)
	if err != nil {
		return nil, err
	}

	b := &bracket{
		id:      tournament.ID,
		players: [4]string{ids[0], ids[1], ids[2], ids[3]},
		names:   names,
		semi1:   semi1.ID,
		semi2:   semi2.ID,
	}
	t.brackets[tournament.ID] = b
	t.byGame[semi1.ID] = tournament.ID
	t.byGame[semi2.ID] = tournament.ID
	for _, id := range ids {
		t.byPlayer[id] = tournament.ID
	}

	t.registry.CreateForMatch(semi1, t.attachDeadline, t.matchFinalized)
	t.registry.CreateForMatch(semi2, t.attachDeadline, t.matchFinalized)

	creatorName := names[creatorID]
	for _, id := range ids {
		if id == creatorID {
			continue
		}
		t.bus.Send(id, models.ChannelNotification, models.Notification(models.EventTournament, map[string]any{
			"tournament_id": tournament.ID,
			"creator_name":  creatorName,
		}))
	}
	t.announceMatch(semi1.ID, ids[0], ids[1])
	t.announceMatch(semi2.ID, ids[2], ids[3])

	log.Printf("[TOURNAMENT] Tournament %s created by %s (semis %s, %s)", tournament.ID, creatorName, semi1.ID, semi2.ID)
	return tournament, nil
}

// HandleDetach reacts to a participant's tournament socket going away. Any
// of their matches still waiting for players is forfeited so the bracket
// keeps moving; a RUNNING match is governed by its own pong socket.
func (t *Tournaments) HandleDetach(playerID string) {
	t.mu.Lock()
	tid, ok := t.byPlayer[playerID]
	if !ok {
		t.mu.Unlock()
		return
	}
	b := t.brackets[tid]
	gameIDs := make([]string, 0, 3)
	for _, gid := range []string{b.semi1, b.semi2, b.final} {
		if gid != "" {
			gameIDs = append(gameIDs, gid)
		}
	}
	t.mu.Unlock()

	for _, gid := range gameIDs {
		s, live := t.registry.Get(gid)
		if !live {
			continue
		}
		if s.game.Player1ID != playerID && s.game.Player2ID != playerID {
			continue
		}
		if s.ForfeitIfAwaiting(playerID) {
			log.Printf("[TOURNAMENT] Player %s left tournament %s, game %s forfeited", playerID, tid, gid)
		}
	}
}

// matchFinalized advances the bracket after a game's result is persisted.
// Runs on its own goroutine via the session's post-finalize hook.
func (t *Tournaments) matchFinalized(gameID, winnerID string) {
	t.mu.Lock()
	tid, ok := t.byGame[gameID]
	if !ok {
		t.mu.Unlock()
		return
	}
	b := t.brackets[tid]

	if gameID == b.final {
		t.finishLocked(b, winnerID)
		return
	}

	if gameID == b.semi1 {
		b.semi1Winner = winnerID
	} else if gameID == b.semi2 {
		b.semi2Winner = winnerID
	}
	if b.semi1Winner == "" || b.semi2Winner == "" || b.final != "" || b.finalPending {
		t.mu.Unlock()
		return
	}
	b.finalPending = true
	w1, w2 := b.semi1Winner, b.semi2Winner
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()

	final, err := t.store.CreateGame(ctx, w1, w2, tid)
	if err != nil {
		log.Printf("[TOURNAMENT] Failed to create final for tournament %s: %v", tid, err)
		t.mu.Lock()
		b.finalPending = false
		t.mu.Unlock()
		return
	}

	t.mu.Lock()
	b.final = final.ID
	t.byGame[final.ID] = tid
	t.mu.Unlock()

	t.registry.CreateForMatch(final, t.attachDeadline, t.matchFinalized)
	t.announceMatch(final.ID, w1, w2)
	log.Printf("[TOURNAMENT] Final %s created for tournament %s (%s vs %s)", final.ID, tid, w1, w2)
}

// finishLocked records the champion and dissolves the bracket. Caller holds
// t.mu; it is released here.
func (t *Tournaments) finishLocked(b *bracket, winnerID string) {
	delete(t.brackets, b.id)
	for _, gid := range []string{b.semi1, b.semi2, b.final} {
		delete(t.byGame, gid)
	}
	for _, pid := range b.players {
		delete(t.byPlayer, pid)
	}
	players := b.players
	winnerName := b.names[winnerID]
	t.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()

	if err := t.store.FinishTournament(ctx, b.id, winnerID); err != nil {
		log.Printf("[TOURNAMENT] Failed to finish tournament %s: %v", b.id, err)
	}

	over := models.Notification(models.EventTournamentOver, map[string]any{"winner": winnerName})
	for _, pid := range players {
		t.bus.Send(pid, models.ChannelTournament, over)
	}
	log.Printf("[TOURNAMENT] Tournament %s won by %s", b.id, winnerName)
}

func (t *Tournaments) announceMatch(gameID, player1ID, player2ID string) {
	t.bus.Send(player1ID, models.ChannelTournament, models.Notification(models.EventMatchStarted, map[string]any{
		"game_id":     gameID,
		"opponent_id": player2ID,
	}))
	t.bus.Send(player2ID, models.ChannelTournament, models.Notification(models.EventMatchStarted, map[string]any{
		"game_id":     gameID,
		"opponent_id": player1ID,
	}))
}
