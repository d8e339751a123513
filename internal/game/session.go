package game

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/playpong/backend/internal/models"
)

// Session lifecycle states.
const (
	StateAwaitingBoth = "AWAITING_BOTH"
	StateRunning      = "RUNNING"
	StateTerminated   = "TERMINATED"
)

const (
	defaultTickInterval = time.Second / 60
	inputBuffer         = 64
	finalizeTimeout     = 5 * time.Second
)

type paddleInput struct {
	playerID string
	dir      string
}

// Session drives one game. It owns the engine, the tick loop and up to two
// player sockets. The engine is only ever touched from the tick goroutine;
// paddle inputs and forfeits arrive over channels and are applied there.
type Session struct {
	gameID string
	game   *models.PongGame

	store models.GameStore
	users models.UserStore

	engine    *Engine
	tick      time.Duration
	createdAt time.Time

	mu       sync.Mutex
	state    string
	conns    map[string]models.GameConn
	lastSnap Snapshot

	inputs   chan paddleInput
	forfeits chan string
	stop     chan struct{}
	stopOnce sync.Once

	finalizeOnce  sync.Once
	afterFinalize func(gameID, winnerID string)
	onTerminated  func(gameID string)
	attachTimer   *time.Timer
	deadlined     bool // set before publication, read without the lock
}

// NewSession builds a session around a persisted PENDING game. Wiring fields
// (afterFinalize, onTerminated, attach deadline) must be set before the
// session is handed to any player.
func NewSession(game *models.PongGame, engine *Engine, store models.GameStore, users models.UserStore) *Session {
	return &Session{
		gameID:    game.ID,
		game:      game,
		store:     store,
		users:     users,
		engine:    engine,
		tick:      defaultTickInterval,
		createdAt: time.Now(),
		state:     StateAwaitingBoth,
		conns:     make(map[string]models.GameConn, 2),
		inputs:    make(chan paddleInput, inputBuffer),
		forfeits:  make(chan string, 2),
		stop:      make(chan struct{}),
	}
}

// GameID returns the persisted game id this session drives.
func (s *Session) GameID() string {
	return s.gameID
}

// State returns the current lifecycle state.
func (s *Session) State() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// setAttachDeadline forfeits the game in favor of whoever showed up if both
// players are not attached within d. Used for tournament matches, which must
// not stall the bracket.
func (s *Session) setAttachDeadline(d time.Duration) {
	s.deadlined = true
	s.attachTimer = time.AfterFunc(d, s.attachExpired)
}

// Attach binds a player socket to its slot. When the second slot fills, the
// game transitions to RUNNING and the tick loop starts.
func (s *Session) Attach(ctx context.Context, conn models.GameConn) error {
	pid := conn.PlayerID()
	if pid != s.game.Player1ID && pid != s.game.Player2ID {
		return models.ErrPermissionDenied("player is not part of this game")
	}

	s.mu.Lock()
	switch s.state {
	case StateTerminated:
		s.mu.Unlock()
		return models.ErrValidation("game is already over")
	case StateRunning:
		s.mu.Unlock()
		return models.ErrValidation("game is already running")
	}
	if old, ok := s.conns[pid]; ok {
		// Replaced by a newer socket. Close the old one; its detach becomes
		// a no-op because the map now points elsewhere.
		old.Close()
	}
	s.conns[pid] = conn
	bothAttached := len(s.conns) == 2
	if bothAttached {
		s.state = StateRunning
		if s.attachTimer != nil {
			s.attachTimer.Stop()
			s.attachTimer = nil
		}
	}
	s.mu.Unlock()

	s.sendPlayerInfo(ctx, conn)
	log.Printf("[SESSION] Player %s attached to game %s", pid, s.gameID)

	if bothAttached {
		if err := s.store.MarkGameStarted(ctx, s.gameID); err != nil {
			log.Printf("[SESSION] Failed to mark game %s started: %v", s.gameID, err)
		}
		start := map[string]any{"status": "game_start", "game_id": s.gameID}
		s.mu.Lock()
		conns := s.connsLocked()
		s.mu.Unlock()
		for _, c := range conns {
			if err := c.SendJSON(start); err != nil {
				log.Printf("[SESSION] Failed to send game_start for game %s: %v", s.gameID, err)
			}
		}
		go s.run()
	}
	return nil
}

// Detach removes a socket. While RUNNING this forfeits the game to the other
// player; while AWAITING_BOTH it simply frees the slot.
func (s *Session) Detach(conn models.GameConn) {
	pid := conn.PlayerID()

	s.mu.Lock()
	cur, ok := s.conns[pid]
	if !ok || cur != conn {
		s.mu.Unlock()
		return
	}
	delete(s.conns, pid)
	state := s.state
	s.mu.Unlock()

	log.Printf("[SESSION] Player %s detached from game %s", pid, s.gameID)

	if state == StateRunning {
		select {
		case s.forfeits <- pid:
		case <-s.stop:
			// Already terminating; nothing left to forfeit.
		}
	}
}

// HandleInput maps a raw client frame onto a paddle move. Anything other
// than "w" or "s" is ignored; if the buffer is full the input is dropped and
// the client's next frame supersedes it.
func (s *Session) HandleInput(playerID, payload string) {
	var dir string
	switch payload {
	case "w":
		dir = MoveUp
	case "s":
		dir = MoveDown
	default:
		return
	}
	select {
	case s.inputs <- paddleInput{playerID: playerID, dir: dir}:
	default:
	}
}

// ForfeitIfAwaiting ends a not-yet-started game against the given player and
// reports whether it did. Used when a tournament participant drops out
// before their match begins.
func (s *Session) ForfeitIfAwaiting(playerID string) bool {
	s.mu.Lock()
	if s.state != StateAwaitingBoth {
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()

	s.finalize(s.otherPlayer(playerID), models.EndReasonForfeit)
	return true
}

// run is the 60 Hz tick loop. It exits on forfeit, natural end, or stop.
func (s *Session) run() {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.engine.StartBall()
	log.Printf("[SESSION] Game %s running", s.gameID)

	for {
		select {
		case <-s.stop:
			return

		case pid := <-s.forfeits:
			log.Printf("[SESSION] Game %s forfeited by %s", s.gameID, pid)
			s.finalize(s.engine.Winner(pid), models.EndReasonForfeit)
			return

		case <-ticker.C:
			s.drainInputs()
			done := s.engine.Update(nowSeconds())
			snap := s.engine.Snapshot()

			s.mu.Lock()
			s.lastSnap = snap
			conns := s.connsLocked()
			s.mu.Unlock()

			frame := EncodeState(snap)
			for _, c := range conns {
				c.SendBinary(frame)
			}

			if done {
				s.finalize(s.engine.Winner(""), models.EndReasonNatural)
				return
			}
		}
	}
}

func (s *Session) drainInputs() {
	for {
		select {
		case in := <-s.inputs:
			s.engine.MovePaddle(in.playerID, in.dir)
		default:
			return
		}
	}
}

// finalize persists the result exactly once, emits game_over to whoever is
// still attached and tears the session down. Safe to call from any
// goroutine; only the first call has any effect.
func (s *Session) finalize(winnerID, reason string) {
	s.finalizeOnce.Do(func() {
		s.mu.Lock()
		s.state = StateTerminated
		snap := s.lastSnap
		conns := s.connsLocked()
		if s.attachTimer != nil {
			s.attachTimer.Stop()
			s.attachTimer = nil
		}
		s.mu.Unlock()

		s.stopOnce.Do(func() { close(s.stop) })

		ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
		defer cancel()

		updated, err := s.store.FinalizeGame(ctx, s.gameID, winnerID, int(snap.Score1), int(snap.Score2))
		if err != nil {
			log.Printf("[SESSION] Failed to finalize game %s: %v", s.gameID, err)
		}

		winnerName := winnerID
		if w, uerr := s.users.PlayerByID(ctx, winnerID); uerr == nil {
			winnerName = w.Username
		}

		over := map[string]any{"status": "game_over", "winner": winnerName, "reason": reason}
		for _, c := range conns {
			if serr := c.SendJSON(over); serr != nil {
				log.Printf("[SESSION] Failed to send game_over for game %s: %v", s.gameID, serr)
			}
		}

		log.Printf("[SESSION] Game %s finished (winner=%s, reason=%s)", s.gameID, winnerID, reason)

		if s.onTerminated != nil {
			s.onTerminated(s.gameID)
		}
		if updated && err == nil && s.afterFinalize != nil {
			go s.afterFinalize(s.gameID, winnerID)
		}
	})
}

// terminateQuietly tears down a session whose game never started, without
// recording a result. The PENDING row is left for the stale game sweeper.
func (s *Session) terminateQuietly() bool {
	s.mu.Lock()
	if s.state != StateAwaitingBoth {
		s.mu.Unlock()
		return false
	}
	s.state = StateTerminated
	conns := s.connsLocked()
	s.conns = make(map[string]models.GameConn)
	if s.attachTimer != nil {
		s.attachTimer.Stop()
		s.attachTimer = nil
	}
	s.mu.Unlock()

	s.stopOnce.Do(func() { close(s.stop) })
	for _, c := range conns {
		c.Close()
	}
	return true
}

// attachExpired fires when the attach deadline lapses with the game still
// waiting. Whoever showed up advances; if nobody did, player 1 does.
func (s *Session) attachExpired() {
	s.mu.Lock()
	if s.state != StateAwaitingBoth {
		s.mu.Unlock()
		return
	}
	_, p2Here := s.conns[s.game.Player2ID]
	s.mu.Unlock()

	winner := s.game.Player1ID
	if p2Here {
		winner = s.game.Player2ID
	}
	log.Printf("[SESSION] Game %s attach deadline expired, %s advances", s.gameID, winner)
	s.finalize(winner, models.EndReasonForfeit)
}

func (s *Session) sendPlayerInfo(ctx context.Context, conn models.GameConn) {
	p1, err := s.users.PlayerByID(ctx, s.game.Player1ID)
	if err != nil {
		log.Printf("[SESSION] Failed to load player %s: %v", s.game.Player1ID, err)
		return
	}
	p2, err := s.users.PlayerByID(ctx, s.game.Player2ID)
	if err != nil {
		log.Printf("[SESSION] Failed to load player %s: %v", s.game.Player2ID, err)
		return
	}

	display := func(p *models.Player, role string) map[string]any {
		return map[string]any{"username": p.Username, "avatar": p.Avatar, "role": role}
	}
	left := display(p1, "player1")
	right := display(p2, "player2")

	data := map[string]any{"currentPlayer": left, "opponent": right}
	if conn.PlayerID() == s.game.Player2ID {
		data = map[string]any{"currentPlayer": right, "opponent": left}
	}
	if err := conn.SendJSON(map[string]any{"status": "player_info", "data": data}); err != nil {
		log.Printf("[SESSION] Failed to send player_info for game %s: %v", s.gameID, err)
	}
}

// connsLocked snapshots the attached sockets. Caller must hold s.mu.
func (s *Session) connsLocked() []models.GameConn {
	conns := make([]models.GameConn, 0, len(s.conns))
	for _, c := range s.conns {
		conns = append(conns, c)
	}
	return conns
}

func (s *Session) otherPlayer(playerID string) string {
	if playerID == s.game.Player1ID {
		return s.game.Player2ID
	}
	return s.game.Player1ID
}

func nowSeconds() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
