package game

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/playpong/backend/internal/models"
)

// Shared in-memory doubles for the session, matchmaker, challenge and
// tournament tests.

type finalizeCall struct {
	gameID   string
	winnerID string
	score1   int
	score2   int
}

type fakeGameStore struct {
	mu          sync.Mutex
	seq         int
	games       map[string]*models.PongGame
	requests    map[string]*models.GameRequest
	tournaments map[string]*models.Tournament
	slots       map[string][]string
	started     map[string]bool
	finalized   []finalizeCall

	failCreates int // fail the next N CreateGame calls
}

func newFakeGameStore() *fakeGameStore {
	return &fakeGameStore{
		games:       make(map[string]*models.PongGame),
		requests:    make(map[string]*models.GameRequest),
		tournaments: make(map[string]*models.Tournament),
		slots:       make(map[string][]string),
		started:     make(map[string]bool),
	}
}

func (f *fakeGameStore) CreateGame(_ context.Context, player1ID, player2ID, tournamentID string) (*models.PongGame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreates > 0 {
		f.failCreates--
		return nil, fmt.Errorf("create game: induced failure")
	}
	f.seq++
	g := &models.PongGame{
		ID:        fmt.Sprintf("game-%d", f.seq),
		Player1ID: player1ID,
		Player2ID: player2ID,
		Status:    models.GameStatusPending,
	}
	if tournamentID != "" {
		g.TournamentID.String = tournamentID
		g.TournamentID.Valid = true
	}
	f.games[g.ID] = g
	copy := *g
	return &copy, nil
}

func (f *fakeGameStore) GameByID(_ context.Context, id string) (*models.PongGame, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.games[id]
	if !ok {
		return nil, models.ErrNotFound("game not found")
	}
	copy := *g
	return &copy, nil
}

func (f *fakeGameStore) MarkGameStarted(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started[id] = true
	if g, ok := f.games[id]; ok && g.Status == models.GameStatusPending {
		g.Status = models.GameStatusStarted
	}
	return nil
}

func (f *fakeGameStore) HasActiveGame(_ context.Context, playerID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.games {
		if g.Status == models.GameStatusFinished {
			continue
		}
		if g.Player1ID == playerID || g.Player2ID == playerID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeGameStore) FinalizeGame(_ context.Context, id, winnerID string, score1, score2 int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalized = append(f.finalized, finalizeCall{gameID: id, winnerID: winnerID, score1: score1, score2: score2})
	g, ok := f.games[id]
	if !ok {
		return false, models.ErrNotFound("game not found")
	}
	if g.Status == models.GameStatusFinished {
		return false, nil
	}
	g.Status = models.GameStatusFinished
	g.WinnerID.String = winnerID
	g.WinnerID.Valid = true
	g.Player1Score = score1
	g.Player2Score = score2
	return true, nil
}

func (f *fakeGameStore) CreateRequest(_ context.Context, requesterID, opponentID string) (*models.GameRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	r := &models.GameRequest{
		ID:          fmt.Sprintf("req-%d", f.seq),
		RequesterID: requesterID,
		OpponentID:  opponentID,
		Status:      models.RequestStatusPending,
	}
	f.requests[r.ID] = r
	copy := *r
	return &copy, nil
}

func (f *fakeGameStore) RequestByID(_ context.Context, id string) (*models.GameRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.requests[id]
	if !ok {
		return nil, models.ErrNotFound("game request not found")
	}
	copy := *r
	return &copy, nil
}

func (f *fakeGameStore) SetRequestStatus(_ context.Context, id, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := f.requests[id]; ok {
		r.Status = status
	}
	return nil
}

func (f *fakeGameStore) HasPendingRequest(_ context.Context, playerID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.requests {
		if r.Status != models.RequestStatusPending {
			continue
		}
		if r.RequesterID == playerID || r.OpponentID == playerID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeGameStore) DeletePendingRequests(_ context.Context, playerID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id, r := range f.requests {
		if r.Status != models.RequestStatusPending {
			continue
		}
		if r.RequesterID == playerID || r.OpponentID == playerID {
			delete(f.requests, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeGameStore) CreateTournament(_ context.Context, creatorID string, slots []string) (*models.Tournament, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	t := &models.Tournament{
		ID:        fmt.Sprintf("tournament-%d", f.seq),
		CreatorID: creatorID,
		Status:    models.TournamentStatusInProgress,
	}
	f.tournaments[t.ID] = t
	f.slots[t.ID] = append([]string(nil), slots...)
	copy := *t
	return &copy, nil
}

func (f *fakeGameStore) FinishTournament(_ context.Context, id, winnerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tournaments[id]; ok {
		t.Status = models.TournamentStatusFinished
		t.WinnerID.String = winnerID
		t.WinnerID.Valid = true
	}
	return nil
}

func (f *fakeGameStore) finalizeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.finalized)
}

func (f *fakeGameStore) lastFinalize() finalizeCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finalized[len(f.finalized)-1]
}

func (f *fakeGameStore) gamesForTournament(id string) []*models.PongGame {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.PongGame
	for _, g := range f.games {
		if g.TournamentID.Valid && g.TournamentID.String == id {
			copy := *g
			out = append(out, &copy)
		}
	}
	return out
}

type fakeUserStore struct {
	mu      sync.Mutex
	byID    map[string]*models.Player
	byName  map[string]*models.Player
	blocked map[string]bool
	friends map[string][]string
}

func newFakeUserStore(players ...*models.Player) *fakeUserStore {
	f := &fakeUserStore{
		byID:    make(map[string]*models.Player),
		byName:  make(map[string]*models.Player),
		blocked: make(map[string]bool),
		friends: make(map[string][]string),
	}
	for _, p := range players {
		f.byID[p.ID] = p
		f.byName[p.Username] = p
	}
	return f
}

func (f *fakeUserStore) PlayerByID(_ context.Context, id string) (*models.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return nil, models.ErrNotFound("player not found")
	}
	copy := *p
	return &copy, nil
}

func (f *fakeUserStore) PlayerByUsername(_ context.Context, username string) (*models.Player, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byName[username]
	if !ok {
		return nil, models.ErrNotFound("player not found")
	}
	copy := *p
	return &copy, nil
}

func (f *fakeUserStore) SetOnline(_ context.Context, playerID string, online bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.byID[playerID]; ok {
		p.Online = online
	}
	return nil
}

func (f *fakeUserStore) FriendIDs(_ context.Context, playerID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.friends[playerID]...), nil
}

func (f *fakeUserStore) Blocked(_ context.Context, playerID, otherID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.blocked[playerID+"|"+otherID] || f.blocked[otherID+"|"+playerID], nil
}

func (f *fakeUserStore) block(a, b string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blocked[a+"|"+b] = true
}

type busSend struct {
	playerID string
	channel  string
	message  map[string]any
}

type fakeBus struct {
	mu     sync.Mutex
	online map[string]bool
	sends  []busSend
}

func newFakeBus(onlineIDs ...string) *fakeBus {
	b := &fakeBus{online: make(map[string]bool)}
	for _, id := range onlineIDs {
		b.online[id] = true
	}
	return b
}

func (b *fakeBus) Send(playerID, channel string, message []byte) {
	var decoded map[string]any
	if err := json.Unmarshal(message, &decoded); err != nil {
		decoded = map[string]any{"raw": string(message)}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sends = append(b.sends, busSend{playerID: playerID, channel: channel, message: decoded})
}

func (b *fakeBus) IsOnline(playerID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.online[playerID]
}

func (b *fakeBus) sendsTo(playerID string) []busSend {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []busSend
	for _, s := range b.sends {
		if s.playerID == playerID {
			out = append(out, s)
		}
	}
	return out
}

// fakeConn records everything a session pushes at a player socket.
type fakeConn struct {
	mu     sync.Mutex
	id     string
	events []string // "binary" or the status/type of a JSON frame
	json   []map[string]any
	closed bool
}

func newFakeConn(playerID string) *fakeConn {
	return &fakeConn{id: playerID}
}

func (c *fakeConn) PlayerID() string { return c.id }

func (c *fakeConn) SendBinary(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, "binary")
	return true
}

func (c *fakeConn) SendJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	frame, _ := v.(map[string]any)
	label := "json"
	if status, ok := frame["status"].(string); ok {
		label = status
	}
	c.events = append(c.events, label)
	c.json = append(c.json, frame)
	return nil
}

func (c *fakeConn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeConn) eventLog() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.events...)
}

func (c *fakeConn) frames(status string) []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []map[string]any
	for _, f := range c.json {
		if f["status"] == status {
			out = append(out, f)
		}
	}
	return out
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func testPlayers() (*models.Player, *models.Player, *models.Player, *models.Player) {
	return &models.Player{ID: "p1", Username: "alice", Avatar: "a.png"},
		&models.Player{ID: "p2", Username: "bob", Avatar: "b.png"},
		&models.Player{ID: "p3", Username: "carol", Avatar: "c.png"},
		&models.Player{ID: "p4", Username: "dave", Avatar: "d.png"}
}
