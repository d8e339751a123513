package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playpong/backend/internal/models"
)

// newTestTournaments wires the bracket engine over the fakes. The four
// standard players are online; eve exists but is offline.
func newTestTournaments(t *testing.T) (*Tournaments, *fakeGameStore, *fakeBus, *Registry) {
	t.Helper()
	alice, bob, carol, dave := testPlayers()
	eve := &models.Player{ID: "p5", Username: "eve", Avatar: "e.png"}
	store := newFakeGameStore()
	users := newFakeUserStore(alice, bob, carol, dave, eve)
	bus := newFakeBus("p1", "p2", "p3", "p4")
	reg := NewRegistry(store, users)
	return NewTournaments(store, users, bus, reg), store, bus, reg
}

func tournamentEventsTo(bus *fakeBus, playerID, eventType string) []map[string]any {
	var out []map[string]any
	for _, s := range bus.sendsTo(playerID) {
		if s.channel != models.ChannelTournament {
			continue
		}
		payload, ok := s.message["message"].(map[string]any)
		if !ok || payload["type"] != eventType {
			continue
		}
		out = append(out, payload)
	}
	return out
}

func semisOf(t *testing.T, store *fakeGameStore, tournamentID string) (semi1, semi2 *models.PongGame) {
	t.Helper()
	games := store.gamesForTournament(tournamentID)
	require.Len(t, games, 2)
	semi1, semi2 = games[0], games[1]
	if semi1.ID > semi2.ID {
		semi1, semi2 = semi2, semi1
	}
	return semi1, semi2
}

func TestTournamentCreateBuildsBracket(t *testing.T) {
	tm, store, bus, reg := newTestTournaments(t)
	ctx := context.Background()

	// bob creates, so he takes slot 1 even though he was named second.
	tour, err := tm.Create(ctx, "p2", []string{"alice", "bob", "carol", "dave"})
	require.NoError(t, err)
	assert.Equal(t, "p2", tour.CreatorID)

	semi1, semi2 := semisOf(t, store, tour.ID)
	assert.Equal(t, "p2", semi1.Player1ID)
	assert.Equal(t, "p1", semi1.Player2ID)
	assert.Equal(t, "p3", semi2.Player1ID)
	assert.Equal(t, "p4", semi2.Player2ID)

	_, ok := reg.Get(semi1.ID)
	assert.True(t, ok)
	_, ok = reg.Get(semi2.ID)
	assert.True(t, ok)

	// Everyone but the creator hears about the tournament.
	assert.Empty(t, notificationsTo(bus, "p2", models.EventTournament))
	for _, pid := range []string{"p1", "p3", "p4"} {
		notes := notificationsTo(bus, pid, models.EventTournament)
		require.Len(t, notes, 1, "player %s", pid)
		assert.Equal(t, tour.ID, notes[0]["tournament_id"])
		assert.Equal(t, "bob", notes[0]["creator_name"])
	}

	// Each player is pointed at their semifinal and opponent.
	for pid, want := range map[string]struct{ gameID, opponent string }{
		"p2": {semi1.ID, "p1"},
		"p1": {semi1.ID, "p2"},
		"p3": {semi2.ID, "p4"},
		"p4": {semi2.ID, "p3"},
	} {
		matches := tournamentEventsTo(bus, pid, models.EventMatchStarted)
		require.Len(t, matches, 1, "player %s", pid)
		assert.Equal(t, want.gameID, matches[0]["game_id"])
		assert.Equal(t, want.opponent, matches[0]["opponent_id"])
	}
}

func TestTournamentCreateValidations(t *testing.T) {
	allNames := []string{"alice", "bob", "carol", "dave"}

	cases := []struct {
		name     string
		setup    func(t *testing.T, tm *Tournaments, store *fakeGameStore)
		creator  string
		players  []string
		wantKind string
		wantCode string
	}{
		{
			name:     "too few players",
			creator:  "p1",
			players:  []string{"alice", "bob", "carol"},
			wantKind: models.KindValidation,
		},
		{
			name:     "too many players",
			creator:  "p1",
			players:  []string{"alice", "bob", "carol", "dave", "eve"},
			wantKind: models.KindValidation,
		},
		{
			name:     "duplicate player",
			creator:  "p1",
			players:  []string{"alice", "alice", "carol", "dave"},
			wantKind: models.KindValidation,
		},
		{
			name:     "unknown player",
			creator:  "p1",
			players:  []string{"alice", "bob", "carol", "mallory"},
			wantKind: models.KindNotFound,
		},
		{
			name:     "creator not among players",
			creator:  "p1",
			players:  []string{"bob", "carol", "dave", "eve"},
			wantKind: models.KindValidation,
		},
		{
			name:     "player offline",
			creator:  "p1",
			players:  []string{"alice", "bob", "carol", "eve"},
			wantKind: models.KindConflict,
			wantCode: models.CodeOpponentOffline,
		},
		{
			name: "player already in a tournament",
			setup: func(t *testing.T, tm *Tournaments, store *fakeGameStore) {
				_, err := tm.Create(context.Background(), "p1", allNames)
				require.NoError(t, err)
			},
			creator:  "p1",
			players:  allNames,
			wantKind: models.KindConflict,
			wantCode: models.CodeAlreadyInGame,
		},
		{
			name: "player already in a game",
			setup: func(t *testing.T, tm *Tournaments, store *fakeGameStore) {
				_, err := store.CreateGame(context.Background(), "p3", "p9", "")
				require.NoError(t, err)
			},
			creator:  "p1",
			players:  allNames,
			wantKind: models.KindConflict,
			wantCode: models.CodeAlreadyInGame,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tm, store, _, _ := newTestTournaments(t)
			if tc.setup != nil {
				tc.setup(t, tm, store)
			}

			_, err := tm.Create(context.Background(), tc.creator, tc.players)
			require.Error(t, err)
			assert.Equal(t, tc.wantKind, models.KindOf(err))
			assert.Equal(t, tc.wantCode, models.CodeOf(err))
		})
	}
}

func TestTournamentBracket(t *testing.T) {
	tm, store, bus, reg := newTestTournaments(t)
	ctx := context.Background()

	tour, err := tm.Create(ctx, "p1", []string{"alice", "bob", "carol", "dave"})
	require.NoError(t, err)
	semi1, semi2 := semisOf(t, store, tour.ID)

	// Record results the way a session does: persist, then advance the
	// bracket.
	_, err = store.FinalizeGame(ctx, semi1.ID, "p1", 11, 6)
	require.NoError(t, err)
	tm.matchFinalized(semi1.ID, "p1")

	// One semifinal is not enough for a final.
	assert.Len(t, store.gamesForTournament(tour.ID), 2)

	_, err = store.FinalizeGame(ctx, semi2.ID, "p4", 9, 11)
	require.NoError(t, err)
	tm.matchFinalized(semi2.ID, "p4")

	games := store.gamesForTournament(tour.ID)
	require.Len(t, games, 3)
	var final *models.PongGame
	for _, g := range games {
		if g.ID != semi1.ID && g.ID != semi2.ID {
			final = g
		}
	}
	require.NotNil(t, final)
	assert.Equal(t, "p1", final.Player1ID)
	assert.Equal(t, "p4", final.Player2ID)

	_, ok := reg.Get(final.ID)
	assert.True(t, ok)

	// The finalists are pointed at the final; the eliminated are not.
	require.Len(t, tournamentEventsTo(bus, "p1", models.EventMatchStarted), 2)
	require.Len(t, tournamentEventsTo(bus, "p4", models.EventMatchStarted), 2)
	assert.Len(t, tournamentEventsTo(bus, "p2", models.EventMatchStarted), 1)
	assert.Len(t, tournamentEventsTo(bus, "p3", models.EventMatchStarted), 1)

	_, err = store.FinalizeGame(ctx, final.ID, "p4", 5, 11)
	require.NoError(t, err)
	tm.matchFinalized(final.ID, "p4")

	store.mu.Lock()
	row := store.tournaments[tour.ID]
	status, winner := row.Status, row.WinnerID.String
	store.mu.Unlock()
	assert.Equal(t, models.TournamentStatusFinished, status)
	assert.Equal(t, "p4", winner)

	for _, pid := range []string{"p1", "p2", "p3", "p4"} {
		overs := tournamentEventsTo(bus, pid, models.EventTournamentOver)
		require.Len(t, overs, 1, "player %s", pid)
		assert.Equal(t, "dave", overs[0]["winner"])
	}

	// The bracket is dissolved: the same four can start over.
	_, err = tm.Create(ctx, "p1", []string{"alice", "bob", "carol", "dave"})
	require.NoError(t, err)
}

func TestTournamentHandleDetach(t *testing.T) {
	tm, store, bus, reg := newTestTournaments(t)
	ctx := context.Background()

	// Unknown players are ignored.
	tm.HandleDetach("p9")

	tour, err := tm.Create(ctx, "p1", []string{"alice", "bob", "carol", "dave"})
	require.NoError(t, err)
	semi1, semi2 := semisOf(t, store, tour.ID)

	// bob walks away before his semifinal starts: alice advances.
	tm.HandleDetach("p2")
	require.Equal(t, 1, store.finalizeCount())
	assert.Equal(t, finalizeCall{gameID: semi1.ID, winnerID: "p1"}, store.lastFinalize())
	_, ok := reg.Get(semi1.ID)
	assert.False(t, ok)

	// dave too: carol advances, and once both semifinal results land the
	// final appears.
	tm.HandleDetach("p4")
	require.Eventually(t, func() bool {
		return len(store.gamesForTournament(tour.ID)) == 3
	}, 2*time.Second, time.Millisecond)

	var final *models.PongGame
	for _, g := range store.gamesForTournament(tour.ID) {
		if g.ID != semi1.ID && g.ID != semi2.ID {
			final = g
		}
	}
	require.NotNil(t, final)
	assert.Equal(t, "p1", final.Player1ID)
	assert.Equal(t, "p3", final.Player2ID)

	// carol abandons the final: alice is champion.
	require.Eventually(t, func() bool {
		_, live := reg.Get(final.ID)
		return live
	}, 2*time.Second, time.Millisecond)
	tm.HandleDetach("p3")

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.tournaments[tour.ID].Status == models.TournamentStatusFinished
	}, 2*time.Second, time.Millisecond)

	store.mu.Lock()
	winner := store.tournaments[tour.ID].WinnerID.String
	store.mu.Unlock()
	assert.Equal(t, "p1", winner)

	for _, pid := range []string{"p1", "p2", "p3", "p4"} {
		require.Eventually(t, func() bool {
			return len(tournamentEventsTo(bus, pid, models.EventTournamentOver)) == 1
		}, 2*time.Second, time.Millisecond, "player %s", pid)
		overs := tournamentEventsTo(bus, pid, models.EventTournamentOver)
		assert.Equal(t, "alice", overs[0]["winner"])
	}
}
