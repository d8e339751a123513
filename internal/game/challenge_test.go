package game

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playpong/backend/internal/models"
)

// newTestChallenges wires challenges over the fakes. Everyone except dave is
// online.
func newTestChallenges(t *testing.T) (*Challenges, *fakeGameStore, *fakeUserStore, *fakeBus) {
	t.Helper()
	alice, bob, carol, dave := testPlayers()
	store := newFakeGameStore()
	users := newFakeUserStore(alice, bob, carol, dave)
	bus := newFakeBus("p1", "p2", "p3")
	return NewChallenges(store, users, bus), store, users, bus
}

func notificationsTo(bus *fakeBus, playerID, eventType string) []map[string]any {
	var out []map[string]any
	for _, s := range bus.sendsTo(playerID) {
		if s.channel != models.ChannelNotification {
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

func TestChallengeSendNotifiesOpponent(t *testing.T) {
	c, store, _, bus := newTestChallenges(t)
	ctx := context.Background()

	req, err := c.Send(ctx, "p1", "bob")
	require.NoError(t, err)
	assert.Equal(t, "p1", req.RequesterID)
	assert.Equal(t, "p2", req.OpponentID)
	assert.Equal(t, models.RequestStatusPending, req.Status)

	notes := notificationsTo(bus, "p2", models.EventGameRequest)
	require.Len(t, notes, 1)
	assert.Equal(t, req.ID, notes[0]["request_id"])
	assert.Equal(t, "alice", notes[0]["requester_name"])
	assert.Equal(t, "a.png", notes[0]["avatar"])
	assert.Empty(t, bus.sendsTo("p1"))

	pending, err := store.HasPendingRequest(ctx, "p1")
	require.NoError(t, err)
	assert.True(t, pending)
}

func TestChallengeSendPreconditions(t *testing.T) {
	cases := []struct {
		name     string
		setup    func(t *testing.T, c *Challenges, store *fakeGameStore, users *fakeUserStore)
		opponent string
		wantKind string
		wantCode string
	}{
		{
			name:     "unknown opponent",
			opponent: "mallory",
			wantKind: models.KindNotFound,
		},
		{
			name:     "self challenge",
			opponent: "alice",
			wantKind: models.KindConflict,
			wantCode: models.CodeSelfAction,
		},
		{
			name:     "opponent offline",
			opponent: "dave",
			wantKind: models.KindConflict,
			wantCode: models.CodeOpponentOffline,
		},
		{
			name: "blocked either way",
			setup: func(t *testing.T, c *Challenges, store *fakeGameStore, users *fakeUserStore) {
				users.block("p2", "p1")
			},
			opponent: "bob",
			wantKind: models.KindConflict,
			wantCode: models.CodeBlocked,
		},
		{
			name: "requester already in a game",
			setup: func(t *testing.T, c *Challenges, store *fakeGameStore, users *fakeUserStore) {
				_, err := store.CreateGame(context.Background(), "p1", "p9", "")
				require.NoError(t, err)
			},
			opponent: "bob",
			wantKind: models.KindConflict,
			wantCode: models.CodeAlreadyInGame,
		},
		{
			name: "opponent already in a game",
			setup: func(t *testing.T, c *Challenges, store *fakeGameStore, users *fakeUserStore) {
				_, err := store.CreateGame(context.Background(), "p2", "p9", "")
				require.NoError(t, err)
			},
			opponent: "bob",
			wantKind: models.KindConflict,
			wantCode: models.CodeAlreadyInGame,
		},
		{
			name: "requester has a pending request elsewhere",
			setup: func(t *testing.T, c *Challenges, store *fakeGameStore, users *fakeUserStore) {
				_, err := c.Send(context.Background(), "p1", "carol")
				require.NoError(t, err)
			},
			opponent: "bob",
			wantKind: models.KindConflict,
			wantCode: models.CodeAlreadyPendingRequest,
		},
		{
			name: "opponent has a pending request elsewhere",
			setup: func(t *testing.T, c *Challenges, store *fakeGameStore, users *fakeUserStore) {
				_, err := c.Send(context.Background(), "p2", "carol")
				require.NoError(t, err)
			},
			opponent: "bob",
			wantKind: models.KindConflict,
			wantCode: models.CodeAlreadyPendingRequest,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, store, users, _ := newTestChallenges(t)
			if tc.setup != nil {
				tc.setup(t, c, store, users)
			}

			_, err := c.Send(context.Background(), "p1", tc.opponent)
			require.Error(t, err)
			assert.Equal(t, tc.wantKind, models.KindOf(err))
			assert.Equal(t, tc.wantCode, models.CodeOf(err))
		})
	}
}

func TestChallengeAccept(t *testing.T) {
	c, store, _, bus := newTestChallenges(t)
	ctx := context.Background()

	req, err := c.Send(ctx, "p1", "bob")
	require.NoError(t, err)

	// The requester cannot accept their own challenge.
	_, err = c.Accept(ctx, req.ID, "p1")
	require.Error(t, err)
	assert.Equal(t, models.KindPermissionDenied, models.KindOf(err))

	game, err := c.Accept(ctx, req.ID, "p2")
	require.NoError(t, err)
	assert.Equal(t, "p1", game.Player1ID)
	assert.Equal(t, "p2", game.Player2ID)
	assert.Equal(t, models.GameStatusPending, game.Status)

	stored, err := store.RequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusAccepted, stored.Status)

	notes := notificationsTo(bus, "p1", models.EventGameRequestResponse)
	require.Len(t, notes, 1)
	assert.Equal(t, game.ID, notes[0]["game_id"])

	// Once settled, the request cannot be accepted again.
	_, err = c.Accept(ctx, req.ID, "p2")
	require.Error(t, err)
	assert.Equal(t, models.KindNotFound, models.KindOf(err))
}

func TestChallengeReject(t *testing.T) {
	c, store, _, bus := newTestChallenges(t)
	ctx := context.Background()

	req, err := c.Send(ctx, "p1", "bob")
	require.NoError(t, err)

	err = c.Reject(ctx, req.ID, "p1")
	require.Error(t, err)
	assert.Equal(t, models.KindPermissionDenied, models.KindOf(err))

	require.NoError(t, c.Reject(ctx, req.ID, "p2"))

	stored, err := store.RequestByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRejected, stored.Status)

	notes := notificationsTo(bus, "p1", models.EventGameRequestResponse)
	require.Len(t, notes, 1)
	assert.Nil(t, notes[0]["game_id"])

	// A settled request is gone for both verbs.
	require.Error(t, c.Reject(ctx, req.ID, "p2"))
	_, err = c.Accept(ctx, req.ID, "p2")
	require.Error(t, err)
	assert.Equal(t, models.KindNotFound, models.KindOf(err))
}

func TestChallengeAcceptUnknownRequest(t *testing.T) {
	c, _, _, _ := newTestChallenges(t)

	_, err := c.Accept(context.Background(), "no-such-request", "p2")
	require.Error(t, err)
	assert.Equal(t, models.KindNotFound, models.KindOf(err))
}

func TestChallengeCancelPendingFor(t *testing.T) {
	c, store, _, bus := newTestChallenges(t)
	ctx := context.Background()

	req, err := c.Send(ctx, "p1", "bob")
	require.NoError(t, err)

	c.CancelPendingFor(ctx, "p1")

	pending, err := store.HasPendingRequest(ctx, "p2")
	require.NoError(t, err)
	assert.False(t, pending)

	// The dropped request is gone entirely, not merely settled.
	_, err = store.RequestByID(ctx, req.ID)
	require.Error(t, err)

	// No notification accompanies the cancel, and both players are free to
	// challenge again.
	assert.Len(t, notificationsTo(bus, "p2", models.EventGameRequest), 1)
	_, err = c.Send(ctx, "p1", "carol")
	require.NoError(t, err)
}
