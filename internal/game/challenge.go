package game

import (
	"context"
	"log"

	"github.com/playpong/backend/internal/models"
)

// Challenges implements direct game requests between two players: send,
// accept, reject, and the implicit cancel when a party disconnects from the
// notification hub.
type Challenges struct {
	store models.GameStore
	users models.UserStore
	bus   models.NotifyBus
}

func NewChallenges(store models.GameStore, users models.UserStore, bus models.NotifyBus) *Challenges {
	return &Challenges{store: store, users: users, bus: bus}
}

// Send creates a PENDING request against the named opponent and pushes a
// game_request notification to them. Preconditions, in order: the opponent
// exists, is not the requester, is online, no block either way, neither side
// has a live game, neither side has a pending request.
func (c *Challenges) Send(ctx context.Context, requesterID, opponentUsername string) (*models.GameRequest, error) {
	opponent, err := c.users.PlayerByUsername(ctx, opponentUsername)
	if err != nil {
		return nil, err
	}
	if opponent.ID == requesterID {
		return nil, models.ErrConflict(models.CodeSelfAction, "you cannot challenge yourself")
	}
	if !c.bus.IsOnline(opponent.ID) {
		return nil, models.ErrConflict(models.CodeOpponentOffline, "opponent is not online")
	}

	blocked, err := c.users.Blocked(ctx, requesterID, opponent.ID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, models.ErrConflict(models.CodeBlocked, "challenge not possible between these players")
	}

	for _, pid := range []string{requesterID, opponent.ID} {
		active, err := c.store.HasActiveGame(ctx, pid)
		if err != nil {
			return nil, err
		}
		if active {
			return nil, models.ErrConflict(models.CodeAlreadyInGame, "a player already has a game in progress")
		}
	}
	for _, pid := range []string{requesterID, opponent.ID} {
		pending, err := c.store.HasPendingRequest(ctx, pid)
		if err != nil {
			return nil, err
		}
		if pending {
			return nil, models.ErrConflict(models.CodeAlreadyPendingRequest, "a player already has a pending game request")
		}
	}

	req, err := c.store.CreateRequest(ctx, requesterID, opponent.ID)
	if err != nil {
		return nil, err
	}

	requester, err := c.users.PlayerByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	c.bus.Send(opponent.ID, models.ChannelNotification, models.Notification(models.EventGameRequest, map[string]any{
		"request_id":     req.ID,
		"requester_name": requester.Username,
		"avatar":         requester.Avatar,
	}))

	log.Printf("[CHALLENGE] %s challenged %s (request %s)", requester.Username, opponent.Username, req.ID)
	return req, nil
}

// Accept turns a pending request into a PENDING game. Only the challenged
// player may accept; the requester learns the game id via a
// game_request_response notification.
func (c *Challenges) Accept(ctx context.Context, requestID, callerID string) (*models.PongGame, error) {
	req, err := c.store.RequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.OpponentID != callerID {
		return nil, models.ErrPermissionDenied("only the challenged player can accept")
	}
	if req.Status != models.RequestStatusPending {
		return nil, models.ErrNotFound("game request is no longer pending")
	}

	game, err := c.store.CreateGame(ctx, req.RequesterID, req.OpponentID, "")
	if err != nil {
		return nil, err
	}
	if err := c.store.SetRequestStatus(ctx, req.ID, models.RequestStatusAccepted); err != nil {
		return nil, err
	}

	c.bus.Send(req.RequesterID, models.ChannelNotification, models.Notification(models.EventGameRequestResponse, map[string]any{
		"game_id": game.ID,
	}))

	log.Printf("[CHALLENGE] Request %s accepted, game %s created", req.ID, game.ID)
	return game, nil
}

// Reject declines a pending request. Only the challenged player may reject;
// the requester is notified with a null game id.
func (c *Challenges) Reject(ctx context.Context, requestID, callerID string) error {
	req, err := c.store.RequestByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req.OpponentID != callerID {
		return models.ErrPermissionDenied("only the challenged player can reject")
	}
	if req.Status != models.RequestStatusPending {
		return models.ErrNotFound("game request is no longer pending")
	}

	if err := c.store.SetRequestStatus(ctx, req.ID, models.RequestStatusRejected); err != nil {
		return err
	}

	c.bus.Send(req.RequesterID, models.ChannelNotification, models.Notification(models.EventGameRequestResponse, map[string]any{
		"game_id": nil,
	}))

	log.Printf("[CHALLENGE] Request %s rejected", req.ID)
	return nil
}

// CancelPendingFor deletes every PENDING request the player is part of.
// Fired when their notification socket goes away; no counterpart
// notification is sent.
func (c *Challenges) CancelPendingFor(ctx context.Context, playerID string) {
	deleted, err := c.store.DeletePendingRequests(ctx, playerID)
	if err != nil {
		log.Printf("[CHALLENGE] Failed to drop pending requests for %s: %v", playerID, err)
		return
	}
	if deleted > 0 {
		log.Printf("[CHALLENGE] Dropped %d pending request(s) for %s", deleted, playerID)
	}
}
