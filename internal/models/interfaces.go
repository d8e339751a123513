package models

import (
	"context"
	"encoding/json"
	"log"
)

// Hub channels. Every live socket is registered under exactly one channel;
// events are routed to the sockets of a single channel.
const (
	ChannelNotification = "notification"
	ChannelMatchmaking  = "matchmaking"
	ChannelTournament   = "tournament"
	ChannelChat         = "chat"
)

// Notification event types
const (
	EventFriendRequest       = "friend_request"
	EventGameRequest         = "game_request"
	EventGameRequestResponse = "game_request_response"
	EventTournament          = "tournament"
	EventMatchStarted        = "match_started"
	EventTournamentOver      = "tournament_over"
	EventOnlineStatus        = "online_status"
	EventChatMessage         = "chat_message"
)

// UserStore is the slice of player persistence the realtime core touches.
type UserStore interface {
	PlayerByID(ctx context.Context, id string) (*Player, error)
	PlayerByUsername(ctx context.Context, username string) (*Player, error)
	SetOnline(ctx context.Context, playerID string, online bool) error
	FriendIDs(ctx context.Context, playerID string) ([]string, error)
	Blocked(ctx context.Context, playerID, otherID string) (bool, error)
}

// GameStore persists games, challenge requests and tournaments.
type GameStore interface {
	CreateGame(ctx context.Context, player1ID, player2ID, tournamentID string) (*PongGame, error)
	GameByID(ctx context.Context, id string) (*PongGame, error)
	MarkGameStarted(ctx context.Context, id string) error
	HasActiveGame(ctx context.Context, playerID string) (bool, error)
	FinalizeGame(ctx context.Context, id, winnerID string, player1Score, player2Score int) (bool, error)

	CreateRequest(ctx context.Context, requesterID, opponentID string) (*GameRequest, error)
	RequestByID(ctx context.Context, id string) (*GameRequest, error)
	SetRequestStatus(ctx context.Context, id, status string) error
	HasPendingRequest(ctx context.Context, playerID string) (bool, error)
	DeletePendingRequests(ctx context.Context, playerID string) (int64, error)

	CreateTournament(ctx context.Context, creatorID string, slots []string) (*Tournament, error)
	FinishTournament(ctx context.Context, id, winnerID string) error
}

// NotifyBus fans events out to a player's live sockets on one channel.
// A missing player or channel is a no-op.
type NotifyBus interface {
	Send(playerID, channel string, message []byte)
	IsOnline(playerID string) bool
}

// GameConn is a live socket as seen by a game session. SendBinary is
// best-effort and reports whether the frame was queued; SendJSON queues a
// control frame that may not be dropped.
type GameConn interface {
	PlayerID() string
	SendBinary(data []byte) bool
	SendJSON(v any) error
	Close()
}

// Notification builds the {"message": {"type": ..., ...}} envelope that
// notification, tournament and chat sockets expect.
func Notification(eventType string, fields map[string]any) []byte {
	payload := map[string]any{"type": eventType}
	for k, v := range fields {
		payload[k] = v
	}
	b, err := json.Marshal(map[string]any{"message": payload})
	if err != nil {
		log.Printf("[HUB] Failed to encode %s event: %v", eventType, err)
		return nil
	}
	return b
}

// StatusFrame builds a {"status": ..., ...} control frame for sockets that
// speak the game protocol (matchmaking, pong).
func StatusFrame(status string, fields map[string]any) []byte {
	payload := map[string]any{"status": status}
	for k, v := range fields {
		payload[k] = v
	}
	b, err := json.Marshal(payload)
	if err != nil {
		log.Printf("[HUB] Failed to encode %s frame: %v", status, err)
		return nil
	}
	return b
}
