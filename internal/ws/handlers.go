package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/playpong/backend/internal/auth"
	"github.com/playpong/backend/internal/game"
	"github.com/playpong/backend/internal/models"
)

// Pong sockets belong to their game session, not to a hub channel; the tag
// only shows up in logs.
const channelPong = "pong"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeNotification parks the authenticated player's socket on the
// notification channel. The first socket flips them online; losing the last
// one flips them offline and drops their pending challenges.
func ServeNotification(hub *Hub, tokens *auth.TokenService) gin.HandlerFunc {
	return serveChannel(hub, tokens, models.ChannelNotification)
}

// ServeTournament parks the socket on the tournament channel, where bracket
// events (match_started, tournament_over) arrive. Disconnecting forfeits the
// player's waiting tournament matches.
func ServeTournament(hub *Hub, tokens *auth.TokenService) gin.HandlerFunc {
	return serveChannel(hub, tokens, models.ChannelTournament)
}

// ServeChat parks the socket on the chat channel for chat_message delivery.
func ServeChat(hub *Hub, tokens *auth.TokenService) gin.HandlerFunc {
	return serveChannel(hub, tokens, models.ChannelChat)
}

func serveChannel(hub *Hub, tokens *auth.TokenService, channel string) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] Upgrade failed: %v", err)
			return
		}
		ident, ok := authenticate(conn, c.Request, tokens)
		if !ok {
			return
		}

		client := newClient(conn, ident.PlayerID, channel)
		hub.Register(client)
		go client.writePump()

		client.readPump(nil)
		hub.Unregister(client)
	}
}

// ServeMatchmaking queues the player on connect and keeps the socket open
// for the matched event. A cancel_matchmaking frame (or disconnecting)
// removes them from the queue.
func ServeMatchmaking(hub *Hub, tokens *auth.TokenService, matchmaker *game.Matchmaker) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] Upgrade failed: %v", err)
			return
		}
		ident, ok := authenticate(conn, c.Request, tokens)
		if !ok {
			return
		}

		client := newClient(conn, ident.PlayerID, models.ChannelMatchmaking)
		hub.Register(client)

		// Register first so the matched event cannot slip past this
		// socket when the pairing happens on our own enqueue.
		if _, err := matchmaker.Enqueue(c.Request.Context(), ident.PlayerID); err != nil {
			if models.CodeOf(err) != models.CodeAlreadyQueued {
				hub.Unregister(client)
				closeWithError(conn, err)
				return
			}
			// Already queued: a fresh socket resumes the same wait.
		}

		go client.writePump()
		client.readPump(func(data []byte) {
			var frame struct {
				Action string `json:"action"`
			}
			if err := json.Unmarshal(data, &frame); err != nil {
				return
			}
			if frame.Action != "cancel_matchmaking" {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
			defer cancel()
			if err := matchmaker.Cancel(ctx, ident.PlayerID); err != nil {
				log.Printf("[WS] Cancel matchmaking for %s: %v", ident.PlayerID, err)
				return
			}
			client.SendJSON(map[string]any{"status": "cancelled", "message": "matchmaking cancelled"})
		})
		hub.Unregister(client)
	}
}

// ServePong attaches the player's socket to its game session: inbound "w"/"s"
// frames feed the paddle, outbound traffic is the session's state broadcast.
// Disconnecting from a running game forfeits it.
func ServePong(registry *game.Registry, tokens *auth.TokenService) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameID := c.Param("game_id")

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("[WS] Upgrade failed: %v", err)
			return
		}
		ident, ok := authenticate(conn, c.Request, tokens)
		if !ok {
			return
		}

		session, err := registry.GetOrCreate(c.Request.Context(), gameID)
		if err != nil {
			closeWithError(conn, err)
			return
		}

		client := newClient(conn, ident.PlayerID, channelPong)
		if err := session.Attach(c.Request.Context(), client); err != nil {
			closeWithError(conn, err)
			return
		}

		go client.writePump()
		client.readPump(func(data []byte) {
			session.HandleInput(ident.PlayerID, string(data))
		})
		session.Detach(client)
	}
}
