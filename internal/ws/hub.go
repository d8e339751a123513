package ws

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/playpong/backend/internal/models"
)

const presenceTimeout = 5 * time.Second

// DisconnectHooks are called after a socket is removed from the hub, outside
// any hub lock. Notification fires only when the player's last notification
// socket is gone.
type DisconnectHooks struct {
	Notification func(playerID string)
	Matchmaking  func(playerID string)
	Tournament   func(playerID string)
}

// Hub is the process-wide registry of live sockets, keyed by player and
// tagged with a channel. Registration and removal mutate the map under the
// lock; presence writes, friend fan-out and disconnect hooks all run after it
// is released, so a hook may re-enter the hub (or take domain locks of its
// own) without deadlocking.
type Hub struct {
	users models.UserStore
	hooks DisconnectHooks

	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
}

func NewHub(users models.UserStore) *Hub {
	return &Hub{
		users:   users,
		clients: make(map[string]map[*Client]struct{}),
	}
}

// SetDisconnectHooks wires the domain reactions to socket loss. Must be
// called before the first socket registers.
func (h *Hub) SetDisconnectHooks(hooks DisconnectHooks) {
	h.hooks = hooks
}

// Register adds a live socket. The player's first notification socket flips
// them online and tells their friends.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.playerID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[c.playerID] = set
	}
	first := c.channel == models.ChannelNotification && h.countChannelLocked(c.playerID, models.ChannelNotification) == 0
	set[c] = struct{}{}
	h.mu.Unlock()

	log.Printf("[HUB] Player %s connected (%s)", c.playerID, c.channel)
	if first {
		h.announcePresence(c.playerID, true)
	}
}

// Unregister removes a socket and runs the channel's disconnect reaction.
// Safe to call for sockets that were never registered or are already gone.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	set, ok := h.clients[c.playerID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, member := set[c]; !member {
		h.mu.Unlock()
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.playerID)
	}
	last := c.channel == models.ChannelNotification && h.countChannelLocked(c.playerID, models.ChannelNotification) == 0
	h.mu.Unlock()

	c.Close()
	log.Printf("[HUB] Player %s disconnected (%s)", c.playerID, c.channel)

	switch c.channel {
	case models.ChannelNotification:
		if last {
			h.announcePresence(c.playerID, false)
			if h.hooks.Notification != nil {
				h.hooks.Notification(c.playerID)
			}
		}
	case models.ChannelMatchmaking:
		if h.hooks.Matchmaking != nil {
			h.hooks.Matchmaking(c.playerID)
		}
	case models.ChannelTournament:
		if h.hooks.Tournament != nil {
			h.hooks.Tournament(c.playerID)
		}
	}
}

// Send delivers a message to all of the player's sockets on one channel.
// Unknown players and full buffers are dropped silently; a socket that
// disconnects mid-send simply misses the message.
func (h *Hub) Send(playerID, channel string, message []byte) {
	if message == nil {
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, 2)
	for c := range h.clients[playerID] {
		if c.channel == channel {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.TrySendRaw(message) {
			log.Printf("[HUB] Dropped %s message for player %s", channel, playerID)
		}
	}
}

// IsOnline reports whether the player has a live notification socket.
func (h *Hub) IsOnline(playerID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.countChannelLocked(playerID, models.ChannelNotification) > 0
}

// countChannelLocked counts the player's sockets on a channel. Caller holds
// h.mu.
func (h *Hub) countChannelLocked(playerID, channel string) int {
	n := 0
	for c := range h.clients[playerID] {
		if c.channel == channel {
			n++
		}
	}
	return n
}

// announcePresence persists the online flag and pushes online_status to every
// friend's notification sockets.
func (h *Hub) announcePresence(playerID string, online bool) {
	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()

	if err := h.users.SetOnline(ctx, playerID, online); err != nil {
		log.Printf("[HUB] Failed to persist presence for %s: %v", playerID, err)
	}

	player, err := h.users.PlayerByID(ctx, playerID)
	if err != nil {
		log.Printf("[HUB] Failed to load player %s for presence fan-out: %v", playerID, err)
		return
	}
	friends, err := h.users.FriendIDs(ctx, playerID)
	if err != nil {
		log.Printf("[HUB] Failed to load friends of %s: %v", playerID, err)
		return
	}

	status := models.Notification(models.EventOnlineStatus, map[string]any{
		"username": player.Username,
		"online":   online,
	})
	for _, fid := range friends {
		h.Send(fid, models.ChannelNotification, status)
	}
}
