package ws

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second

	maxMessageSize = 65536
	sendBuffer     = 256

	controlSendWait = 5 * time.Second
)

var errClientGone = errors.New("ws: client is gone")

type outMessage struct {
	msgType int
	data    []byte
}

// Client wraps one websocket with a buffered outbound queue. All writes go
// through writePump so the socket only ever has a single writer. The send
// channel is never closed; done signals teardown instead, so a concurrent
// sender can never hit a closed channel.
type Client struct {
	conn     *websocket.Conn
	playerID string
	channel  string

	send      chan outMessage
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, playerID, channel string) *Client {
	return &Client{
		conn:     conn,
		playerID: playerID,
		channel:  channel,
		send:     make(chan outMessage, sendBuffer),
		done:     make(chan struct{}),
	}
}

func (c *Client) PlayerID() string { return c.playerID }

// Channel returns the hub channel this socket is registered under.
func (c *Client) Channel() string { return c.channel }

// SendBinary queues a binary frame, dropping it when the client cannot keep
// up. State frames are disposable; the next tick replaces them.
func (c *Client) SendBinary(data []byte) bool {
	select {
	case c.send <- outMessage{msgType: websocket.BinaryMessage, data: data}:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// SendJSON queues a control frame. Control frames must not be silently
// dropped, so this blocks until there is room, the client goes away, or the
// wait budget runs out.
func (c *Client) SendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.sendControl(outMessage{msgType: websocket.TextMessage, data: data})
}

// SendRaw queues an already-encoded control frame, with SendJSON's blocking
// semantics.
func (c *Client) SendRaw(data []byte) error {
	return c.sendControl(outMessage{msgType: websocket.TextMessage, data: data})
}

func (c *Client) sendControl(msg outMessage) error {
	timer := time.NewTimer(controlSendWait)
	defer timer.Stop()
	select {
	case c.send <- msg:
		return nil
	case <-c.done:
		return errClientGone
	case <-timer.C:
		return errClientGone
	}
}

// TrySendRaw queues an encoded frame, dropping it when the buffer is full or
// the client is gone. Used by the hub, which must never block on a slow
// consumer.
func (c *Client) TrySendRaw(data []byte) bool {
	select {
	case c.send <- outMessage{msgType: websocket.TextMessage, data: data}:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

// Close signals teardown. Idempotent and safe from any goroutine; writePump
// notices and closes the underlying socket.
func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// writePump drains the send queue onto the socket and keeps the connection
// alive with pings. It owns all writes, including the closing handshake.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(msg.msgType, msg.data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			// Flush frames queued before the close so game_over and
			// error frames are never lost to the handshake.
			for {
				select {
				case msg := <-c.send:
					c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					if err := c.conn.WriteMessage(msg.msgType, msg.data); err != nil {
						return
					}
				default:
					c.conn.SetWriteDeadline(time.Now().Add(writeWait))
					c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
			}
		}
	}
}

// readPump feeds inbound frames to handle until the socket dies, then closes
// the client. handle may be nil for receive-only sockets.
func (c *Client) readPump(handle func(data []byte)) {
	defer c.Close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] Read error for player %s: %v", c.playerID, err)
			}
			return
		}
		if handle != nil {
			handle(data)
		}
	}
}
