package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Socket timings. Pings go out often enough that a healthy peer always answers inside
// pongWait.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 16 * 1024 // commands are tiny
	sendBuffer     = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The room token authenticates the socket, so any origin may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one player's socket in a room. Only the hub writes to send and closes it.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan *ServerEnvelope

	RoomCode    string
	PlayerID    string
	DisplayName string

	// Outlives the upgrade request.
	ctx context.Context
}

func newClient(hub *Hub, conn *websocket.Conn, roomCode, playerID, displayName string) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan *ServerEnvelope, sendBuffer),
		RoomCode:    roomCode,
		PlayerID:    playerID,
		DisplayName: displayName,
		ctx:         context.Background(),
	}
}

// enqueue queues an envelope without blocking. It reports false if the buffer is full.
func (c *Client) enqueue(env *ServerEnvelope) bool {
	select {
	case c.send <- env:
		return true
	default:
		return false
	}
}

// readPump decodes client commands until the socket fails, then unregisters.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	extend := func() error { return c.conn.SetReadDeadline(time.Now().Add(pongWait)) }
	c.conn.SetReadLimit(maxMessageSize)
	extend()
	c.conn.SetPongHandler(func(string) error { return extend() })

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("room", c.RoomCode).Str("player_id", c.PlayerID).Msg("websocket read error")
			}
			break
		}

		var msg ClientInMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.hub.SendTo(c, errorEnvelope("", "invalid message", ""))
			continue
		}
		if h := c.hub.eventHandler(); h != nil {
			h.HandleMessage(c.ctx, c, &msg)
		}
	}
}

// writePump writes queued envelopes and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case env, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One JSON document per frame; clients parse frames individually.
			if err := c.conn.WriteJSON(env); err != nil {
				log.Debug().Err(err).Str("player_id", c.PlayerID).Msg("websocket write failed")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
