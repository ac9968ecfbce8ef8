package websocket

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vntrieu/mafia/internal/games"
)

// Metrics receives socket-level measurements. *metrics.Recorder implements it.
type Metrics interface {
	ClientConnected()
	ClientDisconnected()
	SetActiveRooms(n int)
	MessageHandled(msgType string, took time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) ClientConnected()                     {}
func (noopMetrics) ClientDisconnected()                  {}
func (noopMetrics) SetActiveRooms(int)                   {}
func (noopMetrics) MessageHandled(string, time.Duration) {}

// Hub maintains the set of active clients per room and fans events out to them.
type Hub struct {
	// Registered clients by room code
	rooms map[string]map[*Client]bool

	// Outbound deliveries
	broadcast chan *Delivery

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Message handler for client envelopes
	handler *EventHandler

	metrics Metrics

	mu sync.RWMutex
}

// Delivery is one fan-out to a room: direct envelopes, events filtered by recipient,
// then, when Snapshot is set, each client's own projection of it. A non-nil Target limits
// the delivery to that client.
type Delivery struct {
	RoomCode string
	Target   *Client
	Direct   []*ServerEnvelope
	Events   []games.BroadcastEvent
	Snapshot *games.Snapshot
}

// NewHub creates a new Hub. m may be nil.
func NewHub(m Metrics) *Hub {
	if m == nil {
		m = noopMetrics{}
	}
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan *Delivery, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		metrics:    m,
	}
}

// SetEventHandler sets the handler that processes client messages.
func (h *Hub) SetEventHandler(handler *EventHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handler = handler
}

func (h *Hub) eventHandler() *EventHandler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.handler
}

// Run starts the hub's main loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.RoomCode] == nil {
				h.rooms[client.RoomCode] = make(map[*Client]bool)
			}
			h.rooms[client.RoomCode][client] = true
			total, rooms := len(h.rooms[client.RoomCode]), len(h.rooms)
			h.mu.Unlock()
			h.metrics.ClientConnected()
			h.metrics.SetActiveRooms(rooms)
			log.Debug().Str("room", client.RoomCode).Str("player_id", client.PlayerID).Int("total", total).Msg("ws client registered")

		case client := <-h.unregister:
			h.mu.Lock()
			removed := h.remove(client)
			rooms := len(h.rooms)
			h.mu.Unlock()
			if removed {
				h.metrics.SetActiveRooms(rooms)
				log.Debug().Str("room", client.RoomCode).Str("player_id", client.PlayerID).Msg("ws client unregistered")
			}

		case d := <-h.broadcast:
			h.mu.Lock()
			for client := range h.rooms[d.RoomCode] {
				if d.Target != nil && client != d.Target {
					continue
				}
				if !h.deliver(client, d) {
					log.Warn().Str("room", d.RoomCode).Str("player_id", client.PlayerID).Msg("ws client too slow; dropping")
					h.remove(client)
				}
			}
			rooms := len(h.rooms)
			h.mu.Unlock()
			h.metrics.SetActiveRooms(rooms)
		}
	}
}

// deliver queues d's messages meant for client. It reports false if the client's buffer
// is full.
func (h *Hub) deliver(client *Client, d *Delivery) bool {
	for _, env := range d.Direct {
		if !client.enqueue(env) {
			return false
		}
	}
	for _, ev := range d.Events {
		if !addressedTo(ev, client.PlayerID) {
			continue
		}
		if !client.enqueue(eventEnvelope(ev)) {
			return false
		}
	}
	if d.Snapshot != nil {
		return client.enqueue(stateEnvelope(d.Snapshot.ViewFor(client.PlayerID)))
	}
	return true
}

// remove drops client from its room and closes its send channel. Caller holds h.mu.
func (h *Hub) remove(client *Client) bool {
	room, ok := h.rooms[client.RoomCode]
	if !ok {
		return false
	}
	if _, ok := room[client]; !ok {
		return false
	}
	delete(room, client)
	close(client.send)
	if len(room) == 0 {
		delete(h.rooms, client.RoomCode)
	}
	h.metrics.ClientDisconnected()
	return true
}

func addressedTo(ev games.BroadcastEvent, playerID string) bool {
	if len(ev.Recipients) == 0 {
		return true
	}
	for _, id := range ev.Recipients {
		if id == playerID {
			return true
		}
	}
	return false
}

// Publish delivers a command result to the room: its events, then the new state.
func (h *Hub) Publish(roomCode string, res *games.Result) {
	if res == nil {
		return
	}
	h.broadcast <- &Delivery{RoomCode: roomCode, Events: res.Events, Snapshot: res.Snapshot}
}

// PushState sends every client in the room its view of snap.
func (h *Hub) PushState(roomCode string, snap *games.Snapshot) {
	h.broadcast <- &Delivery{RoomCode: roomCode, Snapshot: snap}
}

// SendTo queues envelopes for one client. Replies go through the hub so they never race
// the hub closing the client's channel.
func (h *Hub) SendTo(c *Client, envs ...*ServerEnvelope) {
	h.broadcast <- &Delivery{RoomCode: c.RoomCode, Target: c, Direct: envs}
}

// SendState sends one client its view of snap.
func (h *Hub) SendState(c *Client, snap *games.Snapshot) {
	h.broadcast <- &Delivery{RoomCode: c.RoomCode, Target: c, Snapshot: snap}
}

// GetRoomClientCount returns the number of clients in a room.
func (h *Hub) GetRoomClientCount(roomCode string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomCode])
}

// RoomCount returns the number of rooms with connected clients.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}
