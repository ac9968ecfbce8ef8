package websocket

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vntrieu/mafia/internal/games"
	"github.com/vntrieu/mafia/internal/ratelimit"
)

// Commands is the engine surface driven from sockets. *games.Engine implements it.
type Commands interface {
	Reload(ctx context.Context, gameID string) (*games.Snapshot, error)
	Submit(ctx context.Context, gameID, playerID string, req games.ActionRequest) (*games.Result, error)
	Confirm(ctx context.Context, gameID, moderatorID, actionID string) (*games.Result, error)
	AdvancePhase(ctx context.Context, gameID, moderatorID string) (*games.Result, error)
	StartGame(ctx context.Context, gameID, playerID string) (*games.Result, error)
	ResetToLobby(ctx context.Context, gameID, moderatorID string) (*games.Result, error)
	RestartWithSameRoles(ctx context.Context, gameID, moderatorID string) (*games.Result, error)
}

// EventLog persists delivered events. *store.GameEventStore implements it.
type EventLog interface {
	Append(ctx context.Context, roomCode, playerID string, events []games.BroadcastEvent) error
}

// EventHandler runs client messages through the engine and publishes the results.
type EventHandler struct {
	hub         *Hub
	engine      Commands
	events      EventLog
	rateLimiter ratelimit.Limiter
}

// NewEventHandler creates a new EventHandler. events and rateLimiter may be nil.
func NewEventHandler(hub *Hub, engine Commands, events EventLog, rateLimiter ratelimit.Limiter) *EventHandler {
	if rateLimiter == nil {
		rateLimiter = ratelimit.Noop{}
	}
	return &EventHandler{hub: hub, engine: engine, events: events, rateLimiter: rateLimiter}
}

// Publish logs a command's events and delivers them, followed by each client's new view.
// It is shared by the socket and HTTP paths so both reach connected players the same way.
func (h *EventHandler) Publish(ctx context.Context, roomCode, actorID string, res *games.Result) {
	if res == nil {
		return
	}
	if h.events != nil && len(res.Events) > 0 {
		if err := h.events.Append(ctx, roomCode, actorID, res.Events); err != nil {
			log.Error().Err(err).Str("room", roomCode).Msg("append game events")
		}
	}
	h.hub.Publish(roomCode, res)
}

// Refresh reloads the room and pushes every client its view. Used after changes made
// outside the engine, such as a player joining the lobby.
func (h *EventHandler) Refresh(ctx context.Context, roomCode string) {
	snap, err := h.engine.Reload(ctx, roomCode)
	if err != nil {
		log.Warn().Err(err).Str("room", roomCode).Msg("refresh room state")
		return
	}
	h.hub.PushState(roomCode, snap)
}

// HandleMessage processes one client envelope. Unknown or invalid types get an error
// envelope back.
func (h *EventHandler) HandleMessage(ctx context.Context, client *Client, msg *ClientInMessage) {
	if msg == nil {
		h.hub.SendTo(client, errorEnvelope("", "invalid message", ""))
		return
	}
	if len(msg.Type) > MaxClientMessageTypeLength || !ValidClientMessageTypes[msg.Type] {
		h.hub.SendTo(client, errorEnvelope(msg.CorrelationID, "unsupported message type", ""))
		return
	}
	if allowed, _ := h.rateLimiter.Allow(rateLimitKey(client)); !allowed {
		h.hub.SendTo(client, errorEnvelope(msg.CorrelationID, "rate limit exceeded; try again later", ""))
		return
	}

	start := time.Now()
	defer func() { h.hub.metrics.MessageHandled(msg.Type, time.Since(start)) }()

	if msg.Type == ClientMessageTypeSyncState {
		h.handleSyncState(ctx, client, msg)
		return
	}

	res, err := h.dispatch(ctx, client, msg)
	if err != nil {
		h.replyError(client, msg, err)
		return
	}
	h.Publish(ctx, client.RoomCode, client.PlayerID, res)
}

func (h *EventHandler) dispatch(ctx context.Context, client *Client, msg *ClientInMessage) (*games.Result, error) {
	room, player := client.RoomCode, client.PlayerID
	switch msg.Type {
	case ClientMessageTypeAction:
		return h.engine.Submit(ctx, room, player, games.ActionRequest{
			Type:     games.ActionType(stringField(msg.Payload, "action_type")),
			TargetID: stringField(msg.Payload, "target_player_id"),
			Phase:    games.Phase(stringField(msg.Payload, "phase")),
		})
	case ClientMessageTypeVote:
		return h.engine.Submit(ctx, room, player, games.ActionRequest{
			Type:     games.ActionVote,
			TargetID: stringField(msg.Payload, "target_player_id"),
		})
	case ClientMessageTypeConfirm:
		return h.engine.Confirm(ctx, room, player, stringField(msg.Payload, "action_id"))
	case ClientMessageTypeAdvance:
		return h.engine.AdvancePhase(ctx, room, player)
	case ClientMessageTypeStart:
		return h.engine.StartGame(ctx, room, player)
	case ClientMessageTypeReset:
		return h.engine.ResetToLobby(ctx, room, player)
	case ClientMessageTypeRestart:
		return h.engine.RestartWithSameRoles(ctx, room, player)
	}
	return nil, errors.New("unsupported message type")
}

// handleSyncState sends the client its current view, for reconnects.
func (h *EventHandler) handleSyncState(ctx context.Context, client *Client, msg *ClientInMessage) {
	snap, err := h.engine.Reload(ctx, client.RoomCode)
	if err != nil {
		h.replyError(client, msg, err)
		return
	}
	h.hub.SendState(client, snap)
}

// replyError answers the sender. Expected outcomes carry their message and reason;
// anything else is logged and reported generically.
func (h *EventHandler) replyError(client *Client, msg *ClientInMessage, err error) {
	if !games.IsCommandError(err) {
		log.Error().Err(err).Str("room", client.RoomCode).Str("player_id", client.PlayerID).Str("type", msg.Type).Msg("ws command failed")
		h.hub.SendTo(client, errorEnvelope(msg.CorrelationID, "internal error", ""))
		return
	}
	reason, _ := games.ReasonOf(err)
	h.hub.SendTo(client, errorEnvelope(msg.CorrelationID, err.Error(), reason))
}

func rateLimitKey(c *Client) string {
	return "ws:" + c.RoomCode + ":" + c.PlayerID
}

func stringField(payload map[string]interface{}, key string) string {
	if payload == nil {
		return ""
	}
	s, _ := payload[key].(string)
	return s
}
