package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vntrieu/mafia/internal/games"
	"github.com/vntrieu/mafia/internal/store"
)

// Commands is the engine surface the game routes drive. *games.Engine implements it.
type Commands interface {
	Reload(ctx context.Context, gameID string) (*games.Snapshot, error)
	Submit(ctx context.Context, gameID, playerID string, req games.ActionRequest) (*games.Result, error)
	Confirm(ctx context.Context, gameID, moderatorID, actionID string) (*games.Result, error)
	AdvancePhase(ctx context.Context, gameID, moderatorID string) (*games.Result, error)
	StartGame(ctx context.Context, gameID, playerID string) (*games.Result, error)
	ResetToLobby(ctx context.Context, gameID, moderatorID string) (*games.Result, error)
	RestartWithSameRoles(ctx context.Context, gameID, moderatorID string) (*games.Result, error)
}

// EventLister reads the room's event log. *store.GameEventStore implements it.
type EventLister interface {
	List(ctx context.Context, roomCode string, limit int) ([]store.GameEvent, error)
}

// DefaultEventLimit caps GET /events when no limit is given.
const DefaultEventLimit = 200

// GameHandler handles game commands for a room. Every route runs behind RequirePlayer.
type GameHandler struct {
	engine    Commands
	events    EventLister
	publisher Publisher
}

// NewGameHandler creates a new GameHandler. events and publisher may be nil.
func NewGameHandler(engine Commands, events EventLister, publisher Publisher) *GameHandler {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &GameHandler{engine: engine, events: events, publisher: publisher}
}

// identify returns the room code and the calling player's id.
func identify(r *http.Request) (code, playerID string) {
	code = store.NormalizeCode(chi.URLParam(r, "code"))
	if claims := PlayerFromRequest(r); claims != nil {
		playerID = claims.PlayerID
	}
	return code, playerID
}

// run executes a command, publishes its result and answers with the caller's view.
func (h *GameHandler) run(w http.ResponseWriter, r *http.Request, status int, cmd func(ctx context.Context, code, playerID string) (*games.Result, error)) {
	code, playerID := identify(r)
	res, err := cmd(r.Context(), code, playerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.publisher.Publish(r.Context(), code, playerID, res)
	writeJSON(w, r, status, res.Snapshot.ViewFor(playerID))
}

// StartGame handles POST /api/rooms/{code}/start
//
// @Summary      Start game
// @Description  Deal roles and enter the first night. Only the room creator may start, from the lobby.
// @Tags         games
// @Produce      json
// @Param        code  path      string  true  "Room code"
// @Success      200   {object}  games.View
// @Failure      403   {object}  errorResponse  "Not the room creator"
// @Failure      409   {object}  errorResponse  "Game already in progress"
// @Failure      422   {object}  errorResponse  "Not enough players"
// @Security     BearerAuth
// @Router       /api/rooms/{code}/start [post]
func (h *GameHandler) StartGame(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, http.StatusOK, h.engine.StartGame)
}

// SubmitAction handles POST /api/rooms/{code}/actions
//
// @Summary      Submit action or vote
// @Description  Submit the caller's night action, or a vote during voting. A new vote replaces the previous one.
// @Tags         games
// @Accept       json
// @Produce      json
// @Param        code  path      string               true  "Room code"
// @Param        body  body      games.ActionRequest  true  "Action"
// @Success      201   {object}  games.View
// @Failure      400   {string}  string  "Invalid request body"
// @Failure      422   {object}  errorResponse  "Rejected (reason says why)"
// @Security     BearerAuth
// @Router       /api/rooms/{code}/actions [post]
func (h *GameHandler) SubmitAction(w http.ResponseWriter, r *http.Request) {
	var req games.ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	h.run(w, r, http.StatusCreated, func(ctx context.Context, code, playerID string) (*games.Result, error) {
		return h.engine.Submit(ctx, code, playerID, req)
	})
}

// ConfirmAction handles POST /api/rooms/{code}/actions/{actionID}/confirm
//
// @Summary      Confirm action
// @Description  Moderator acknowledges a night action. Confirming twice is a no-op.
// @Tags         games
// @Produce      json
// @Param        code      path  string  true  "Room code"
// @Param        actionID  path  string  true  "Action id"
// @Success      200   {object}  games.View
// @Failure      403   {object}  errorResponse  "Not the moderator"
// @Failure      404   {object}  errorResponse  "Action not found"
// @Security     BearerAuth
// @Router       /api/rooms/{code}/actions/{actionID}/confirm [post]
func (h *GameHandler) ConfirmAction(w http.ResponseWriter, r *http.Request) {
	actionID := chi.URLParam(r, "actionID")
	h.run(w, r, http.StatusOK, func(ctx context.Context, code, playerID string) (*games.Result, error) {
		return h.engine.Confirm(ctx, code, playerID, actionID)
	})
}

// AdvancePhase handles POST /api/rooms/{code}/advance
//
// @Summary      Advance phase
// @Description  Moderator moves the game on. Leaving night resolves it, leaving voting resolves the votes; either may end the game.
// @Tags         games
// @Produce      json
// @Param        code  path      string  true  "Room code"
// @Success      200   {object}  games.View
// @Failure      403   {object}  errorResponse  "Not the moderator"
// @Failure      409   {object}  errorResponse  "Pending confirmations, stale state, or nothing to advance"
// @Security     BearerAuth
// @Router       /api/rooms/{code}/advance [post]
func (h *GameHandler) AdvancePhase(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, http.StatusOK, h.engine.AdvancePhase)
}

// ResetToLobby handles POST /api/rooms/{code}/reset
//
// @Summary      Reset to lobby
// @Description  Moderator returns the room to the lobby, reviving everyone and clearing roles.
// @Tags         games
// @Produce      json
// @Param        code  path      string  true  "Room code"
// @Success      200   {object}  games.View
// @Failure      403   {object}  errorResponse  "Not the moderator"
// @Security     BearerAuth
// @Router       /api/rooms/{code}/reset [post]
func (h *GameHandler) ResetToLobby(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, http.StatusOK, h.engine.ResetToLobby)
}

// RestartGame handles POST /api/rooms/{code}/restart
//
// @Summary      Restart with same roles
// @Description  Moderator starts a new game at night of round 1, keeping every role.
// @Tags         games
// @Produce      json
// @Param        code  path      string  true  "Room code"
// @Success      200   {object}  games.View
// @Failure      403   {object}  errorResponse  "Not the moderator"
// @Security     BearerAuth
// @Router       /api/rooms/{code}/restart [post]
func (h *GameHandler) RestartGame(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, http.StatusOK, h.engine.RestartWithSameRoles)
}

// GetState handles GET /api/rooms/{code}/state
//
// @Summary      Get state
// @Description  The caller's view of the game. The moderator also gets the confirmation gate and who has not acted.
// @Tags         games
// @Produce      json
// @Param        code  path      string  true  "Room code"
// @Success      200   {object}  games.View
// @Failure      404   {object}  errorResponse  "Room not found"
// @Security     BearerAuth
// @Router       /api/rooms/{code}/state [get]
func (h *GameHandler) GetState(w http.ResponseWriter, r *http.Request) {
	code, playerID := identify(r)
	snap, err := h.engine.Reload(r.Context(), code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, snap.ViewFor(playerID))
}

// ListEvents handles GET /api/rooms/{code}/events
//
// @Summary      List events
// @Description  The room's event log, oldest first. Moderator only, since it includes private events.
// @Tags         games
// @Produce      json
// @Param        code   path   string  true   "Room code"
// @Param        limit  query  int     false  "Most recent N events (default 200)"
// @Success      200   {array}   store.GameEvent
// @Failure      403   {object}  errorResponse  "Not the moderator"
// @Security     BearerAuth
// @Router       /api/rooms/{code}/events [get]
func (h *GameHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		http.Error(w, "event log not available", http.StatusNotFound)
		return
	}
	limit := DefaultEventLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	code, playerID := identify(r)
	snap, err := h.engine.Reload(r.Context(), code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if p, ok := snap.Participant(playerID); !ok || !p.Role.IsModerator() {
		writeError(w, r, games.ErrNotModerator)
		return
	}
	events, err := h.events.List(r.Context(), code, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, events)
}
