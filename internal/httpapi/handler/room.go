package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/vntrieu/mafia/internal/auth"
	"github.com/vntrieu/mafia/internal/store"
)

// Validation limits for room endpoints.
const (
	DisplayNameMinLen = 1
	DisplayNameMaxLen = 64
	PasswordMaxLen    = 128
)

// roomCodePattern accepts any case; codes are normalized before lookup.
var roomCodePattern = regexp.MustCompile(`^[A-Za-z0-9]{6}$`)

// RoomService is the room persistence the handler needs. *store.RoomStore implements it.
type RoomService interface {
	CreateRoom(ctx context.Context, req store.CreateRoomRequest) (*store.CreateRoomResponse, error)
	JoinRoom(ctx context.Context, req store.JoinRoomRequest) (*store.JoinRoomResponse, error)
	GetRoom(ctx context.Context, code string) (*store.GetRoomResponse, error)
}

// RoomHandler serves room creation, joining and the public lobby listing.
type RoomHandler struct {
	rooms     RoomService
	tokens    *auth.Signer
	publisher Publisher
}

// NewRoomHandler creates a new RoomHandler. When tokens is enabled, create/join responses
// include the room token. publisher may be nil.
func NewRoomHandler(rooms RoomService, tokens *auth.Signer, publisher Publisher) *RoomHandler {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	return &RoomHandler{rooms: rooms, tokens: tokens, publisher: publisher}
}

// identity checks the display name and password a player enters with and returns the
// trimmed name. A non-empty problem is the 400 message.
func identity(displayName, password string) (name, problem string) {
	name = strings.TrimSpace(displayName)
	switch {
	case len(name) < DisplayNameMinLen:
		return "", "display_name is required"
	case len(name) > DisplayNameMaxLen:
		return "", fmt.Sprintf("display_name must be at most %d characters", DisplayNameMaxLen)
	case len(password) > PasswordMaxLen:
		return "", fmt.Sprintf("password must be at most %d characters", PasswordMaxLen)
	}
	return name, ""
}

// roomCode reads {code} and reports false (after answering 400) when it is malformed.
func roomCode(w http.ResponseWriter, r *http.Request) (string, bool) {
	code := chi.URLParam(r, "code")
	if !roomCodePattern.MatchString(code) {
		http.Error(w, "invalid room code format", http.StatusBadRequest)
		return "", false
	}
	return store.NormalizeCode(code), true
}

// issueToken signs a room token, or returns empty values when tokens are disabled.
func (h *RoomHandler) issueToken(code, playerID string) (string, *time.Time, error) {
	if !h.tokens.Enabled() {
		return "", nil, nil
	}
	token, exp, err := h.tokens.Issue(code, playerID)
	if err != nil {
		return "", nil, err
	}
	return token, &exp, nil
}

// CreateRoom handles POST /api/rooms
//
// @Summary      Create room
// @Description  Create a new room in the lobby. The requester becomes its creator and first player.
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Param        body  body      store.CreateRoomRequest   true  "Request body"
// @Success      201   {object}  store.CreateRoomResponse
// @Failure      400   {string}  string  "Bad request (invalid display_name, password length, or body)"
// @Failure      500   {string}  string  "Server error"
// @Router       /api/rooms [post]
func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req store.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	var problem string
	if req.DisplayName, problem = identity(req.DisplayName, req.Password); problem != "" {
		http.Error(w, problem, http.StatusBadRequest)
		return
	}

	resp, err := h.rooms.CreateRoom(r.Context(), req)
	if err != nil {
		log.Error().Err(err).Str("request_id", requestID(r)).Msg("create room")
		http.Error(w, "failed to create room", http.StatusInternalServerError)
		return
	}
	if resp.Token, resp.ExpiresAt, err = h.issueToken(resp.Room.Code, resp.RoomPlayer.ID); err != nil {
		log.Error().Err(err).Str("request_id", requestID(r)).Msg("issue token")
		http.Error(w, "failed to create room", http.StatusInternalServerError)
		return
	}
	log.Info().Str("room", resp.Room.Code).Str("player_id", resp.RoomPlayer.ID).Msg("room created")
	writeJSON(w, r, http.StatusCreated, resp)
}

// JoinRoom handles POST /api/rooms/{code}/join
//
// @Summary      Join room
// @Description  Join a room that is still in the lobby. Display names are unique per room.
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Param        code  path      string                    true   "Room code (6 alphanumeric)"
// @Param        body  body      store.JoinRoomRequest     true   "Request body (code in path, not body)"
// @Success      200   {object}  store.JoinRoomResponse
// @Failure      400   {string}  string  "Bad request"
// @Failure      401   {object}  errorResponse  "Password required or invalid"
// @Failure      404   {object}  errorResponse  "Room not found"
// @Failure      409   {object}  errorResponse  "Display name taken or game in progress"
// @Failure      500   {object}  errorResponse  "Server error"
// @Router       /api/rooms/{code}/join [post]
func (h *RoomHandler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	code, ok := roomCode(w, r)
	if !ok {
		return
	}
	var req store.JoinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	var problem string
	if req.DisplayName, problem = identity(req.DisplayName, req.Password); problem != "" {
		http.Error(w, problem, http.StatusBadRequest)
		return
	}
	req.Code = code

	resp, err := h.rooms.JoinRoom(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if resp.Token, resp.ExpiresAt, err = h.issueToken(resp.Room.Code, resp.RoomPlayer.ID); err != nil {
		log.Error().Err(err).Str("request_id", requestID(r)).Msg("issue token")
		http.Error(w, "failed to join room", http.StatusInternalServerError)
		return
	}
	// Lobby clients see the new player.
	h.publisher.Refresh(r.Context(), resp.Room.Code)
	writeJSON(w, r, http.StatusOK, resp)
}

// GetRoom handles GET /api/rooms/{code}
//
// @Summary      Get room
// @Description  Get the room and its players. Roles are never included. No authentication required.
// @Tags         rooms
// @Produce      json
// @Param        code  path      string  true  "Room code (6 alphanumeric)"
// @Success      200   {object}  store.GetRoomResponse
// @Failure      400   {string}  string  "Invalid room code"
// @Failure      404   {object}  errorResponse  "Room not found"
// @Failure      500   {object}  errorResponse  "Server error"
// @Router       /api/rooms/{code} [get]
func (h *RoomHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	code, ok := roomCode(w, r)
	if !ok {
		return
	}
	resp, err := h.rooms.GetRoom(r.Context(), code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}
