package websocket

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/vntrieu/mafia/internal/auth"
	"github.com/vntrieu/mafia/internal/store"
)

// PlayerLookup resolves the player a token names. *store.RoomStore implements it.
type PlayerLookup interface {
	GetRoomPlayerInRoom(ctx context.Context, code, playerID string) (*store.RoomPlayer, error)
}

// WSHandler upgrades authenticated room connections.
type WSHandler struct {
	hub     *Hub
	tokens  *auth.Signer
	players PlayerLookup
}

// NewWSHandler creates a new WSHandler. Without a token secret every connection is rejected.
func NewWSHandler(hub *Hub, tokens *auth.Signer, players PlayerLookup) *WSHandler {
	return &WSHandler{hub: hub, tokens: tokens, players: players}
}

// HandleRoomWebSocket handles GET /ws/rooms/{code}. The room token comes from the token
// query param or the Authorization header. Auth is checked before upgrading.
func (h *WSHandler) HandleRoomWebSocket(w http.ResponseWriter, r *http.Request) {
	code := store.NormalizeCode(chi.URLParam(r, "code"))
	if code == "" {
		http.Error(w, "code is required", http.StatusBadRequest)
		return
	}
	token := r.URL.Query().Get("token")
	if token == "" {
		const prefix = "Bearer "
		if v := r.Header.Get("Authorization"); strings.HasPrefix(v, prefix) {
			token = strings.TrimSpace(v[len(prefix):])
		}
	}
	if token == "" || !h.tokens.Enabled() {
		http.Error(w, "missing or invalid token", http.StatusUnauthorized)
		return
	}
	claims, err := h.tokens.VerifyForRoom(token, code)
	if err != nil {
		log.Debug().Err(err).Str("room", code).Msg("websocket token rejected")
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	player, err := h.players.GetRoomPlayerInRoom(r.Context(), code, claims.PlayerID)
	if err != nil {
		log.Debug().Err(err).Str("room", code).Str("player_id", claims.PlayerID).Msg("websocket player not in room")
		http.Error(w, "player not in room", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("room", code).Msg("websocket upgrade failed")
		return
	}
	client := newClient(h.hub, conn, code, player.ID, player.DisplayName)
	h.hub.register <- client
	go client.writePump()
	go client.readPump()

	// Start the client off with its current view.
	if eh := h.hub.eventHandler(); eh != nil {
		eh.handleSyncState(client.ctx, client, &ClientInMessage{Type: ClientMessageTypeSyncState})
	}
}
