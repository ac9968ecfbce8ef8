package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/vntrieu/mafia/internal/auth"
	"github.com/vntrieu/mafia/internal/games"
	"github.com/vntrieu/mafia/internal/store"
)

// contextKey type for request context keys (avoids collisions with other packages).
type contextKey string

// PlayerContextKey is the context key for the verified room token claims (set by RequirePlayer).
const PlayerContextKey contextKey = "player"

// WithPlayer returns ctx carrying claims.
func WithPlayer(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, PlayerContextKey, claims)
}

// PlayerFromRequest returns the claims set by the auth middleware, or nil.
func PlayerFromRequest(r *http.Request) *auth.Claims {
	claims, _ := r.Context().Value(PlayerContextKey).(*auth.Claims)
	return claims
}

// Publisher fans command results out to connected clients. *websocket.EventHandler implements it.
type Publisher interface {
	Publish(ctx context.Context, roomCode, actorID string, res *games.Result)
	Refresh(ctx context.Context, roomCode string)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, string, string, *games.Result) {}
func (noopPublisher) Refresh(context.Context, string)                         {}

// errorResponse is the JSON body for failed game commands.
type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// requestID returns the request ID from chi's context for logging.
func requestID(r *http.Request) string {
	if id, ok := r.Context().Value(middleware.RequestIDKey).(string); ok {
		return id
	}
	return ""
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Str("request_id", requestID(r)).Msg("encode response")
	}
}

// statusFor maps engine and store errors to HTTP statuses. Unknown errors are 500.
func statusFor(err error) int {
	if _, ok := games.ReasonOf(err); ok {
		return http.StatusUnprocessableEntity
	}
	switch {
	case errors.Is(err, games.ErrNotModerator), errors.Is(err, games.ErrNotCreator):
		return http.StatusForbidden
	case errors.Is(err, games.ErrGameNotFound), errors.Is(err, games.ErrPlayerNotFound), errors.Is(err, games.ErrActionNotFound):
		return http.StatusNotFound
	case errors.Is(err, games.ErrPendingConfirmations), errors.Is(err, games.ErrStaleTransition),
		errors.Is(err, games.ErrGameInProgress), errors.Is(err, games.ErrCannotAdvance),
		errors.Is(err, store.ErrDisplayNameTaken):
		return http.StatusConflict
	case errors.Is(err, store.ErrPasswordRequired), errors.Is(err, store.ErrInvalidPassword):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrDisplayNameRequired):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeError writes err as JSON with its mapped status. Internal errors are logged and
// reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("request_id", requestID(r)).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, r, status, errorResponse{Error: "internal error"})
		return
	}
	reason, _ := games.ReasonOf(err)
	writeJSON(w, r, status, errorResponse{Error: err.Error(), Reason: string(reason)})
}
