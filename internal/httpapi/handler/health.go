package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// healthResponse is the JSON body for GET /healthz and /readyz.
type healthResponse struct {
	Status string `json:"status"`
}

// Healthz handles GET /healthz.
//
// @Summary      Health check
// @Description  Liveness check. No authentication required.
// @Tags         health
// @Produce      json
// @Success      200  {object}  healthResponse
// @Router       /healthz [get]
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, healthResponse{Status: "ok"})
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Readyz returns the GET /readyz handler, which reports 503 until the database answers.
//
// @Summary      Readiness check
// @Description  Reports whether the database is reachable.
// @Tags         health
// @Produce      json
// @Success      200  {object}  healthResponse
// @Failure      503  {object}  healthResponse
// @Router       /readyz [get]
func Readyz(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			writeJSON(w, r, http.StatusServiceUnavailable, healthResponse{Status: "no database"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("readiness ping failed")
			writeJSON(w, r, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
			return
		}
		writeJSON(w, r, http.StatusOK, healthResponse{Status: "ok"})
	}
}
