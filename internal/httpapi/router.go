package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/vntrieu/mafia/docs" // swag docs
	"github.com/vntrieu/mafia/internal/auth"
	"github.com/vntrieu/mafia/internal/games"
	"github.com/vntrieu/mafia/internal/httpapi/handler"
	"github.com/vntrieu/mafia/internal/metrics"
	"github.com/vntrieu/mafia/internal/ratelimit"
	"github.com/vntrieu/mafia/internal/store"
	"github.com/vntrieu/mafia/internal/websocket"
)

// Config carries the router's dependencies.
type Config struct {
	Pool *pgxpool.Pool

	// Tokens signs room tokens. Without a secret, create/join omit the token and every
	// authenticated route answers 401.
	Tokens *auth.Signer

	// RoomLimiter limits create/join by IP; ActionLimiter limits game commands and socket
	// messages by player. Nil means unlimited.
	RoomLimiter   ratelimit.Limiter
	ActionLimiter ratelimit.Limiter

	// Metrics may be nil.
	Metrics *metrics.Recorder

	// CORSOrigins lists allowed browser origins. Empty disables CORS headers.
	CORSOrigins []string
}

// NewRouter builds the root HTTP router and starts the WebSocket hub.
//
// @title            Mafia API
// @version          1.0
// @description      Rooms, moderated Mafia games and their live event stream.
// @BasePath         /
// @SecurityDefinitions.apikey  BearerAuth
// @in               header
// @name             Authorization
func NewRouter(cfg Config) http.Handler {
	if cfg.RoomLimiter == nil {
		cfg.RoomLimiter = ratelimit.Noop{}
	}
	if cfg.ActionLimiter == nil {
		cfg.ActionLimiter = ratelimit.Noop{}
	}
	if cfg.Tokens == nil {
		cfg.Tokens = auth.NewSigner(nil, 0)
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", handler.Healthz)
	if cfg.Pool != nil {
		r.Get("/readyz", handler.Readyz(cfg.Pool))
	} else {
		r.Get("/readyz", handler.Readyz(nil))
	}
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	// Swagger UI and doc.json
	r.Get("/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/", http.StatusMovedPermanently)
	})
	r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL("/docs/doc.json")))

	roomStore := store.NewRoomStore(cfg.Pool)
	gameStore := store.NewGameStore(cfg.Pool)
	eventStore := store.NewGameEventStore(cfg.Pool)

	var (
		engineOpts []games.Option
		hubMetrics websocket.Metrics
	)
	if cfg.Metrics != nil {
		engineOpts = append(engineOpts, games.WithObserver(cfg.Metrics))
		hubMetrics = cfg.Metrics
	}
	engine := games.NewEngine(gameStore, engineOpts...)

	hub := websocket.NewHub(hubMetrics)
	events := websocket.NewEventHandler(hub, engine, eventStore, cfg.ActionLimiter)
	hub.SetEventHandler(events)
	go hub.Run()

	// Per-room WebSocket (token auth; actions, votes, moderator commands, sync_state)
	r.Get("/ws/rooms/{code}", websocket.NewWSHandler(hub, cfg.Tokens, roomStore).HandleRoomWebSocket)

	rateLimitByIP := RateLimitMiddleware(cfg.RoomLimiter, RateLimitKeyByIP)
	rateLimitByPlayer := RateLimitMiddleware(cfg.ActionLimiter, RateLimitKeyByPlayer)

	roomHandler := handler.NewRoomHandler(roomStore, cfg.Tokens, events)
	gameHandler := handler.NewGameHandler(engine, eventStore, events)
	r.Route("/api/rooms", func(r chi.Router) {
		r.Use(LimitRequestBody(DefaultMaxBodyBytes))
		r.With(rateLimitByIP).Post("/", roomHandler.CreateRoom)
		r.Route("/{code}", func(r chi.Router) {
			r.Get("/", roomHandler.GetRoom)
			r.With(rateLimitByIP).Post("/join", roomHandler.JoinRoom)

			r.Group(func(r chi.Router) {
				r.Use(RequirePlayer(cfg.Tokens))
				r.Get("/state", gameHandler.GetState)
				r.Get("/events", gameHandler.ListEvents)

				r.Group(func(r chi.Router) {
					r.Use(rateLimitByPlayer)
					r.Post("/start", gameHandler.StartGame)
					r.Post("/actions", gameHandler.SubmitAction)
					r.Post("/actions/{actionID}/confirm", gameHandler.ConfirmAction)
					r.Post("/advance", gameHandler.AdvancePhase)
					r.Post("/reset", gameHandler.ResetToLobby)
					r.Post("/restart", gameHandler.RestartGame)
				})
			})
		})
	})

	return r
}

// DefaultRoomLimiter allows 20 create/join requests per minute per IP.
func DefaultRoomLimiter() *ratelimit.InMemory {
	return ratelimit.NewInMemory(20, time.Minute)
}

// DefaultActionLimiter allows 60 game commands per minute per player.
func DefaultActionLimiter() *ratelimit.InMemory {
	return ratelimit.NewInMemory(60, time.Minute)
}
