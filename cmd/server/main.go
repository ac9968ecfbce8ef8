package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/vntrieu/mafia/internal/auth"
	"github.com/vntrieu/mafia/internal/database"
	"github.com/vntrieu/mafia/internal/httpapi"
	"github.com/vntrieu/mafia/internal/metrics"
	"github.com/vntrieu/mafia/internal/ratelimit"
)

var rootCmd = &cobra.Command{
	Use:   "mafia",
	Short: "Moderated Mafia game server",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return setupLogging(flagLogLevel, flagLogJSON)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run migrations and serve the HTTP and WebSocket API",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations and exit",
	RunE:  runMigrate,
}

var (
	flagAddr          string
	flagDatabaseURL   string
	flagMigrationsDir string
	flagTokenSecret   string
	flagTokenTTL      time.Duration
	flagRateLimit     bool
	flagCORSOrigins   []string
	flagLogLevel      string
	flagLogJSON       bool
	flagDBMaxConns    int32
)

func init() {
	// .env is optional; real environment variables win.
	_ = godotenv.Load()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagDatabaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string (env DATABASE_URL)")
	flags.StringVar(&flagMigrationsDir, "migrations-dir", os.Getenv("MIGRATIONS_DIR"), "goose migrations directory; empty uses the embedded migrations (env MIGRATIONS_DIR)")
	flags.StringVar(&flagLogLevel, "log-level", getenv("MAFIA_LOG_LEVEL", "info"), "debug, info, warn or error (env MAFIA_LOG_LEVEL)")
	flags.BoolVar(&flagLogJSON, "log-json", os.Getenv("MAFIA_LOG_JSON") == "true", "log JSON instead of console output (env MAFIA_LOG_JSON)")

	sf := serveCmd.Flags()
	sf.StringVar(&flagAddr, "addr", getenv("MAFIA_HTTP_ADDR", ":8080"), "HTTP listen address (env MAFIA_HTTP_ADDR)")
	sf.StringVar(&flagTokenSecret, "token-secret", os.Getenv("MAFIA_TOKEN_SECRET"), "HMAC secret for room tokens (env MAFIA_TOKEN_SECRET)")
	sf.DurationVar(&flagTokenTTL, "token-ttl", 24*time.Hour, "room token lifetime")
	sf.BoolVar(&flagRateLimit, "rate-limit", os.Getenv("MAFIA_RATE_LIMIT") != "off", "limit joins per IP and commands per player (env MAFIA_RATE_LIMIT=off disables)")
	sf.Int32Var(&flagDBMaxConns, "db-max-conns", 0, "connection pool size; 0 keeps the default")
	sf.StringSliceVar(&flagCORSOrigins, "cors-origin", splitList(os.Getenv("MAFIA_CORS_ORIGINS")), "allowed browser origins; repeat or comma-separated (env MAFIA_CORS_ORIGINS)")

	rootCmd.AddCommand(serveCmd, migrateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("mafia")
	}
}

func setupLogging(level string, asJSON bool) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	zerolog.SetGlobalLevel(lvl)
	if !asJSON {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if flagDatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	pool, err := database.Connect(ctx, flagDatabaseURL)
	if err != nil {
		return fmt.Errorf("database connect: %w", err)
	}
	defer pool.Close()
	return database.Migrate(ctx, pool, flagMigrationsDir)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flagDatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	pool, err := database.Connect(ctx, flagDatabaseURL, database.PoolOptions{MaxConns: flagDBMaxConns})
	if err != nil {
		return fmt.Errorf("database connect: %w", err)
	}
	defer pool.Close()
	log.Info().Int32("max_conns", pool.Config().MaxConns).Msg("connected to database")

	if err := database.Migrate(ctx, pool, flagMigrationsDir); err != nil {
		return fmt.Errorf("database migrate: %w", err)
	}

	secret := []byte(flagTokenSecret)
	if len(secret) == 0 {
		log.Warn().Msg("MAFIA_TOKEN_SECRET not set; using a development secret")
		secret = []byte("dev-secret-change-in-production")
	}

	cfg := httpapi.Config{
		Pool:        pool,
		Tokens:      auth.NewSigner(secret, flagTokenTTL),
		Metrics:     metrics.New("mafia"),
		CORSOrigins: flagCORSOrigins,
	}
	if flagRateLimit {
		rooms, actions := httpapi.DefaultRoomLimiter(), httpapi.DefaultActionLimiter()
		cfg.RoomLimiter, cfg.ActionLimiter = rooms, actions
		go pruneLimiters(ctx, time.Minute, rooms, actions)
	}

	srv := &http.Server{
		Addr:              flagAddr,
		Handler:           httpapi.NewRouter(cfg),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", flagAddr).Msg("mafia server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// pruneLimiters drops idle rate limit keys until ctx ends.
func pruneLimiters(ctx context.Context, every time.Duration, limiters ...*ratelimit.InMemory) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			for _, l := range limiters {
				log.Debug().Int("keys", l.Prune()).Msg("rate limit keys tracked")
			}
		}
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
