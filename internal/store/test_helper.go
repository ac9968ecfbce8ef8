package store

import (
	"context"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vntrieu/mafia/internal/database"
)

// SetupTestDB connects to TEST_DATABASE_URL (or DATABASE_URL), migrates it and empties it.
// Tests are skipped when neither is set. Exported for other test packages.
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		dsn = os.Getenv("DATABASE_URL")
	}
	if dsn == "" {
		t.Skip("set TEST_DATABASE_URL or DATABASE_URL to run database tests")
	}

	ctx := context.Background()
	pool, err := database.Connect(ctx, dsn)
	if err != nil {
		t.Fatalf("connect test database: %v", err)
	}
	if err := database.Migrate(ctx, pool, ""); err != nil {
		pool.Close()
		t.Fatalf("migrate test database: %v", err)
	}
	if err := cleanupTestData(ctx, pool); err != nil {
		pool.Close()
		t.Fatalf("clean test database: %v", err)
	}
	return pool
}

// cleanupTestData empties every table; games cascades to its children.
func cleanupTestData(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, `TRUNCATE games, players, actions, game_events CASCADE`); err != nil {
		return fmt.Errorf("truncate: %w", err)
	}
	return nil
}
