package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vntrieu/mafia/internal/games"
)

// GameEvent is one logged engine event.
type GameEvent struct {
	ID         string                 `json:"id"`
	RoomCode   string                 `json:"room_code"`
	PlayerID   *string                `json:"player_id,omitempty"`
	Type       string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload"`
	Recipients []string               `json:"recipients,omitempty"`
	CreatedAt  time.Time              `json:"created_at"`
}

// GameEventStore is the append-only event log of a room. It is the moderator's history
// and is cleared with the room.
type GameEventStore struct {
	pool *pgxpool.Pool
}

// NewGameEventStore creates a new GameEventStore.
func NewGameEventStore(pool *pgxpool.Pool) *GameEventStore {
	return &GameEventStore{pool: pool}
}

// Append logs events emitted by one command issued by playerID (may be empty).
func (s *GameEventStore) Append(ctx context.Context, roomCode, playerID string, events []games.BroadcastEvent) error {
	if len(events) == 0 {
		return nil
	}
	actor, err := optionalUUID(playerID)
	if err != nil {
		return fmt.Errorf("invalid player_id: %w", err)
	}

	batch := &pgx.Batch{}
	for _, e := range events {
		payloadJSON := []byte("{}")
		if len(e.Payload) > 0 {
			payloadJSON, err = json.Marshal(e.Payload)
			if err != nil {
				return fmt.Errorf("marshal payload: %w", err)
			}
		}
		recipients := e.Recipients
		if recipients == nil {
			recipients = []string{}
		}
		batch.Queue(`
			INSERT INTO game_events (room_id, player_id, type, payload, recipients)
			VALUES ($1, $2, $3, $4, $5)`, roomCode, actor, e.Event, payloadJSON, recipients)
	}
	if err := s.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("create game events: %w", err)
	}
	return nil
}

// List returns the room's events oldest first, at most limit of the most recent ones
// (limit <= 0 means all).
func (s *GameEventStore) List(ctx context.Context, roomCode string, limit int) ([]GameEvent, error) {
	query := `
		SELECT id, room_id, player_id, type, payload, recipients, created_at FROM (
			SELECT * FROM game_events WHERE room_id = $1 ORDER BY seq DESC LIMIT $2
		) recent ORDER BY seq`
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := s.pool.Query(ctx, query, NormalizeCode(roomCode), lim)
	if err != nil {
		return nil, fmt.Errorf("get game events: %w", err)
	}
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (GameEvent, error) {
		var (
			e        GameEvent
			id       pgtype.UUID
			playerID pgtype.UUID
			payload  []byte
			created  pgtype.Timestamptz
		)
		if err := row.Scan(&id, &e.RoomCode, &playerID, &e.Type, &payload, &e.Recipients, &created); err != nil {
			return e, err
		}
		e.ID = uuidToString(id)
		if playerID.Valid {
			pid := uuidToString(playerID)
			e.PlayerID = &pid
		}
		if err := json.Unmarshal(payload, &e.Payload); err != nil || e.Payload == nil {
			e.Payload = make(map[string]interface{})
		}
		e.CreatedAt = timestamptzToTime(created)
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("get game events: %w", err)
	}
	return events, nil
}
