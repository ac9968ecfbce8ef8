package store

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/vntrieu/mafia/internal/games"
)

// Room is the public view of a game room. The room code is the game id.
type Room struct {
	Code         string      `json:"code"`
	Phase        games.Phase `json:"phase"`
	CurrentRound int         `json:"current_round"`
	WinnerTeam   games.Team  `json:"winner_team,omitempty"`
	CreatedBy    string      `json:"created_by"`
	HasPassword  bool        `json:"has_password"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	StartedAt    *time.Time  `json:"started_at,omitempty"`
}

// RoomPlayer is a participant as listed in the lobby. Roles are never part of it.
type RoomPlayer struct {
	ID          string    `json:"id"`
	RoomCode    string    `json:"room_code"`
	DisplayName string    `json:"display_name"`
	IsHost      bool      `json:"is_host"`
	IsAlive     bool      `json:"is_alive"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateRoomRequest contains the data needed to create a room.
type CreateRoomRequest struct {
	Password    string `json:"password,omitempty"`
	DisplayName string `json:"display_name"`
}

// CreateRoomResponse contains the response after creating a room.
// Token and ExpiresAt are set by the HTTP handler after calling CreateRoom.
type CreateRoomResponse struct {
	Room       *Room       `json:"room"`
	RoomPlayer *RoomPlayer `json:"room_player"`
	Token      string      `json:"token,omitempty"`
	ExpiresAt  *time.Time  `json:"expires_at,omitempty"`
}

// JoinRoomRequest contains the data needed to join a room.
type JoinRoomRequest struct {
	Code        string `json:"code"`
	Password    string `json:"password,omitempty"`
	DisplayName string `json:"display_name"`
}

// JoinRoomResponse contains the response after joining a room.
// Token and ExpiresAt are set by the HTTP handler after calling JoinRoom.
type JoinRoomResponse struct {
	Room       *Room        `json:"room"`
	RoomPlayer *RoomPlayer  `json:"room_player"`
	Players    []RoomPlayer `json:"players"`
	Token      string       `json:"token,omitempty"`
	ExpiresAt  *time.Time   `json:"expires_at,omitempty"`
}

// GetRoomResponse is returned by GET /api/rooms/{code}.
type GetRoomResponse struct {
	Room    *Room        `json:"room"`
	Players []RoomPlayer `json:"players"`
}

// RoomStore handles rooms and their players.
type RoomStore struct {
	pool *pgxpool.Pool
}

// NewRoomStore creates a new RoomStore.
func NewRoomStore(pool *pgxpool.Pool) *RoomStore {
	return &RoomStore{pool: pool}
}

const roomCodeAttempts = 10

// generateRoomCode generates a human-readable room code.
func generateRoomCode() string {
	const charset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789" // no 0, O, I, 1
	const codeLength = 6
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	code := make([]byte, codeLength)
	for i := range code {
		code[i] = charset[r.Intn(len(charset))]
	}
	return string(code)
}

// NormalizeCode upper-cases and trims a user-typed room code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

const roomColumns = `id, phase, current_round, winner_team, created_by, password_hash IS NOT NULL, created_at, updated_at, started_at`

func scanRoom(row pgx.Row) (*Room, error) {
	var (
		r         Room
		phase     string
		winner    pgtype.Text
		createdBy pgtype.UUID
		created   pgtype.Timestamptz
		updated   pgtype.Timestamptz
		started   pgtype.Timestamptz
	)
	if err := row.Scan(&r.Code, &phase, &r.CurrentRound, &winner, &createdBy, &r.HasPassword, &created, &updated, &started); err != nil {
		return nil, err
	}
	r.Phase = games.Phase(phase)
	r.WinnerTeam = games.Team(winner.String)
	r.CreatedBy = uuidToString(createdBy)
	r.CreatedAt = timestamptzToTime(created)
	r.UpdatedAt = timestamptzToTime(updated)
	r.StartedAt = timestamptzToPtr(started)
	return &r, nil
}

const playerColumns = `p.id, p.room_id, p.display_name, p.id = g.created_by, p.is_alive, p.created_at`

func scanRoomPlayer(row pgx.Row) (*RoomPlayer, error) {
	var (
		p       RoomPlayer
		id      pgtype.UUID
		isHost  pgtype.Bool
		created pgtype.Timestamptz
	)
	if err := row.Scan(&id, &p.RoomCode, &p.DisplayName, &isHost, &p.IsAlive, &created); err != nil {
		return nil, err
	}
	p.ID = uuidToString(id)
	p.IsHost = isHost.Bool
	p.CreatedAt = timestamptzToTime(created)
	return &p, nil
}

// CreateRoom creates a room in the lobby with its creator as the first player.
func (s *RoomStore) CreateRoom(ctx context.Context, req CreateRoomRequest) (*CreateRoomResponse, error) {
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		return nil, ErrDisplayNameRequired
	}

	var passwordHash pgtype.Text
	if req.Password != "" {
		hash, err := hashPassword(req.Password)
		if err != nil {
			return nil, err
		}
		passwordHash = pgtype.Text{String: hash, Valid: true}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// ON CONFLICT makes a code collision a retry rather than an aborted transaction.
	var code string
	for attempt := 0; attempt < roomCodeAttempts && code == ""; attempt++ {
		candidate := generateRoomCode()
		tag, err := tx.Exec(ctx, `
			INSERT INTO games (id, phase, current_round, password_hash)
			VALUES ($1, $2, 1, $3)
			ON CONFLICT (id) DO NOTHING`, candidate, string(games.PhaseLobby), passwordHash)
		if err != nil {
			return nil, fmt.Errorf("insert room: %w", err)
		}
		if tag.RowsAffected() == 1 {
			code = candidate
		}
	}
	if code == "" {
		return nil, ErrRoomCodeExhausted
	}

	var playerID pgtype.UUID
	if err := tx.QueryRow(ctx, `
		INSERT INTO players (room_id, display_name) VALUES ($1, $2) RETURNING id`, code, name).Scan(&playerID); err != nil {
		return nil, fmt.Errorf("insert room player: %w", err)
	}
	if _, err := tx.Exec(ctx, `UPDATE games SET created_by = $2 WHERE id = $1`, code, playerID); err != nil {
		return nil, fmt.Errorf("set room creator: %w", err)
	}

	room, err := scanRoom(tx.QueryRow(ctx, `SELECT `+roomColumns+` FROM games WHERE id = $1`, code))
	if err != nil {
		return nil, fmt.Errorf("read room: %w", err)
	}
	host, err := scanRoomPlayer(tx.QueryRow(ctx, `
		SELECT `+playerColumns+` FROM players p JOIN games g ON g.id = p.room_id WHERE p.id = $1`, playerID))
	if err != nil {
		return nil, fmt.Errorf("read room player: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return &CreateRoomResponse{Room: room, RoomPlayer: host}, nil
}

// JoinRoom adds a player to a room that is still in the lobby.
func (s *RoomStore) JoinRoom(ctx context.Context, req JoinRoomRequest) (*JoinRoomResponse, error) {
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		return nil, ErrDisplayNameRequired
	}
	code := NormalizeCode(req.Code)

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Row lock shared with ApplyWriteSet: a join lands wholly before or after a start, and
	// a start that read the roster before this join fails its roster check.
	var (
		phase        string
		passwordHash pgtype.Text
	)
	err = tx.QueryRow(ctx, `SELECT phase, password_hash FROM games WHERE id = $1 FOR UPDATE`, code).Scan(&phase, &passwordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, games.ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get room by code: %w", err)
	}
	if games.Phase(phase) != games.PhaseLobby {
		return nil, games.ErrGameInProgress
	}
	if passwordHash.Valid {
		if req.Password == "" {
			return nil, ErrPasswordRequired
		}
		if err := bcrypt.CompareHashAndPassword([]byte(passwordHash.String), []byte(req.Password)); err != nil {
			return nil, ErrInvalidPassword
		}
	}

	var playerID pgtype.UUID
	err = tx.QueryRow(ctx, `INSERT INTO players (room_id, display_name) VALUES ($1, $2) RETURNING id`, code, name).Scan(&playerID)
	if isUniqueViolation(err) {
		return nil, ErrDisplayNameTaken
	}
	if err != nil {
		return nil, fmt.Errorf("insert room player: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	resp, err := s.GetRoom(ctx, code)
	if err != nil {
		return nil, err
	}
	out := &JoinRoomResponse{Room: resp.Room, Players: resp.Players}
	joined := uuidToString(playerID)
	for i := range resp.Players {
		if resp.Players[i].ID == joined {
			out.RoomPlayer = &resp.Players[i]
		}
	}
	return out, nil
}

// GetRoomPlayerInRoom returns the player with the given id if they belong to the room.
func (s *RoomStore) GetRoomPlayerInRoom(ctx context.Context, code, playerID string) (*RoomPlayer, error) {
	id, err := stringToUUID(playerID)
	if err != nil {
		return nil, games.ErrPlayerNotFound
	}
	p, err := scanRoomPlayer(s.pool.QueryRow(ctx, `
		SELECT `+playerColumns+` FROM players p JOIN games g ON g.id = p.room_id
		WHERE p.room_id = $1 AND p.id = $2`, NormalizeCode(code), id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, games.ErrPlayerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get room player: %w", err)
	}
	return p, nil
}

// GetRoom returns the room and its players in join order.
func (s *RoomStore) GetRoom(ctx context.Context, code string) (*GetRoomResponse, error) {
	code = NormalizeCode(code)
	room, err := scanRoom(s.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM games WHERE id = $1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, games.ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get room by code: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+playerColumns+` FROM players p JOIN games g ON g.id = p.room_id
		WHERE p.room_id = $1 ORDER BY p.created_at, p.id`, code)
	if err != nil {
		return nil, fmt.Errorf("get room players: %w", err)
	}
	defer rows.Close()

	players := []RoomPlayer{}
	for rows.Next() {
		p, err := scanRoomPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan room player: %w", err)
		}
		players = append(players, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get room players: %w", err)
	}
	return &GetRoomResponse{Room: room, Players: players}, nil
}
