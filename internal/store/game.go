package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vntrieu/mafia/internal/games"
)

// GameStore is the engine's persistence: snapshots in, actions and write sets out.
type GameStore struct {
	pool *pgxpool.Pool
}

var _ games.Store = (*GameStore)(nil)

// NewGameStore creates a new GameStore.
func NewGameStore(pool *pgxpool.Pool) *GameStore {
	return &GameStore{pool: pool}
}

const actionColumns = `id, player_id, action_type, target_player_id, phase, round_number, confirmed, created_at`

func scanAction(row pgx.Row) (games.Action, error) {
	var (
		a        games.Action
		id       pgtype.UUID
		playerID pgtype.UUID
		target   pgtype.UUID
		typ      string
		phase    string
		created  pgtype.Timestamptz
	)
	if err := row.Scan(&id, &playerID, &typ, &target, &phase, &a.RoundNumber, &a.Confirmed, &created); err != nil {
		return games.Action{}, err
	}
	a.ID = uuidToString(id)
	a.PlayerID = uuidToString(playerID)
	a.Type = games.ActionType(typ)
	a.TargetID = uuidToString(target)
	a.Phase = games.Phase(phase)
	a.CreatedAt = timestamptzToTime(created)
	return a, nil
}

// LoadSnapshot reads the game, its participants and its actions in one repeatable-read
// transaction. It returns (nil, nil) when the game does not exist.
func (s *GameStore) LoadSnapshot(ctx context.Context, gameID string) (*games.Snapshot, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	snap, err := loadSnapshot(ctx, tx, gameID)
	if err != nil || snap == nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return snap, nil
}

func loadSnapshot(ctx context.Context, q querier, gameID string) (*games.Snapshot, error) {
	var (
		snap      games.Snapshot
		phase     string
		winner    pgtype.Text
		createdBy pgtype.UUID
		started   pgtype.Timestamptz
	)
	err := q.QueryRow(ctx, `
		SELECT id, phase, current_round, winner_team, created_by, started_at
		FROM games WHERE id = $1`, gameID).
		Scan(&snap.Game.ID, &phase, &snap.Game.CurrentRound, &winner, &createdBy, &started)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get game: %w", err)
	}
	snap.Game.Phase = games.Phase(phase)
	snap.Game.WinnerTeam = games.Team(winner.String)
	snap.Game.CreatedBy = uuidToString(createdBy)
	snap.Game.StartedAt = timestamptzToPtr(started)

	rows, err := q.Query(ctx, `
		SELECT id, display_name, role, is_alive, self_protected, terrorist_used
		FROM players WHERE room_id = $1 ORDER BY created_at, id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("get players: %w", err)
	}
	participants, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (games.Participant, error) {
		var (
			p    games.Participant
			id   pgtype.UUID
			role pgtype.Text
		)
		if err := row.Scan(&id, &p.Name, &role, &p.IsAlive, &p.SelfProtected, &p.TerroristUsed); err != nil {
			return p, err
		}
		p.ID = uuidToString(id)
		p.Role = games.Role(role.String)
		return p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("get players: %w", err)
	}
	snap.Participants = participants

	rows, err = q.Query(ctx, `SELECT `+actionColumns+` FROM actions WHERE room_id = $1 ORDER BY created_at, id`, gameID)
	if err != nil {
		return nil, fmt.Errorf("get actions: %w", err)
	}
	actions, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (games.Action, error) {
		return scanAction(row)
	})
	if err != nil {
		return nil, fmt.Errorf("get actions: %w", err)
	}
	snap.Actions = actions
	return &snap, nil
}

func actionArgs(gameID string, a games.Action) ([]any, error) {
	playerID, err := stringToUUID(a.PlayerID)
	if err != nil {
		return nil, games.ErrPlayerNotFound
	}
	target, err := optionalUUID(a.TargetID)
	if err != nil {
		return nil, games.Rejection(games.ReasonInvalidTarget)
	}
	created := a.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	return []any{gameID, playerID, string(a.Type), target, string(a.Phase), a.RoundNumber, a.Confirmed, created}, nil
}

const insertAction = `
	INSERT INTO actions (room_id, player_id, action_type, target_player_id, phase, round_number, confirmed, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// lockPhase holds a share lock on the game row for the rest of tx, provided the game is
// still at phase and round. A transition commits either entirely before or after tx.
func lockPhase(ctx context.Context, tx pgx.Tx, gameID string, phase games.Phase, round int) error {
	var current string
	var currentRound int
	err := tx.QueryRow(ctx, `SELECT phase, current_round FROM games WHERE id = $1 FOR SHARE`, gameID).
		Scan(&current, &currentRound)
	if errors.Is(err, pgx.ErrNoRows) {
		return games.ErrGameNotFound
	}
	if err != nil {
		return fmt.Errorf("lock game: %w", err)
	}
	if games.Phase(current) != phase || currentRound != round {
		return &games.RejectionError{
			Reason:  games.ReasonPhaseMismatch,
			Message: fmt.Sprintf("game moved on to %s round %d", current, currentRound),
		}
	}
	return nil
}

// InsertAction inserts a if the game is still at a's phase and round and the player has
// no action of the same type there yet. A duplicate is reported as an AlreadyActed
// rejection, a game that moved on as PhaseMismatch.
func (s *GameStore) InsertAction(ctx context.Context, gameID string, a games.Action) (games.Action, error) {
	args, err := actionArgs(gameID, a)
	if err != nil {
		return games.Action{}, err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return games.Action{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockPhase(ctx, tx, gameID, a.Phase, a.RoundNumber); err != nil {
		return games.Action{}, err
	}
	saved, err := scanAction(tx.QueryRow(ctx, insertAction+`
		ON CONFLICT (room_id, player_id, phase, round_number, action_type) DO NOTHING
		RETURNING `+actionColumns, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return games.Action{}, &games.RejectionError{Reason: games.ReasonAlreadyActed, Message: "action already submitted this round"}
	}
	if err != nil {
		return games.Action{}, fmt.Errorf("insert action: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return games.Action{}, fmt.Errorf("commit transaction: %w", err)
	}
	return saved, nil
}

// ReplaceVote deletes the player's vote for the round and inserts v, in one transaction,
// provided the game is still at v's phase and round.
// When two replacements race, the loser sees the unique index and gets AlreadyVoted.
func (s *GameStore) ReplaceVote(ctx context.Context, gameID string, v games.Action) (games.Action, error) {
	args, err := actionArgs(gameID, v)
	if err != nil {
		return games.Action{}, err
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return games.Action{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := lockPhase(ctx, tx, gameID, v.Phase, v.RoundNumber); err != nil {
		return games.Action{}, err
	}
	if _, err := tx.Exec(ctx, `
		DELETE FROM actions
		WHERE room_id = $1 AND player_id = $2 AND action_type = $3 AND round_number = $4`,
		gameID, args[1], string(games.ActionVote), v.RoundNumber); err != nil {
		return games.Action{}, fmt.Errorf("delete previous vote: %w", err)
	}
	saved, err := scanAction(tx.QueryRow(ctx, insertAction+` RETURNING `+actionColumns, args...))
	if isUniqueViolation(err) {
		return games.Action{}, &games.RejectionError{Reason: games.ReasonAlreadyVoted, Message: "player already voted"}
	}
	if err != nil {
		return games.Action{}, fmt.Errorf("insert vote: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return games.Action{}, &games.RejectionError{Reason: games.ReasonAlreadyVoted, Message: "player already voted"}
		}
		return games.Action{}, fmt.Errorf("commit transaction: %w", err)
	}
	return saved, nil
}

// ConfirmAction marks an action of the game as confirmed.
func (s *GameStore) ConfirmAction(ctx context.Context, gameID, actionID string) (games.Action, error) {
	id, err := stringToUUID(actionID)
	if err != nil {
		return games.Action{}, games.ErrActionNotFound
	}
	a, err := scanAction(s.pool.QueryRow(ctx, `
		UPDATE actions SET confirmed = TRUE
		WHERE room_id = $1 AND id = $2
		RETURNING `+actionColumns, gameID, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return games.Action{}, games.ErrActionNotFound
	}
	if err != nil {
		return games.Action{}, fmt.Errorf("confirm action: %w", err)
	}
	return a, nil
}

// ApplyWriteSet applies w in one transaction. The game row is updated only while it is
// still at w's expected phase and round, and with w's expected players if it names any;
// otherwise nothing is written and ErrStaleTransition is returned.
func (s *GameStore) ApplyWriteSet(ctx context.Context, gameID string, w games.WriteSet) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE games
		SET phase = $4, current_round = $5, winner_team = $6, started_at = $7, updated_at = now()
		WHERE id = $1 AND phase = $2 AND current_round = $3`,
		gameID, string(w.ExpectedPhase), w.ExpectedRound,
		string(w.Game.Phase), w.Game.CurrentRound, optionalText(string(w.Game.WinnerTeam)), timeToTimestamptz(w.Game.StartedAt))
	if err != nil {
		return fmt.Errorf("update game: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM games WHERE id = $1)`, gameID).Scan(&exists); err != nil {
			return fmt.Errorf("check game exists: %w", err)
		}
		if !exists {
			return games.ErrGameNotFound
		}
		return games.ErrStaleTransition
	}
	// The update holds the row lock JoinRoom takes, so the roster read here is final.
	if w.ExpectedPlayers != nil {
		same, err := sameRoster(ctx, tx, gameID, w.ExpectedPlayers)
		if err != nil {
			return err
		}
		if !same {
			return games.ErrStaleTransition
		}
	}

	if w.ClearActions {
		if _, err := tx.Exec(ctx, `DELETE FROM actions WHERE room_id = $1`, gameID); err != nil {
			return fmt.Errorf("clear actions: %w", err)
		}
	}

	batch := &pgx.Batch{}
	for _, u := range w.Participants {
		id, err := stringToUUID(u.ID)
		if err != nil {
			return games.ErrPlayerNotFound
		}
		var role pgtype.Text
		if u.Role != nil {
			role = optionalText(string(*u.Role))
		}
		batch.Queue(`
			UPDATE players SET
				role = CASE WHEN $3 THEN $4 ELSE role END,
				is_alive = COALESCE($5, is_alive),
				self_protected = COALESCE($6, self_protected),
				terrorist_used = COALESCE($7, terrorist_used)
			WHERE room_id = $1 AND id = $2`,
			gameID, id, u.Role != nil, role, u.IsAlive, u.SelfProtected, u.TerroristUsed)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("update players: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func sameRoster(ctx context.Context, tx pgx.Tx, gameID string, ids []string) (bool, error) {
	rows, err := tx.Query(ctx, `SELECT id FROM players WHERE room_id = $1`, gameID)
	if err != nil {
		return false, fmt.Errorf("get roster: %w", err)
	}
	current, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var id pgtype.UUID
		if err := row.Scan(&id); err != nil {
			return "", err
		}
		return uuidToString(id), nil
	})
	if err != nil {
		return false, fmt.Errorf("get roster: %w", err)
	}
	snap := games.Snapshot{Participants: make([]games.Participant, len(current))}
	for i, id := range current {
		snap.Participants[i].ID = id
	}
	return snap.SameRoster(ids), nil
}
