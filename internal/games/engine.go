package games

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Result is returned by every Engine command: the snapshot after the command and the events
// to deliver.
type Result struct {
	Snapshot *Snapshot
	Events   []BroadcastEvent
}

// BroadcastEvent represents an event to deliver. An empty Recipients list means everyone in
// the room; otherwise only the listed participants receive it.
type BroadcastEvent struct {
	Event      string                 `json:"event"`
	Payload    map[string]interface{} `json:"payload"`
	Recipients []string               `json:"-"`
}

// Event names.
const (
	EventGameStarted     = "game_started"
	EventActionSubmitted = "action_submitted"
	EventVoteRecorded    = "vote_recorded"
	EventActionConfirmed = "action_confirmed"
	EventNightResolved   = "night_resolved"
	EventNightReport     = "night_report"
	EventInvestigation   = "investigation_result"
	EventVotesResolved   = "votes_resolved"
	EventPhaseChanged    = "phase_changed"
	EventGameEnded       = "game_ended"
	EventGameReset       = "game_reset"
	EventGameRestarted   = "game_restarted"
	EventNarration       = "narration"
)

// Store is the persistence the engine needs. It is implemented by store.GameStore.
//
// InsertAction must be an atomic insert-if-absent keyed on (player, phase, round, type) and
// report a duplicate as a ReasonAlreadyActed rejection. ReplaceVote must delete the player's
// vote for the round and insert the new one in one transaction, reporting a concurrent
// duplicate as ReasonAlreadyVoted. Both must report a game that is no longer at the action's
// phase and round as ReasonPhaseMismatch. ApplyWriteSet must apply the whole set atomically
// and return ErrStaleTransition when the game is no longer at the expected phase and round
// or, for a set with ExpectedPlayers, holds a different roster.
type Store interface {
	LoadSnapshot(ctx context.Context, gameID string) (*Snapshot, error)
	InsertAction(ctx context.Context, gameID string, action Action) (Action, error)
	ReplaceVote(ctx context.Context, gameID string, vote Action) (Action, error)
	ConfirmAction(ctx context.Context, gameID string, actionID string) (Action, error)
	ApplyWriteSet(ctx context.Context, gameID string, w WriteSet) error
}

// Observer is notified of engine outcomes (metrics). All methods must be cheap.
type Observer interface {
	ActionAccepted(t ActionType)
	ActionRejected(r Reason)
	PhaseChanged(from, to Phase)
	GameEnded(winner Team)
}

type noopObserver struct{}

func (noopObserver) ActionAccepted(ActionType) {}
func (noopObserver) ActionRejected(Reason)     {}
func (noopObserver) PhaseChanged(Phase, Phase) {}
func (noopObserver) GameEnded(Team)            {}

// ActionRequest is what a participant submits. An empty Phase means the phase the game is
// currently in.
type ActionRequest struct {
	Type     ActionType `json:"action_type"`
	TargetID string     `json:"target_player_id,omitempty"`
	Phase    Phase      `json:"phase,omitempty"`
}

// Engine validates and persists actions and drives moderator commands. It holds no game
// state; every command reloads a snapshot, decides, and hands the store one write set.
type Engine struct {
	store    Store
	observer Observer
	now      func() time.Time

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// Option configures an Engine.
type Option func(*Engine)

// WithObserver sets the outcome observer.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithRand makes role assignment use rng (tests seed it).
func WithRand(rng *rand.Rand) Option {
	return func(e *Engine) { e.rng = rng }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an engine over store.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{store: store, observer: noopObserver{}, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Reload reads a fresh snapshot. Callers invoke it whenever they learn that the game,
// participants or actions changed, and reconcile their view from the result.
func (e *Engine) Reload(ctx context.Context, gameID string) (*Snapshot, error) {
	snap, err := e.store.LoadSnapshot(ctx, gameID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if snap == nil {
		return nil, ErrGameNotFound
	}
	return snap, nil
}

// Submit validates a participant's action against a fresh snapshot and persists it.
// Night actions are stored unconfirmed; votes are stored confirmed and replace the
// participant's previous vote for the round.
func (e *Engine) Submit(ctx context.Context, gameID, playerID string, req ActionRequest) (*Result, error) {
	snap, err := e.Reload(ctx, gameID)
	if err != nil {
		return nil, err
	}
	actor, ok := snap.Participant(playerID)
	if !ok {
		return nil, ErrPlayerNotFound
	}
	phase := req.Phase
	if phase == "" {
		phase = snap.Game.Phase
	}
	action := Action{
		PlayerID:    playerID,
		Type:        req.Type,
		TargetID:    req.TargetID,
		Phase:       phase,
		RoundNumber: snap.Game.CurrentRound,
		Confirmed:   req.Type == ActionVote,
		CreatedAt:   e.now().UTC(),
	}

	prior := snap.Actions
	if action.Type == ActionVote {
		// A repeat vote replaces the earlier one, so the earlier one does not count against it.
		prior = withoutVote(snap.Actions, playerID, snap.Game.CurrentRound)
	}
	if err := Validate(action, actor, snap.Game, snap.Participants, prior); err != nil {
		e.rejected(gameID, playerID, err)
		return nil, err
	}

	var saved Action
	if action.Type == ActionVote {
		saved, err = e.store.ReplaceVote(ctx, gameID, action)
	} else {
		saved, err = e.store.InsertAction(ctx, gameID, action)
	}
	if err != nil {
		if _, isRejection := ReasonOf(err); isRejection {
			e.rejected(gameID, playerID, err)
			return nil, err
		}
		return nil, fmt.Errorf("persist action: %w", err)
	}
	e.observer.ActionAccepted(saved.Type)

	next := snap.Clone()
	if saved.Type == ActionVote {
		next.Actions = withoutVote(next.Actions, playerID, snap.Game.CurrentRound)
	}
	next.Actions = append(next.Actions, saved)

	log.Info().Str("game_id", gameID).Str("player_id", playerID).Str("action_id", saved.ID).
		Str("action_type", string(saved.Type)).Int("round", saved.RoundNumber).Msg("action accepted")

	var events []BroadcastEvent
	moderator, _ := snap.Moderator()
	if saved.Type == ActionVote {
		events = append(events,
			BroadcastEvent{Event: EventVoteRecorded, Payload: map[string]interface{}{"player_id": playerID, "round": saved.RoundNumber}},
			BroadcastEvent{Event: EventActionSubmitted, Payload: actionPayload(saved), Recipients: []string{moderator.ID}},
		)
	} else {
		events = append(events, BroadcastEvent{
			Event:      EventActionSubmitted,
			Payload:    actionPayload(saved),
			Recipients: recipients(moderator.ID, playerID),
		})
	}
	return &Result{Snapshot: next, Events: events}, nil
}

// Confirm marks an action as confirmed by the moderator. Confirming twice is a no-op.
func (e *Engine) Confirm(ctx context.Context, gameID, moderatorID, actionID string) (*Result, error) {
	snap, err := e.Reload(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if err := requireModerator(snap, moderatorID); err != nil {
		return nil, err
	}
	idx := -1
	for i, a := range snap.Actions {
		if a.ID == actionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrActionNotFound
	}
	if snap.Actions[idx].Confirmed {
		return &Result{Snapshot: snap}, nil
	}

	saved, err := e.store.ConfirmAction(ctx, gameID, actionID)
	if err != nil {
		return nil, fmt.Errorf("confirm action: %w", err)
	}
	next := snap.Clone()
	next.Actions[idx] = saved

	gate := CheckGate(next.Game.Phase, next.Game.CurrentRound, next.Actions)
	payload := actionPayload(saved)
	payload["pending"] = gate.Pending
	return &Result{Snapshot: next, Events: []BroadcastEvent{{
		Event:      EventActionConfirmed,
		Payload:    payload,
		Recipients: recipients(moderatorID, saved.PlayerID),
	}}}, nil
}

// Gate reports whether the current phase can be advanced.
func (e *Engine) Gate(ctx context.Context, gameID string) (GateStatus, error) {
	snap, err := e.Reload(ctx, gameID)
	if err != nil {
		return GateStatus{}, err
	}
	return CheckGate(snap.Game.Phase, snap.Game.CurrentRound, snap.Actions), nil
}

// AdvancePhase moves the game to its next phase. Leaving night resolves the confirmed
// night actions; leaving voting resolves the votes and starts the next round. After either
// the win evaluator runs and may end the game instead.
func (e *Engine) AdvancePhase(ctx context.Context, gameID, moderatorID string) (*Result, error) {
	snap, err := e.Reload(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if err := requireModerator(snap, moderatorID); err != nil {
		return nil, err
	}
	from, round := snap.Game.Phase, snap.Game.CurrentRound
	if from == PhaseLobby || from.Terminal() {
		return nil, fmt.Errorf("%w from %s", ErrCannotAdvance, from)
	}
	if gate := CheckGate(from, round, snap.Actions); !gate.Advanceable {
		return nil, fmt.Errorf("%w: %s", ErrPendingConfirmations, gate.Message)
	}
	to, increment, ok := Next(from)
	if !ok {
		return nil, fmt.Errorf("%w from %s", ErrCannotAdvance, from)
	}

	w := WriteSet{
		ExpectedPhase: from,
		ExpectedRound: round,
		Game:          GameUpdate{Phase: to, CurrentRound: round, StartedAt: snap.Game.StartedAt},
	}
	if increment {
		w.Game.CurrentRound = round + 1
	}
	updates := newUpdateSet()
	var events []BroadcastEvent
	moderator, _ := snap.Moderator()
	var narrate func(after *Snapshot) []string

	switch from {
	case PhaseNight:
		night := ResolveNight(snap.CurrentActions(), snap.Participants)
		for _, id := range night.Deaths {
			updates.get(id).IsAlive = boolPtr(false)
		}
		for _, id := range night.SelfProtected {
			updates.get(id).SelfProtected = boolPtr(true)
		}
		for _, id := range night.TerroristsUsed {
			updates.get(id).TerroristUsed = boolPtr(true)
		}
		events = append(events,
			BroadcastEvent{Event: EventNightResolved, Payload: map[string]interface{}{"deaths": night.Deaths, "round": round}},
			BroadcastEvent{Event: EventNightReport, Payload: map[string]interface{}{
				"deaths": night.Deaths, "protections": night.Protections, "bombs": night.Bombs,
				"investigations": night.Investigations, "round": round,
			}, Recipients: []string{moderator.ID}},
		)
		for _, inv := range night.Investigations {
			events = append(events, BroadcastEvent{
				Event: EventInvestigation,
				Payload: map[string]interface{}{
					"target": inv.Target, "is_mafia": inv.IsMafia, "round": round,
				},
				Recipients: []string{inv.Investigator},
			})
		}
		narrate = func(after *Snapshot) []string { return NarrateNight(night, after) }
		log.Info().Str("game_id", gameID).Int("round", round).Strs("deaths", night.Deaths).
			Strs("protections", night.Protections).Msg("night resolved")

	case PhaseVoting:
		votes := ResolveVotes(snap.CurrentActions())
		for _, id := range votes.Eliminated {
			updates.get(id).IsAlive = boolPtr(false)
		}
		events = append(events, BroadcastEvent{Event: EventVotesResolved, Payload: map[string]interface{}{
			"eliminated": votes.Eliminated, "tie": votes.Tie, "vote_counts": votes.VoteCounts, "round": round,
		}})
		log.Info().Str("game_id", gameID).Int("round", round).Strs("eliminated", votes.Eliminated).
			Bool("tie", votes.Tie).Msg("votes resolved")
		narrate = func(after *Snapshot) []string { return NarrateVotes(votes, after) }
	}
	w.Participants = updates.list()

	if narrate != nil {
		after := w.Apply(snap)
		events = append(events, BroadcastEvent{Event: EventNarration, Payload: map[string]interface{}{
			"phase": from, "round": round, "lines": narrate(after),
		}, Recipients: []string{moderator.ID}})
		if win := EvaluateWin(after.Participants); win.Ended() {
			w.Game.Phase = PhaseEnded
			w.Game.CurrentRound = round
			w.Game.WinnerTeam = win.Winner
			after = w.Apply(snap)
			events = append(events, gameEndedEvent(after, win))
			e.observer.GameEnded(win.Winner)
			log.Info().Str("game_id", gameID).Str("winner", string(win.Winner)).Str("reason", win.Reason).Msg("game ended")
		}
	}

	if err := e.store.ApplyWriteSet(ctx, gameID, w); err != nil {
		return nil, fmt.Errorf("apply transition: %w", err)
	}
	next := w.Apply(snap)
	e.observer.PhaseChanged(from, next.Game.Phase)
	events = append(events, phaseChangedEvent(next, from))
	return &Result{Snapshot: next, Events: events}, nil
}

// StartGame assigns roles and opens night one. Only the room creator may start, only from
// the lobby, and only with enough players.
func (e *Engine) StartGame(ctx context.Context, gameID, playerID string) (*Result, error) {
	snap, err := e.Reload(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if snap.Game.Phase != PhaseLobby {
		return nil, ErrGameInProgress
	}
	if snap.Game.CreatedBy != playerID {
		return nil, ErrNotCreator
	}
	ids := make([]string, 0, len(snap.Participants))
	for _, p := range snap.Participants {
		ids = append(ids, p.ID)
	}
	roles, err := e.assignRoles(ids)
	if err != nil {
		return nil, err
	}

	now := e.now().UTC()
	// Roles are dealt to exactly these players; a late join makes the deal stale.
	w := WriteSet{
		ExpectedPhase:   PhaseLobby,
		ExpectedRound:   snap.Game.CurrentRound,
		ExpectedPlayers: ids,
		Game:            GameUpdate{Phase: PhaseNight, CurrentRound: 1, StartedAt: &now},
		ClearActions:    true,
	}
	for _, id := range ids {
		w.Participants = append(w.Participants, freshParticipant(id, rolePtr(roles[id])))
	}
	if err := e.store.ApplyWriteSet(ctx, gameID, w); err != nil {
		return nil, fmt.Errorf("start game: %w", err)
	}
	next := w.Apply(snap)
	e.observer.PhaseChanged(PhaseLobby, PhaseNight)
	log.Info().Str("game_id", gameID).Int("players", len(ids)).Msg("game started")

	return &Result{Snapshot: next, Events: []BroadcastEvent{
		{Event: EventGameStarted, Payload: map[string]interface{}{"phase": next.Game.Phase, "round": 1, "players": len(ids)}},
	}}, nil
}

// ResetToLobby clears actions and roles, revives everyone and returns to the lobby.
func (e *Engine) ResetToLobby(ctx context.Context, gameID, moderatorID string) (*Result, error) {
	snap, err := e.Reload(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if err := requireModerator(snap, moderatorID); err != nil {
		return nil, err
	}
	w := WriteSet{
		ExpectedPhase: snap.Game.Phase,
		ExpectedRound: snap.Game.CurrentRound,
		Game:          GameUpdate{Phase: PhaseLobby, CurrentRound: 1},
		ClearActions:  true,
	}
	for _, p := range snap.Participants {
		w.Participants = append(w.Participants, freshParticipant(p.ID, rolePtr(RoleNone)))
	}
	if err := e.store.ApplyWriteSet(ctx, gameID, w); err != nil {
		return nil, fmt.Errorf("reset game: %w", err)
	}
	next := w.Apply(snap)
	e.observer.PhaseChanged(snap.Game.Phase, PhaseLobby)
	log.Info().Str("game_id", gameID).Str("from", string(snap.Game.Phase)).Msg("game reset to lobby")
	return &Result{Snapshot: next, Events: []BroadcastEvent{
		{Event: EventGameReset, Payload: map[string]interface{}{"phase": PhaseLobby}},
	}}, nil
}

// RestartWithSameRoles clears actions, revives everyone and starts again at night one with
// the roles already dealt. Once-per-game abilities become available again.
func (e *Engine) RestartWithSameRoles(ctx context.Context, gameID, moderatorID string) (*Result, error) {
	snap, err := e.Reload(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if err := requireModerator(snap, moderatorID); err != nil {
		return nil, err
	}
	now := e.now().UTC()
	w := WriteSet{
		ExpectedPhase: snap.Game.Phase,
		ExpectedRound: snap.Game.CurrentRound,
		Game:          GameUpdate{Phase: PhaseNight, CurrentRound: 1, StartedAt: &now},
		ClearActions:  true,
	}
	for _, p := range snap.Participants {
		w.Participants = append(w.Participants, freshParticipant(p.ID, nil))
	}
	if err := e.store.ApplyWriteSet(ctx, gameID, w); err != nil {
		return nil, fmt.Errorf("restart game: %w", err)
	}
	next := w.Apply(snap)
	e.observer.PhaseChanged(snap.Game.Phase, PhaseNight)
	log.Info().Str("game_id", gameID).Msg("game restarted with same roles")
	return &Result{Snapshot: next, Events: []BroadcastEvent{
		{Event: EventGameRestarted, Payload: map[string]interface{}{"phase": PhaseNight, "round": 1}},
	}}, nil
}

func (e *Engine) assignRoles(ids []string) (map[string]Role, error) {
	if e.rng == nil {
		return AssignRoles(ids, nil)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return AssignRoles(ids, e.rng)
}

func (e *Engine) rejected(gameID, playerID string, err error) {
	reason, _ := ReasonOf(err)
	e.observer.ActionRejected(reason)
	log.Debug().Str("game_id", gameID).Str("player_id", playerID).Str("reason", string(reason)).Msg("action rejected")
}

func requireModerator(snap *Snapshot, playerID string) error {
	p, ok := snap.Participant(playerID)
	if !ok {
		return ErrPlayerNotFound
	}
	if !p.Role.IsModerator() {
		return ErrNotModerator
	}
	return nil
}

// IsCommandError reports whether err is one of the engine's expected outcomes (a rejection
// or a command error) rather than an infrastructure failure.
func IsCommandError(err error) bool {
	if _, ok := ReasonOf(err); ok {
		return true
	}
	for _, target := range []error{
		ErrGameNotFound, ErrPlayerNotFound, ErrActionNotFound, ErrNotModerator, ErrNotCreator,
		ErrGameInProgress, ErrCannotAdvance, ErrPendingConfirmations, ErrStaleTransition,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func freshParticipant(id string, role *Role) ParticipantUpdate {
	return ParticipantUpdate{
		ID:            id,
		Role:          role,
		IsAlive:       boolPtr(true),
		SelfProtected: boolPtr(false),
		TerroristUsed: boolPtr(false),
	}
}

func withoutVote(actions []Action, playerID string, round int) []Action {
	out := make([]Action, 0, len(actions))
	for _, a := range actions {
		if a.Type == ActionVote && a.PlayerID == playerID && a.RoundNumber == round {
			continue
		}
		out = append(out, a)
	}
	return out
}

func recipients(ids ...string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func actionPayload(a Action) map[string]interface{} {
	return map[string]interface{}{
		"action_id":        a.ID,
		"player_id":        a.PlayerID,
		"action_type":      a.Type,
		"target_player_id": a.TargetID,
		"phase":            a.Phase,
		"round":            a.RoundNumber,
		"confirmed":        a.Confirmed,
	}
}

func phaseChangedEvent(s *Snapshot, from Phase) BroadcastEvent {
	return BroadcastEvent{Event: EventPhaseChanged, Payload: map[string]interface{}{
		"from": from, "phase": s.Game.Phase, "round": s.Game.CurrentRound,
	}}
}

func gameEndedEvent(s *Snapshot, win WinResult) BroadcastEvent {
	roles := make(map[string]Role, len(s.Participants))
	for _, p := range s.Participants {
		roles[p.ID] = p.Role
	}
	winners := WinningPlayers(s.Participants, win.Winner)
	ids := make([]string, 0, len(winners))
	for _, p := range winners {
		ids = append(ids, p.ID)
	}
	return BroadcastEvent{Event: EventGameEnded, Payload: map[string]interface{}{
		"winner": win.Winner, "reason": win.Reason, "roles": roles, "winners": ids, "rounds": s.Game.CurrentRound,
	}}
}

// updateSet merges several updates to the same participant.
type updateSet struct {
	order []string
	byID  map[string]*ParticipantUpdate
}

func newUpdateSet() *updateSet {
	return &updateSet{byID: make(map[string]*ParticipantUpdate)}
}

func (u *updateSet) get(id string) *ParticipantUpdate {
	if p, ok := u.byID[id]; ok {
		return p
	}
	p := &ParticipantUpdate{ID: id}
	u.byID[id] = p
	u.order = append(u.order, id)
	return p
}

func (u *updateSet) list() []ParticipantUpdate {
	out := make([]ParticipantUpdate, 0, len(u.order))
	for _, id := range u.order {
		out = append(out, *u.byID[id])
	}
	return out
}
