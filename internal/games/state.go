package games

import (
	"sort"
	"time"
)

// Game is the room-level game record. ID is the room code.
type Game struct {
	ID           string     `json:"id"`
	Phase        Phase      `json:"phase"`
	CurrentRound int        `json:"current_round"`
	WinnerTeam   Team       `json:"winner_team,omitempty"`
	CreatedBy    string     `json:"created_by"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
}

// Participant is a player in a room. The moderator is a participant with RoleGod.
type Participant struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Role          Role   `json:"role,omitempty"`
	IsAlive       bool   `json:"is_alive"`
	SelfProtected bool   `json:"self_protected"`
	TerroristUsed bool   `json:"terrorist_used"`
}

// Action is a submitted night action or vote. TargetID is empty when no target was given.
type Action struct {
	ID          string     `json:"id"`
	PlayerID    string     `json:"player_id"`
	Type        ActionType `json:"action_type"`
	TargetID    string     `json:"target_player_id,omitempty"`
	Phase       Phase      `json:"phase"`
	RoundNumber int        `json:"round_number"`
	Confirmed   bool       `json:"confirmed"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Snapshot is everything the engine reads for one decision, taken in one read.
type Snapshot struct {
	Game         Game          `json:"game"`
	Participants []Participant `json:"participants"`
	Actions      []Action      `json:"actions"`
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	out := &Snapshot{Game: s.Game}
	if s.Game.StartedAt != nil {
		t := *s.Game.StartedAt
		out.Game.StartedAt = &t
	}
	if s.Participants != nil {
		out.Participants = make([]Participant, len(s.Participants))
		copy(out.Participants, s.Participants)
	}
	if s.Actions != nil {
		out.Actions = make([]Action, len(s.Actions))
		copy(out.Actions, s.Actions)
	}
	return out
}

// Participant returns the participant with id, if present.
func (s *Snapshot) Participant(id string) (Participant, bool) {
	return findParticipant(s.Participants, id)
}

// Moderator returns the participant holding RoleGod, if roles are assigned.
func (s *Snapshot) Moderator() (Participant, bool) {
	for _, p := range s.Participants {
		if p.Role.IsModerator() {
			return p, true
		}
	}
	return Participant{}, false
}

// CurrentActions returns the actions submitted in the current phase and round.
func (s *Snapshot) CurrentActions() []Action {
	return actionsFor(s.Actions, s.Game.Phase.Effective(), s.Game.CurrentRound)
}

func findParticipant(ps []Participant, id string) (Participant, bool) {
	if id == "" {
		return Participant{}, false
	}
	for _, p := range ps {
		if p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}

func actionsFor(actions []Action, phase Phase, round int) []Action {
	var out []Action
	for _, a := range actions {
		if a.Phase.Effective() == phase && a.RoundNumber == round {
			out = append(out, a)
		}
	}
	return out
}

// GameUpdate is the game row after a transition.
type GameUpdate struct {
	Phase        Phase      `json:"phase"`
	CurrentRound int        `json:"current_round"`
	WinnerTeam   Team       `json:"winner_team,omitempty"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
}

// ParticipantUpdate changes selected fields of one participant; nil fields are untouched.
type ParticipantUpdate struct {
	ID            string `json:"id"`
	Role          *Role  `json:"role,omitempty"`
	IsAlive       *bool  `json:"is_alive,omitempty"`
	SelfProtected *bool  `json:"self_protected,omitempty"`
	TerroristUsed *bool  `json:"terrorist_used,omitempty"`
}

// WriteSet is every mutation of one command, applied by the store in a single transaction.
// The store must only apply it while the game is still at ExpectedPhase/ExpectedRound and,
// when ExpectedPlayers is non-nil, while the room holds exactly those participants.
type WriteSet struct {
	ExpectedPhase   Phase               `json:"expected_phase"`
	ExpectedRound   int                 `json:"expected_round"`
	ExpectedPlayers []string            `json:"expected_players,omitempty"`
	Game            GameUpdate          `json:"game"`
	Participants    []ParticipantUpdate `json:"participants,omitempty"`
	ClearActions    bool                `json:"clear_actions,omitempty"`
}

// SameRoster reports whether ids names exactly the participants of s.
func (s *Snapshot) SameRoster(ids []string) bool {
	if len(ids) != len(s.Participants) {
		return false
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	for _, p := range s.Participants {
		if !want[p.ID] {
			return false
		}
	}
	return len(want) == len(ids)
}

// Apply returns the snapshot that results from applying w to s, the way the store would.
func (w WriteSet) Apply(s *Snapshot) *Snapshot {
	next := s.Clone()
	next.Game.Phase = w.Game.Phase
	next.Game.CurrentRound = w.Game.CurrentRound
	next.Game.WinnerTeam = w.Game.WinnerTeam
	next.Game.StartedAt = w.Game.StartedAt
	for _, u := range w.Participants {
		for i := range next.Participants {
			p := &next.Participants[i]
			if p.ID != u.ID {
				continue
			}
			if u.Role != nil {
				p.Role = *u.Role
			}
			if u.IsAlive != nil {
				p.IsAlive = *u.IsAlive
			}
			if u.SelfProtected != nil {
				p.SelfProtected = *u.SelfProtected
			}
			if u.TerroristUsed != nil {
				p.TerroristUsed = *u.TerroristUsed
			}
		}
	}
	if w.ClearActions {
		next.Actions = nil
	}
	return next
}

func boolPtr(b bool) *bool { return &b }

func rolePtr(r Role) *Role { return &r }

// sortedKeys returns the members of a set in a stable order.
func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
