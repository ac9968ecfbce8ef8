package games

// Phase is a step of the game loop.
type Phase string

// Phase names.
const (
	PhaseLobby      Phase = "lobby"
	PhaseRoundStart Phase = "round_start" // display only, behaves like the night it precedes
	PhaseNight      Phase = "night"
	PhaseDay        Phase = "day"
	PhaseVoting     Phase = "voting"
	PhaseEnded      Phase = "ended"
)

// ActionType is what a participant submits during night or voting.
type ActionType string

// Action types.
const (
	ActionMafiaKill         ActionType = "mafia_kill"
	ActionDoctorProtect     ActionType = "doctor_protect"
	ActionPoliceInvestigate ActionType = "police_investigate"
	ActionTerroristBomb     ActionType = "terrorist_bomb"
	ActionVote              ActionType = "vote"
)

// Valid reports whether a is a known action type.
func (a ActionType) Valid() bool {
	switch a {
	case ActionMafiaKill, ActionDoctorProtect, ActionPoliceInvestigate, ActionTerroristBomb, ActionVote:
		return true
	}
	return false
}

// PhaseDef defines a phase: name and allowed action types.
type PhaseDef struct {
	Name           Phase        `json:"name"`
	AllowedActions []ActionType `json:"allowed_actions"`
}

// ClassicMafiaPhases is the phase table of the moderated game.
var ClassicMafiaPhases = []PhaseDef{
	{Name: PhaseLobby, AllowedActions: []ActionType{}},
	{Name: PhaseNight, AllowedActions: []ActionType{ActionMafiaKill, ActionDoctorProtect, ActionPoliceInvestigate, ActionTerroristBomb}},
	{Name: PhaseDay, AllowedActions: []ActionType{}},
	{Name: PhaseVoting, AllowedActions: []ActionType{ActionVote}},
	{Name: PhaseEnded, AllowedActions: []ActionType{}},
}

// Effective returns the phase whose rules apply. round_start is a pass-through of night.
func (p Phase) Effective() Phase {
	if p == PhaseRoundStart {
		return PhaseNight
	}
	return p
}

// Terminal reports whether no further transition is possible.
func (p Phase) Terminal() bool { return p == PhaseEnded }

// AcceptsActions reports whether participants may submit anything in this phase.
func (p Phase) AcceptsActions() bool {
	switch p.Effective() {
	case PhaseNight, PhaseVoting:
		return true
	}
	return false
}

// Next returns the natural successor of p and whether the round number advances.
// ok is false for ended and unknown phases.
func Next(p Phase) (next Phase, roundIncrement bool, ok bool) {
	switch p {
	case PhaseLobby, PhaseRoundStart:
		return PhaseNight, false, true
	case PhaseNight:
		return PhaseDay, false, true
	case PhaseDay:
		return PhaseVoting, false, true
	case PhaseVoting:
		return PhaseNight, true, true
	}
	return p, false, false
}

// AllowedActions returns the action types admitted in phase.
func AllowedActions(phase Phase) []ActionType {
	eff := phase.Effective()
	for _, p := range ClassicMafiaPhases {
		if p.Name == eff {
			return p.AllowedActions
		}
	}
	return nil
}

// IsAllowed reports whether action a may be submitted during phase.
func IsAllowed(phase Phase, a ActionType) bool {
	for _, allowed := range AllowedActions(phase) {
		if allowed == a {
			return true
		}
	}
	return false
}
