package games

import "fmt"

// GateStatus tells the moderator whether the current phase may be advanced.
type GateStatus struct {
	Advanceable bool     `json:"advanceable"`
	Pending     int      `json:"pending"`
	PendingIDs  []string `json:"pending_ids,omitempty"`
	Message     string   `json:"message,omitempty"`
}

// CheckGate reports whether every non-vote action of phase/round has been confirmed.
// Votes are confirmed on submission, so voting is always advanceable.
func CheckGate(phase Phase, round int, actions []Action) GateStatus {
	if phase.Effective() == PhaseVoting {
		return GateStatus{Advanceable: true}
	}
	var pending []string
	for _, a := range actionsFor(actions, phase.Effective(), round) {
		if !a.Confirmed {
			pending = append(pending, a.ID)
		}
	}
	if len(pending) == 0 {
		return GateStatus{Advanceable: true}
	}
	return GateStatus{
		Pending:    len(pending),
		PendingIDs: pending,
		Message:    fmt.Sprintf("Please confirm all actions before advancing phase. %d unconfirmed action(s) remaining.", len(pending)),
	}
}

// MissingActors lists living participants who have not submitted anything yet in the
// current night or voting phase. It is informational; it never blocks advancing.
func MissingActors(s *Snapshot) []Participant {
	phase := s.Game.Phase.Effective()
	if phase != PhaseNight && phase != PhaseVoting {
		return nil
	}
	submitted := make(map[string]bool)
	for _, a := range s.CurrentActions() {
		submitted[a.PlayerID] = true
	}
	var out []Participant
	for _, p := range s.Participants {
		if !p.IsAlive || p.Role.IsModerator() || submitted[p.ID] {
			continue
		}
		if phase == PhaseNight {
			// The bomb is optional, so the terrorist is never waited on.
			if _, acts := NightActionFor(p.Role); !acts || p.Role == RoleTerrorist {
				continue
			}
		}
		out = append(out, p)
	}
	return out
}
