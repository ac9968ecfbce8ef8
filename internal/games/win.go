package games

// Win reasons.
const (
	WinReasonNoPlayers     = "no players alive"
	WinReasonMafiaGone     = "all Mafia eliminated"
	WinReasonMafiaMajority = "Mafia equals or outnumbers other players"
	WinReasonContinues     = "game continues"
)

// WinResult is the decision of the win evaluator. Winner is TeamNone while the game goes on.
type WinResult struct {
	Winner      Team   `json:"winner,omitempty"`
	Reason      string `json:"reason"`
	AliveMafia  int    `json:"alive_mafia"`
	AliveOthers int    `json:"alive_others"`
}

// Ended reports whether the game is over. A room where nobody is left alive ends without
// a winner.
func (w WinResult) Ended() bool { return w.Winner != TeamNone || w.Reason == WinReasonNoPlayers }

// EvaluateWin decides whether the game is over. The moderator is never counted.
//
// The Terrorist is neutral for TeamOf, yet counts on the non-Mafia side of the
// comparison here. Keep this asymmetry; it is the rule the game was played by.
func EvaluateWin(participants []Participant) WinResult {
	var res WinResult
	for _, p := range participants {
		if !p.IsAlive || p.Role.IsModerator() {
			continue
		}
		if TeamOf(p.Role) == TeamMafia {
			res.AliveMafia++
		} else {
			res.AliveOthers++
		}
	}
	switch {
	case res.AliveMafia+res.AliveOthers == 0:
		res.Reason = WinReasonNoPlayers
	case res.AliveMafia == 0:
		res.Winner, res.Reason = TeamCitizen, WinReasonMafiaGone
	case res.AliveMafia >= res.AliveOthers:
		res.Winner, res.Reason = TeamMafia, WinReasonMafiaMajority
	default:
		res.Reason = WinReasonContinues
	}
	return res
}

// WinningPlayers returns the non-moderator participants whose team won.
func WinningPlayers(participants []Participant, winner Team) []Participant {
	if winner == TeamNone {
		return nil
	}
	var out []Participant
	for _, p := range participants {
		if p.Role.IsModerator() {
			continue
		}
		if TeamOf(p.Role) == winner {
			out = append(out, p)
		}
	}
	return out
}
