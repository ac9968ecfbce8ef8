package games

import "fmt"

// Validate decides whether actor may submit action given the game, all participants and the
// actions already recorded for the room. It returns nil to accept or a *RejectionError.
// Checks run in a fixed order and the first failure wins. Validate never mutates anything.
func Validate(action Action, actor Participant, game Game, participants []Participant, prior []Action) error {
	if !actor.IsAlive {
		return reject(ReasonDeadActor, "dead players cannot act")
	}
	if action.Phase != game.Phase {
		return reject(ReasonPhaseMismatch, fmt.Sprintf("action is for phase %s, game is in %s", action.Phase, game.Phase))
	}
	switch game.Phase.Effective() {
	case PhaseNight:
		return validateNight(action, actor, game, participants, prior)
	case PhaseVoting:
		return validateVote(action, actor, game, participants, prior)
	}
	return reject(ReasonNoActionsThisPhase, fmt.Sprintf("no actions are accepted during %s", game.Phase))
}

func validateNight(action Action, actor Participant, game Game, participants []Participant, prior []Action) error {
	for _, a := range prior {
		if a.PlayerID == actor.ID && a.Phase.Effective() == PhaseNight && a.RoundNumber == game.CurrentRound && !a.Confirmed {
			return reject(ReasonAlreadyActed, "action already submitted this round, waiting for the moderator")
		}
	}

	want, ok := NightActionFor(actor.Role)
	if !ok || action.Type != want {
		if !ok {
			return reject(ReasonWrongActionForRole, fmt.Sprintf("%s cannot act at night", actor.Role.DisplayName()))
		}
		return reject(ReasonWrongActionForRole, fmt.Sprintf("%s can only %s", actor.Role.DisplayName(), want))
	}

	if actor.Role == RoleTerrorist && actor.TerroristUsed {
		return reject(ReasonTerroristAlreadyUsed, "terrorist can only bomb once per game")
	}

	// An investigation without a target is a deliberate pass.
	if action.Type == ActionPoliceInvestigate && action.TargetID == "" {
		return nil
	}
	if action.TargetID == "" {
		return reject(ReasonTargetRequired, "target required")
	}
	target, ok := findParticipant(participants, action.TargetID)
	if !ok || target.Role.IsModerator() {
		return reject(ReasonInvalidTarget, "invalid target")
	}
	if !target.IsAlive {
		return reject(ReasonTargetNotAlive, "cannot target dead player")
	}
	if target.ID == actor.ID {
		if actor.Role != RoleDoctor {
			return reject(ReasonCannotTargetSelf, "cannot target self")
		}
		if actor.SelfProtected {
			return reject(ReasonSelfProtectLimitExceeded, "doctor can only self-protect once per game")
		}
	}
	return nil
}

func validateVote(action Action, actor Participant, game Game, participants []Participant, prior []Action) error {
	if action.Type != ActionVote {
		return reject(ReasonWrongActionForRole, "only votes are accepted during voting")
	}
	if actor.Role.IsModerator() {
		return reject(ReasonWrongActionForRole, "the moderator does not vote")
	}
	for _, a := range prior {
		if a.PlayerID == actor.ID && a.Type == ActionVote && a.RoundNumber == game.CurrentRound {
			return reject(ReasonAlreadyVoted, "player already voted")
		}
	}
	target, ok := findParticipant(participants, action.TargetID)
	if !ok {
		return reject(ReasonInvalidVoteTarget, "invalid vote target")
	}
	// Checked before liveness so a vote against the moderator always reports this reason.
	if target.Role.IsModerator() {
		return reject(ReasonCannotVoteOutModerator, "cannot vote out the moderator")
	}
	if !target.IsAlive {
		return reject(ReasonTargetNotAlive, "cannot vote for dead player")
	}
	return nil
}
