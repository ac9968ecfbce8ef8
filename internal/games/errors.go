package games

import (
	"errors"
	"fmt"
)

// Reason identifies why an action or setup request was rejected.
type Reason string

// Rejection reasons.
const (
	ReasonInsufficientPlayers      Reason = "InsufficientPlayers"
	ReasonInvalidPlayerID          Reason = "InvalidPlayerId"
	ReasonDeadActor                Reason = "DeadActor"
	ReasonPhaseMismatch            Reason = "PhaseMismatch"
	ReasonNoActionsThisPhase       Reason = "NoActionsThisPhase"
	ReasonAlreadyActed             Reason = "AlreadyActed"
	ReasonAlreadyVoted             Reason = "AlreadyVoted"
	ReasonWrongActionForRole       Reason = "WrongActionForRole"
	ReasonTargetRequired           Reason = "TargetRequired"
	ReasonInvalidTarget            Reason = "InvalidTarget"
	ReasonTargetNotAlive           Reason = "TargetNotAlive"
	ReasonCannotTargetSelf         Reason = "CannotTargetSelf"
	ReasonSelfProtectLimitExceeded Reason = "SelfProtectLimitExceeded"
	ReasonTerroristAlreadyUsed     Reason = "TerroristAlreadyUsed"
	ReasonInvalidVoteTarget        Reason = "InvalidVoteTarget"
	ReasonCannotVoteOutModerator   Reason = "CannotVoteOutModerator"
)

// RejectionError is returned when a request is well-formed but not allowed by the rules.
// Nothing is mutated when a rejection is returned.
type RejectionError struct {
	Reason  Reason
	Message string
}

func (e *RejectionError) Error() string {
	if e.Message == "" {
		return string(e.Reason)
	}
	return fmt.Sprintf("%s: %s", e.Reason, e.Message)
}

// Is matches any *RejectionError with the same reason, so errors.Is(err, Rejection(r)) works.
func (e *RejectionError) Is(target error) bool {
	t, ok := target.(*RejectionError)
	return ok && t.Reason == e.Reason
}

// Rejection returns a bare rejection for reason, useful as an errors.Is target.
func Rejection(r Reason) error { return &RejectionError{Reason: r} }

func reject(r Reason, msg string) error { return &RejectionError{Reason: r, Message: msg} }

// ReasonOf extracts the rejection reason from err.
func ReasonOf(err error) (Reason, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Reason, true
	}
	return "", false
}

// Command errors returned by the Engine.
var (
	ErrGameNotFound         = errors.New("game not found")
	ErrPlayerNotFound       = errors.New("player not in game")
	ErrActionNotFound       = errors.New("action not found")
	ErrNotModerator         = errors.New("only the moderator can do this")
	ErrNotCreator           = errors.New("only the room creator can start the game")
	ErrGameInProgress       = errors.New("game already in progress")
	ErrCannotAdvance        = errors.New("phase cannot be advanced")
	ErrPendingConfirmations = errors.New("pending confirmations")
	ErrStaleTransition      = errors.New("game state changed; reload and retry")
)
