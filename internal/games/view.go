package games

// View is the part of a snapshot one participant may see.
type View struct {
	Game         Game          `json:"game"`
	Participants []Participant `json:"participants"`
	Actions      []Action      `json:"actions"`
	You          *Participant  `json:"you,omitempty"`
	Gate         *GateStatus   `json:"gate,omitempty"`
	Missing      []string      `json:"missing,omitempty"`
}

// ViewFor projects the snapshot for viewerID. The moderator sees everything, as does
// everyone once the game has ended. Mafia see each other. Everyone sees their own role
// and their own actions; votes are public. Once-per-game flags stay private to their owner.
func (s *Snapshot) ViewFor(viewerID string) View {
	viewer, known := s.Participant(viewerID)
	all := s.Game.Phase.Terminal() || (known && viewer.Role.IsModerator())

	v := View{Game: s.Game, Participants: make([]Participant, 0, len(s.Participants)), Actions: []Action{}}
	for _, p := range s.Participants {
		switch {
		case all, p.ID == viewerID:
		case known && viewer.Role == RoleMafia && p.Role == RoleMafia:
			p.SelfProtected, p.TerroristUsed = false, false
		case p.Role.IsModerator():
			// Who moderates is public.
			p.SelfProtected, p.TerroristUsed = false, false
		default:
			p.Role = RoleNone
			p.SelfProtected, p.TerroristUsed = false, false
		}
		v.Participants = append(v.Participants, p)
	}
	for _, a := range s.Actions {
		if all || a.PlayerID == viewerID || a.Type == ActionVote {
			v.Actions = append(v.Actions, a)
		}
	}
	if known {
		you := viewer
		v.You = &you
	}
	if known && viewer.Role.IsModerator() {
		gate := CheckGate(s.Game.Phase, s.Game.CurrentRound, s.Actions)
		v.Gate = &gate
		for _, p := range MissingActors(s) {
			v.Missing = append(v.Missing, p.ID)
		}
	}
	return v
}
