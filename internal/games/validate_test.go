package games

import "testing"

// table returns an eight player room: moderator g, mafia m1 m2, doctor d, police po,
// terrorist te, citizens c1 c2. Everyone is alive.
func table() []Participant {
	return []Participant{
		{ID: "g", Name: "Gail", Role: RoleGod, IsAlive: true},
		{ID: "m1", Name: "Max", Role: RoleMafia, IsAlive: true},
		{ID: "m2", Name: "Mia", Role: RoleMafia, IsAlive: true},
		{ID: "d", Name: "Dana", Role: RoleDoctor, IsAlive: true},
		{ID: "po", Name: "Pat", Role: RolePolice, IsAlive: true},
		{ID: "te", Name: "Ted", Role: RoleTerrorist, IsAlive: true},
		{ID: "c1", Name: "Cy", Role: RoleCitizen, IsAlive: true},
		{ID: "c2", Name: "Cleo", Role: RoleCitizen, IsAlive: true},
	}
}

func kill(ps []Participant, ids ...string) []Participant {
	for i := range ps {
		for _, id := range ids {
			if ps[i].ID == id {
				ps[i].IsAlive = false
			}
		}
	}
	return ps
}

func participant(ps []Participant, id string) Participant {
	p, _ := findParticipant(ps, id)
	return p
}

func TestValidate(t *testing.T) {
	night := Game{ID: "ROOM1", Phase: PhaseNight, CurrentRound: 2}
	voting := Game{ID: "ROOM1", Phase: PhaseVoting, CurrentRound: 2}
	day := Game{ID: "ROOM1", Phase: PhaseDay, CurrentRound: 2}

	nightAct := func(actor string, typ ActionType, target string) Action {
		return Action{PlayerID: actor, Type: typ, TargetID: target, Phase: PhaseNight, RoundNumber: 2}
	}
	vote := func(actor, target string) Action {
		return Action{PlayerID: actor, Type: ActionVote, TargetID: target, Phase: PhaseVoting, RoundNumber: 2}
	}

	cases := []struct {
		name   string
		game   Game
		ps     []Participant
		action Action
		prior  []Action
		want   Reason // empty means accepted
	}{
		{name: "mafia kill", game: night, action: nightAct("m1", ActionMafiaKill, "c1")},
		{name: "dead actor", game: night, ps: kill(table(), "m1"), action: nightAct("m1", ActionMafiaKill, "c1"), want: ReasonDeadActor},
		{name: "dead actor wins over phase mismatch", game: day, ps: kill(table(), "m1"), action: nightAct("m1", ActionMafiaKill, "c1"), want: ReasonDeadActor},
		{name: "phase mismatch", game: day, action: nightAct("m1", ActionMafiaKill, "c1"), want: ReasonPhaseMismatch},
		{name: "no actions during day", game: day, action: Action{PlayerID: "m1", Type: ActionMafiaKill, TargetID: "c1", Phase: PhaseDay}, want: ReasonNoActionsThisPhase},
		{name: "already acted", game: night, action: nightAct("m1", ActionMafiaKill, "c2"),
			prior: []Action{nightAct("m1", ActionMafiaKill, "c1")}, want: ReasonAlreadyActed},
		{name: "confirmed earlier action does not block", game: night, action: nightAct("m1", ActionMafiaKill, "c2"),
			prior: []Action{{PlayerID: "m1", Type: ActionMafiaKill, TargetID: "c1", Phase: PhaseNight, RoundNumber: 2, Confirmed: true}}},
		{name: "previous round does not block", game: night, action: nightAct("m1", ActionMafiaKill, "c2"),
			prior: []Action{{PlayerID: "m1", Type: ActionMafiaKill, TargetID: "c1", Phase: PhaseNight, RoundNumber: 1}}},
		{name: "citizen cannot act", game: night, action: nightAct("c1", ActionMafiaKill, "c2"), want: ReasonWrongActionForRole},
		{name: "doctor cannot kill", game: night, action: nightAct("d", ActionMafiaKill, "c2"), want: ReasonWrongActionForRole},
		{name: "moderator cannot act", game: night, action: nightAct("g", ActionMafiaKill, "c2"), want: ReasonWrongActionForRole},
		{name: "terrorist used", game: night, ps: func() []Participant {
			ps := table()
			ps[5].TerroristUsed = true
			return ps
		}(), action: nightAct("te", ActionTerroristBomb, ""), want: ReasonTerroristAlreadyUsed},
		{name: "police pass", game: night, action: nightAct("po", ActionPoliceInvestigate, "")},
		{name: "target required", game: night, action: nightAct("m1", ActionMafiaKill, ""), want: ReasonTargetRequired},
		{name: "unknown target", game: night, action: nightAct("m1", ActionMafiaKill, "nobody"), want: ReasonInvalidTarget},
		{name: "moderator target", game: night, action: nightAct("d", ActionDoctorProtect, "g"), want: ReasonInvalidTarget},
		{name: "dead target", game: night, ps: kill(table(), "c1"), action: nightAct("m1", ActionMafiaKill, "c1"), want: ReasonTargetNotAlive},
		{name: "mafia self", game: night, action: nightAct("m1", ActionMafiaKill, "m1"), want: ReasonCannotTargetSelf},
		{name: "police self", game: night, action: nightAct("po", ActionPoliceInvestigate, "po"), want: ReasonCannotTargetSelf},
		{name: "terrorist self", game: night, action: nightAct("te", ActionTerroristBomb, "te"), want: ReasonCannotTargetSelf},
		{name: "doctor self once", game: night, action: nightAct("d", ActionDoctorProtect, "d")},
		{name: "round start behaves like night", game: Game{Phase: PhaseRoundStart, CurrentRound: 2},
			action: Action{PlayerID: "m1", Type: ActionMafiaKill, TargetID: "c1", Phase: PhaseRoundStart, RoundNumber: 2}},

		{name: "vote", game: voting, action: vote("c1", "m1")},
		{name: "vote in night", game: night, action: Action{PlayerID: "c1", Type: ActionVote, TargetID: "m1", Phase: PhaseNight}, want: ReasonWrongActionForRole},
		{name: "night action in voting", game: voting, action: Action{PlayerID: "m1", Type: ActionMafiaKill, TargetID: "c1", Phase: PhaseVoting}, want: ReasonWrongActionForRole},
		{name: "moderator votes", game: voting, action: vote("g", "m1"), want: ReasonWrongActionForRole},
		{name: "already voted", game: voting, action: vote("c1", "m2"), prior: []Action{vote("c1", "m1")}, want: ReasonAlreadyVoted},
		{name: "missing vote target", game: voting, action: vote("c1", ""), want: ReasonInvalidVoteTarget},
		{name: "unknown vote target", game: voting, action: vote("c1", "nobody"), want: ReasonInvalidVoteTarget},
		{name: "vote out moderator", game: voting, action: vote("c1", "g"), want: ReasonCannotVoteOutModerator},
		{name: "vote dead", game: voting, ps: kill(table(), "m2"), action: vote("c1", "m2"), want: ReasonTargetNotAlive},
		{name: "vote self allowed", game: voting, action: vote("c1", "c1")},
	}

	for _, c := range cases {
		ps := c.ps
		if ps == nil {
			ps = table()
		}
		err := Validate(c.action, participant(ps, c.action.PlayerID), c.game, ps, c.prior)
		if c.want == "" {
			if err != nil {
				t.Errorf("%s: expected accept, got %v", c.name, err)
			}
			continue
		}
		if got, _ := ReasonOf(err); got != c.want {
			t.Errorf("%s: got %v want %s", c.name, err, c.want)
		}
	}
}

func TestValidate_DoctorSelfProtectOnce(t *testing.T) {
	ps := table()
	ps[3].SelfProtected = true
	game := Game{Phase: PhaseNight, CurrentRound: 3}
	doctor := participant(ps, "d")

	self := Action{PlayerID: "d", Type: ActionDoctorProtect, TargetID: "d", Phase: PhaseNight, RoundNumber: 3}
	if got, _ := ReasonOf(Validate(self, doctor, game, ps, nil)); got != ReasonSelfProtectLimitExceeded {
		t.Errorf("second self protect: got %s", got)
	}
	other := Action{PlayerID: "d", Type: ActionDoctorProtect, TargetID: "c1", Phase: PhaseNight, RoundNumber: 3}
	if err := Validate(other, doctor, game, ps, nil); err != nil {
		t.Errorf("protecting others must stay allowed: %v", err)
	}
}

func TestValidate_VoteModeratorAlwaysRejected(t *testing.T) {
	ps := table()
	for round := 1; round <= 4; round++ {
		for _, alive := range []bool{true, false} {
			ps[0].IsAlive = alive
			game := Game{Phase: PhaseVoting, CurrentRound: round}
			for _, voter := range []string{"m1", "d", "po", "te", "c1"} {
				a := Action{PlayerID: voter, Type: ActionVote, TargetID: "g", Phase: PhaseVoting, RoundNumber: round}
				if got, _ := ReasonOf(Validate(a, participant(ps, voter), game, ps, nil)); got != ReasonCannotVoteOutModerator {
					t.Errorf("round %d voter %s moderator alive=%v: got %s", round, voter, alive, got)
				}
			}
		}
	}
}

func TestValidate_DoesNotMutate(t *testing.T) {
	ps := table()
	prior := []Action{{PlayerID: "c1", Type: ActionVote, TargetID: "m1", Phase: PhaseVoting, RoundNumber: 1, Confirmed: true}}
	a := Action{PlayerID: "c1", Type: ActionVote, TargetID: "m2", Phase: PhaseVoting, RoundNumber: 1}
	_ = Validate(a, participant(ps, "c1"), Game{Phase: PhaseVoting, CurrentRound: 1}, ps, prior)
	if len(prior) != 1 || prior[0].TargetID != "m1" {
		t.Errorf("prior mutated: %+v", prior)
	}
	for _, p := range ps {
		if !p.IsAlive {
			t.Errorf("participant %s mutated", p.ID)
		}
	}
}
