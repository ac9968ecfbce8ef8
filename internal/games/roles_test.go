package games

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"
)

func playerIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("p%d", i+1)
	}
	return ids
}

func TestDistribute_Counts(t *testing.T) {
	for n := MinPlayers; n <= 30; n++ {
		d, err := Distribute(n)
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if d.Total() != n {
			t.Errorf("n=%d: total %d", n, d.Total())
		}
		if d.God != 1 || d.Doctor != 1 || d.Police != 1 || d.Terrorist != 1 {
			t.Errorf("n=%d: special roles %+v", n, d)
		}
		if d.Mafia < 1 {
			t.Errorf("n=%d: mafia %d", n, d.Mafia)
		}
		if d.Mafia+d.Citizen != n-4 {
			t.Errorf("n=%d: mafia+citizen = %d want %d", n, d.Mafia+d.Citizen, n-4)
		}
	}
}

func TestDistribute_MafiaShare(t *testing.T) {
	for n, want := range map[int]int{6: 1, 7: 1, 8: 2, 11: 3, 21: 6} {
		d, err := Distribute(n)
		if err != nil {
			t.Fatal(err)
		}
		if d.Mafia != want {
			t.Errorf("n=%d: mafia %d want %d", n, d.Mafia, want)
		}
	}
}

func TestDistribute_InsufficientPlayers(t *testing.T) {
	for n := 0; n < MinPlayers; n++ {
		_, err := Distribute(n)
		if !errors.Is(err, Rejection(ReasonInsufficientPlayers)) {
			t.Errorf("n=%d: expected InsufficientPlayers, got %v", n, err)
		}
	}
}

func TestAssignRoles_Counts(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for n := MinPlayers; n <= 20; n++ {
		roles, err := AssignRoles(playerIDs(n), rng)
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if len(roles) != n {
			t.Fatalf("n=%d: assigned %d", n, len(roles))
		}
		count := make(map[Role]int)
		for _, r := range roles {
			count[r]++
		}
		for _, r := range []Role{RoleGod, RoleDoctor, RolePolice, RoleTerrorist} {
			if count[r] != 1 {
				t.Errorf("n=%d: %s count %d", n, r, count[r])
			}
		}
		if count[RoleMafia] < 1 || count[RoleMafia]+count[RoleCitizen] != n-4 {
			t.Errorf("n=%d: mafia %d citizen %d", n, count[RoleMafia], count[RoleCitizen])
		}
	}
}

func TestAssignRoles_InsufficientPlayers(t *testing.T) {
	_, err := AssignRoles(playerIDs(5), nil)
	if reason, _ := ReasonOf(err); reason != ReasonInsufficientPlayers {
		t.Errorf("expected InsufficientPlayers, got %v", err)
	}
}

func TestAssignRoles_InvalidIDs(t *testing.T) {
	ids := playerIDs(6)
	ids[3] = ""
	if reason, _ := ReasonOf(mustErr(AssignRoles(ids, nil))); reason != ReasonInvalidPlayerID {
		t.Errorf("empty id: expected InvalidPlayerId, got %s", reason)
	}
	ids = playerIDs(6)
	ids[5] = ids[0]
	if reason, _ := ReasonOf(mustErr(AssignRoles(ids, nil))); reason != ReasonInvalidPlayerID {
		t.Errorf("duplicate id: expected InvalidPlayerId, got %s", reason)
	}
}

func mustErr(_ map[string]Role, err error) error { return err }

func TestAssignRoles_NotDeterministic(t *testing.T) {
	ids := playerIDs(10)
	seen := make(map[string]bool)
	moderators := make(map[string]bool)
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		roles, err := AssignRoles(ids, rng)
		if err != nil {
			t.Fatal(err)
		}
		var b strings.Builder
		for _, id := range ids {
			b.WriteString(string(roles[id]))
			b.WriteByte(',')
			if roles[id] == RoleGod {
				moderators[id] = true
			}
		}
		seen[b.String()] = true
	}
	if len(seen) < 40 {
		t.Errorf("expected mostly distinct assignments, got %d distinct of 50", len(seen))
	}
	if len(moderators) < 5 {
		t.Errorf("moderator should move around, only %d distinct moderators", len(moderators))
	}
}

func TestAssignRoles_ModeratorUniform(t *testing.T) {
	const trials = 8000
	ids := playerIDs(8)
	counts := make(map[string]int, len(ids))
	rng := rand.New(rand.NewSource(99))
	for i := 0; i < trials; i++ {
		roles, err := AssignRoles(ids, rng)
		if err != nil {
			t.Fatal(err)
		}
		for _, id := range ids {
			if roles[id] == RoleGod {
				counts[id]++
			}
		}
	}
	// Expected 1000 each with a standard deviation near 30.
	want := trials / len(ids)
	for _, id := range ids {
		if c := counts[id]; c < want*8/10 || c > want*12/10 {
			t.Errorf("%s moderated %d of %d games, want about %d", id, c, trials, want)
		}
	}
}

func TestNightActionFor(t *testing.T) {
	cases := map[Role]ActionType{
		RoleMafia:     ActionMafiaKill,
		RoleDoctor:    ActionDoctorProtect,
		RolePolice:    ActionPoliceInvestigate,
		RoleTerrorist: ActionTerroristBomb,
	}
	for role, want := range cases {
		got, ok := NightActionFor(role)
		if !ok || got != want {
			t.Errorf("%s: got %s,%v want %s", role, got, ok, want)
		}
	}
	for _, role := range []Role{RoleGod, RoleCitizen, RoleNone} {
		if _, ok := NightActionFor(role); ok {
			t.Errorf("%s should have no night action", role)
		}
	}
}

func TestTeamOf(t *testing.T) {
	cases := map[Role]Team{
		RoleMafia:     TeamMafia,
		RoleCitizen:   TeamCitizen,
		RoleDoctor:    TeamCitizen,
		RolePolice:    TeamCitizen,
		RoleTerrorist: TeamNeutral,
		RoleGod:       TeamNeutral,
	}
	for role, want := range cases {
		if got := TeamOf(role); got != want {
			t.Errorf("%s: got %s want %s", role, got, want)
		}
	}
}

func TestNext(t *testing.T) {
	cases := []struct {
		from      Phase
		to        Phase
		increment bool
	}{
		{PhaseLobby, PhaseNight, false},
		{PhaseRoundStart, PhaseNight, false},
		{PhaseNight, PhaseDay, false},
		{PhaseDay, PhaseVoting, false},
		{PhaseVoting, PhaseNight, true},
	}
	for _, c := range cases {
		to, inc, ok := Next(c.from)
		if !ok || to != c.to || inc != c.increment {
			t.Errorf("Next(%s) = %s,%v,%v want %s,%v", c.from, to, inc, ok, c.to, c.increment)
		}
	}
	if _, _, ok := Next(PhaseEnded); ok {
		t.Error("ended must have no successor")
	}
}

func TestIsAllowed(t *testing.T) {
	if !IsAllowed(PhaseNight, ActionMafiaKill) || !IsAllowed(PhaseRoundStart, ActionDoctorProtect) {
		t.Error("night actions should be allowed at night")
	}
	if IsAllowed(PhaseNight, ActionVote) || !IsAllowed(PhaseVoting, ActionVote) {
		t.Error("votes belong to voting only")
	}
	for _, p := range []Phase{PhaseLobby, PhaseDay, PhaseEnded} {
		if len(AllowedActions(p)) != 0 {
			t.Errorf("%s should admit nothing", p)
		}
	}
}
