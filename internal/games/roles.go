package games

import (
	"fmt"
	"math/rand"
)

// Role is a participant's secret role. The zero value means no role has been assigned yet.
type Role string

// Roles.
const (
	RoleNone      Role = ""
	RoleGod       Role = "god" // the moderator
	RoleMafia     Role = "mafia"
	RoleDoctor    Role = "doctor"
	RolePolice    Role = "police"
	RoleTerrorist Role = "terrorist"
	RoleCitizen   Role = "citizen"
)

// Team is the side a role plays for.
type Team string

// Teams. TeamNone is used as "no winner".
const (
	TeamNone    Team = ""
	TeamMafia   Team = "mafia"
	TeamCitizen Team = "citizen"
	TeamNeutral Team = "neutral"
)

// MinPlayers is the smallest room (moderator included) that can start a game.
const MinPlayers = 6

// mafiaShare is the share of the non-moderator population that plays Mafia, in percent.
const mafiaShare = 30

// Valid reports whether r is one of the catalog roles (RoleNone excluded).
func (r Role) Valid() bool {
	switch r {
	case RoleGod, RoleMafia, RoleDoctor, RolePolice, RoleTerrorist, RoleCitizen:
		return true
	}
	return false
}

// IsModerator reports whether r is the moderator role.
func (r Role) IsModerator() bool { return r == RoleGod }

// DisplayName returns the human-readable role name.
func (r Role) DisplayName() string {
	switch r {
	case RoleGod:
		return "God"
	case RoleMafia:
		return "Mafia"
	case RoleDoctor:
		return "Doctor"
	case RolePolice:
		return "Police"
	case RoleTerrorist:
		return "Terrorist"
	case RoleCitizen:
		return "Citizen"
	}
	return string(r)
}

// TeamOf returns the team identity of a role. The Terrorist is neutral here; the win
// evaluator still counts it on the non-Mafia side (see EvaluateWin).
func TeamOf(r Role) Team {
	switch r {
	case RoleMafia:
		return TeamMafia
	case RoleCitizen, RoleDoctor, RolePolice:
		return TeamCitizen
	default:
		return TeamNeutral
	}
}

// nightActions maps every role that acts at night to its single legal action.
var nightActions = map[Role]ActionType{
	RoleMafia:     ActionMafiaKill,
	RoleDoctor:    ActionDoctorProtect,
	RolePolice:    ActionPoliceInvestigate,
	RoleTerrorist: ActionTerroristBomb,
}

// NightActionFor returns the night action a role may take, if any.
func NightActionFor(r Role) (ActionType, bool) {
	a, ok := nightActions[r]
	return a, ok
}

// Distribution is the role multiset for a given room size.
type Distribution struct {
	God       int `json:"god"`
	Mafia     int `json:"mafia"`
	Doctor    int `json:"doctor"`
	Police    int `json:"police"`
	Terrorist int `json:"terrorist"`
	Citizen   int `json:"citizen"`
}

// Total returns the number of roles in the distribution.
func (d Distribution) Total() int {
	return d.God + d.Mafia + d.Doctor + d.Police + d.Terrorist + d.Citizen
}

// Roles expands the distribution into a role list, moderator excluded.
func (d Distribution) Roles() []Role {
	out := make([]Role, 0, d.Total()-d.God)
	for i := 0; i < d.Mafia; i++ {
		out = append(out, RoleMafia)
	}
	for i := 0; i < d.Citizen; i++ {
		out = append(out, RoleCitizen)
	}
	for i := 0; i < d.Doctor; i++ {
		out = append(out, RoleDoctor)
	}
	for i := 0; i < d.Police; i++ {
		out = append(out, RolePolice)
	}
	for i := 0; i < d.Terrorist; i++ {
		out = append(out, RoleTerrorist)
	}
	return out
}

// Distribute computes the role multiset for n participants (moderator included).
// Mafia is 30% of the non-moderator population rounded down, at least one; plain
// citizens take whatever the four reserved roles and Mafia leave over.
func Distribute(n int) (Distribution, error) {
	if n < MinPlayers {
		return Distribution{}, reject(ReasonInsufficientPlayers, fmt.Sprintf("need at least %d players to start, have %d", MinPlayers, n))
	}
	mafia := (n - 1) * mafiaShare / 100
	if mafia < 1 {
		mafia = 1
	}
	return Distribution{
		God:       1,
		Mafia:     mafia,
		Doctor:    1,
		Police:    1,
		Terrorist: 1,
		Citizen:   n - 4 - mafia,
	}, nil
}

// AssignRoles picks a moderator uniformly at random and deals the remaining roles to the
// other ids by a uniformly random permutation. rng may be nil to use the global source.
func AssignRoles(ids []string, rng *rand.Rand) (map[string]Role, error) {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" {
			return nil, reject(ReasonInvalidPlayerID, "player id must not be empty")
		}
		if seen[id] {
			return nil, reject(ReasonInvalidPlayerID, fmt.Sprintf("duplicate player id %q", id))
		}
		seen[id] = true
	}
	dist, err := Distribute(len(ids))
	if err != nil {
		return nil, err
	}
	intn, shuffle := rand.Intn, rand.Shuffle
	if rng != nil {
		intn, shuffle = rng.Intn, rng.Shuffle
	}

	godIndex := intn(len(ids))
	roles := dist.Roles()
	shuffle(len(roles), func(i, j int) { roles[i], roles[j] = roles[j], roles[i] })

	out := make(map[string]Role, len(ids))
	next := 0
	for i, id := range ids {
		if i == godIndex {
			out[id] = RoleGod
			continue
		}
		out[id] = roles[next]
		next++
	}
	return out, nil
}
