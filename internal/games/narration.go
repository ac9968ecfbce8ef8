package games

import (
	"fmt"
	"strings"
)

// NarrateNight renders a night's outcome as lines the moderator can read aloud. after is
// the game state with the night applied; it supplies names and the status block.
func NarrateNight(night NightResult, after *Snapshot) []string {
	var lines []string
	for _, id := range night.Saved {
		lines = append(lines, fmt.Sprintf("The Doctor protected %s from the Mafia's attack.", nameOf(after, id)))
	}

	bombed := make(map[string]bool)
	for _, b := range night.Bombs {
		bombed[b.Terrorist] = true
		bombed[b.Target] = true
	}
	for _, id := range night.Deaths {
		if !bombed[id] {
			lines = append(lines, fmt.Sprintf("The Mafia killed %s.", nameOf(after, id)))
		}
	}
	for _, b := range night.Bombs {
		lines = append(lines, fmt.Sprintf("%s detonated a bomb, eliminating themselves and %s.",
			nameOf(after, b.Terrorist), nameOf(after, b.Target)))
	}
	for _, inv := range night.Investigations {
		verdict := "not Mafia"
		if inv.IsMafia {
			verdict = "Mafia"
		}
		lines = append(lines, fmt.Sprintf("%s investigated %s: %s.",
			nameOf(after, inv.Investigator), nameOf(after, inv.Target), verdict))
	}
	if len(night.Deaths) == 0 {
		lines = append(lines, "Nobody died tonight.")
	}
	return append(lines, statusLines(after)...)
}

// NarrateVotes renders a voting result, revealing the roles of the eliminated.
func NarrateVotes(votes VoteResult, after *Snapshot) []string {
	if len(votes.VoteCounts) == 0 {
		return append([]string{"No one was eliminated (no votes cast)."}, statusLines(after)...)
	}

	lines := []string{"Voting results:"}
	for _, id := range sortedKeys(keysOf(votes.VoteCounts)) {
		lines = append(lines, fmt.Sprintf("  %s: %d vote(s)", nameOf(after, id), votes.VoteCounts[id]))
	}
	if votes.Tie {
		lines = append(lines, fmt.Sprintf("Multiple players tied with %d vote(s). All tied players are eliminated.", votes.MaxVotes))
	}
	for _, id := range votes.Eliminated {
		role := RoleNone
		if p, ok := after.Participant(id); ok {
			role = p.Role
		}
		lines = append(lines, fmt.Sprintf("%s was eliminated by vote. Role: %s", nameOf(after, id), role.DisplayName()))
	}
	return append(lines, statusLines(after)...)
}

func statusLines(s *Snapshot) []string {
	var alive, dead []string
	for _, p := range s.Participants {
		if p.Role.IsModerator() {
			continue
		}
		if p.IsAlive {
			alive = append(alive, p.Name)
		} else {
			dead = append(dead, p.Name)
		}
	}
	lines := []string{"", "Current status:"}
	if len(alive) == 0 {
		lines = append(lines, "Alive: None")
	} else {
		lines = append(lines, "Alive: "+strings.Join(alive, ", "))
	}
	if len(dead) > 0 {
		lines = append(lines, "Dead: "+strings.Join(dead, ", "))
	}
	return lines
}

func nameOf(s *Snapshot, id string) string {
	if p, ok := s.Participant(id); ok && p.Name != "" {
		return p.Name
	}
	return id
}

func keysOf(m map[string]int) map[string]bool {
	set := make(map[string]bool, len(m))
	for k := range m {
		set[k] = true
	}
	return set
}
