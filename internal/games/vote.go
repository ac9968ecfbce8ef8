package games

// VoteResult is the outcome of one voting phase.
type VoteResult struct {
	Eliminated []string       `json:"eliminated"`
	Tie        bool           `json:"tie"`
	VoteCounts map[string]int `json:"vote_counts"`
	MaxVotes   int            `json:"max_votes"`
}

// ResolveVotes tallies confirmed votes by target and eliminates every target that reached
// the top tally. A tie at the top eliminates all tied players; no votes eliminates nobody.
func ResolveVotes(votes []Action) VoteResult {
	counts := make(map[string]int)
	for _, v := range votes {
		if v.Type != ActionVote || !v.Confirmed || v.TargetID == "" {
			continue
		}
		counts[v.TargetID]++
	}

	maxVotes := 0
	for _, c := range counts {
		if c > maxVotes {
			maxVotes = c
		}
	}
	top := make(map[string]bool)
	if maxVotes > 0 {
		for id, c := range counts {
			if c == maxVotes {
				top[id] = true
			}
		}
	}
	eliminated := sortedKeys(top)
	return VoteResult{
		Eliminated: eliminated,
		Tie:        len(eliminated) > 1,
		VoteCounts: counts,
		MaxVotes:   maxVotes,
	}
}
