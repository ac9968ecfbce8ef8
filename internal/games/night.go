package games

// Investigation is the private result of one police investigation.
type Investigation struct {
	Investigator string `json:"investigator"`
	Target       string `json:"target"`
	IsMafia      bool   `json:"is_mafia"`
}

// Bomb records a terrorist detonation.
type Bomb struct {
	Terrorist string `json:"terrorist"`
	Target    string `json:"target"`
}

// NightResult is the outcome of one night. All id lists are deduplicated and sorted.
// Saved lists kill targets a protection turned away.
type NightResult struct {
	Deaths         []string        `json:"deaths"`
	Protections    []string        `json:"protections"`
	Saved          []string        `json:"saved,omitempty"`
	Investigations []Investigation `json:"investigations"`
	Bombs          []Bomb          `json:"bombs,omitempty"`
	// SelfProtected lists doctors who protected themselves tonight.
	SelfProtected []string `json:"self_protected,omitempty"`
	// TerroristsUsed lists terrorists whose bomb went off tonight.
	TerroristsUsed []string `json:"terrorists_used,omitempty"`
}

// ResolveNight computes deaths, protections and investigation results from the confirmed
// night actions of one round. Unconfirmed and non-night actions are ignored.
//
// Order matters: bombs go off first and cannot be blocked, then protections are collected,
// then kills land on anyone not protected, then investigations are answered.
func ResolveNight(actions []Action, participants []Participant) NightResult {
	var bombs, protects, kills, investigations []Action
	for _, a := range actions {
		if !a.Confirmed || a.Phase.Effective() != PhaseNight {
			continue
		}
		switch a.Type {
		case ActionTerroristBomb:
			bombs = append(bombs, a)
		case ActionDoctorProtect:
			protects = append(protects, a)
		case ActionMafiaKill:
			kills = append(kills, a)
		case ActionPoliceInvestigate:
			investigations = append(investigations, a)
		}
	}

	res := NightResult{
		Deaths:         []string{},
		Protections:    []string{},
		Investigations: []Investigation{},
	}
	dead := make(map[string]bool)
	used := make(map[string]bool)
	for _, b := range bombs {
		if b.TargetID == "" {
			continue
		}
		dead[b.PlayerID] = true
		dead[b.TargetID] = true
		used[b.PlayerID] = true
		res.Bombs = append(res.Bombs, Bomb{Terrorist: b.PlayerID, Target: b.TargetID})
	}

	protected := make(map[string]bool)
	selfProtected := make(map[string]bool)
	for _, p := range protects {
		if p.TargetID == "" {
			continue
		}
		protected[p.TargetID] = true
		if p.TargetID == p.PlayerID {
			selfProtected[p.PlayerID] = true
		}
	}

	saved := make(map[string]bool)
	for _, k := range kills {
		if k.TargetID == "" || dead[k.TargetID] {
			continue
		}
		if protected[k.TargetID] {
			saved[k.TargetID] = true
			continue
		}
		dead[k.TargetID] = true
	}

	for _, inv := range investigations {
		if inv.TargetID == "" {
			continue
		}
		target, ok := findParticipant(participants, inv.TargetID)
		if !ok {
			continue
		}
		res.Investigations = append(res.Investigations, Investigation{
			Investigator: inv.PlayerID,
			Target:       target.ID,
			IsMafia:      TeamOf(target.Role) == TeamMafia,
		})
	}

	res.Deaths = sortedKeys(dead)
	res.Protections = sortedKeys(protected)
	if len(saved) > 0 {
		res.Saved = sortedKeys(saved)
	}
	if len(selfProtected) > 0 {
		res.SelfProtected = sortedKeys(selfProtected)
	}
	if len(used) > 0 {
		res.TerroristsUsed = sortedKeys(used)
	}
	return res
}
