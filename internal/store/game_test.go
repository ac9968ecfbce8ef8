package store

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/vntrieu/mafia/internal/games"
)

func startedRoom(t *testing.T) (*GameStore, *games.Engine, *games.Snapshot) {
	t.Helper()
	pool := SetupTestDB(t)
	t.Cleanup(pool.Close)

	rooms := NewRoomStore(pool)
	code, ids := seedRoom(t, rooms, 8)
	gs := NewGameStore(pool)
	engine := games.NewEngine(gs, games.WithRand(rand.New(rand.NewSource(3))))
	res, err := engine.StartGame(context.Background(), code, ids[0])
	if err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}
	return gs, engine, res.Snapshot
}

func firstWithRole(s *games.Snapshot, role games.Role) games.Participant {
	for _, p := range s.Participants {
		if p.Role == role {
			return p
		}
	}
	return games.Participant{}
}

func TestLoadSnapshot(t *testing.T) {
	gs, _, started := startedRoom(t)
	ctx := context.Background()

	snap, err := gs.LoadSnapshot(ctx, started.Game.ID)
	if err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	if snap.Game.Phase != games.PhaseNight || snap.Game.CurrentRound != 1 || snap.Game.StartedAt == nil {
		t.Errorf("unexpected game: %+v", snap.Game)
	}
	if len(snap.Participants) != 8 {
		t.Fatalf("expected 8 participants, got %d", len(snap.Participants))
	}
	for _, p := range snap.Participants {
		if !p.Role.Valid() || !p.IsAlive {
			t.Errorf("participant after start: %+v", p)
		}
	}

	missing, err := gs.LoadSnapshot(ctx, "NOPE00")
	if err != nil || missing != nil {
		t.Errorf("unknown game should be (nil, nil), got %v, %v", missing, err)
	}
}

func TestInsertAction_UniquePerSlot(t *testing.T) {
	gs, _, snap := startedRoom(t)
	ctx := context.Background()
	mafia := firstWithRole(snap, games.RoleMafia)
	citizen := firstWithRole(snap, games.RoleCitizen)

	a := games.Action{PlayerID: mafia.ID, Type: games.ActionMafiaKill, TargetID: citizen.ID, Phase: games.PhaseNight, RoundNumber: 1}
	saved, err := gs.InsertAction(ctx, snap.Game.ID, a)
	if err != nil {
		t.Fatalf("InsertAction failed: %v", err)
	}
	if saved.ID == "" || saved.Confirmed || saved.TargetID != citizen.ID {
		t.Errorf("unexpected saved action: %+v", saved)
	}

	_, err = gs.InsertAction(ctx, snap.Game.ID, a)
	if reason, _ := games.ReasonOf(err); reason != games.ReasonAlreadyActed {
		t.Errorf("expected AlreadyActed, got %v", err)
	}
}

func TestInsertAction_ConcurrentDuplicates(t *testing.T) {
	gs, _, snap := startedRoom(t)
	ctx := context.Background()
	doctor := firstWithRole(snap, games.RoleDoctor)
	a := games.Action{PlayerID: doctor.ID, Type: games.ActionDoctorProtect, TargetID: doctor.ID, Phase: games.PhaseNight, RoundNumber: 1}

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := gs.InsertAction(ctx, snap.Game.ID, a)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
		} else if reason, _ := games.ReasonOf(err); reason != games.ReasonAlreadyActed {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 {
		t.Errorf("expected exactly one insert to win, got %d", ok)
	}
}

func TestReplaceVote(t *testing.T) {
	gs, _, snap := startedRoom(t)
	ctx := context.Background()
	if _, err := gs.pool.Exec(ctx, `UPDATE games SET phase = 'voting' WHERE id = $1`, snap.Game.ID); err != nil {
		t.Fatal(err)
	}
	voter := firstWithRole(snap, games.RoleCitizen)
	mafia := firstWithRole(snap, games.RoleMafia)
	police := firstWithRole(snap, games.RolePolice)

	vote := games.Action{PlayerID: voter.ID, Type: games.ActionVote, TargetID: mafia.ID, Phase: games.PhaseVoting, RoundNumber: 1, Confirmed: true}
	if _, err := gs.ReplaceVote(ctx, snap.Game.ID, vote); err != nil {
		t.Fatalf("first vote: %v", err)
	}
	vote.TargetID = police.ID
	if _, err := gs.ReplaceVote(ctx, snap.Game.ID, vote); err != nil {
		t.Fatalf("replacement vote: %v", err)
	}

	after, err := gs.LoadSnapshot(ctx, snap.Game.ID)
	if err != nil {
		t.Fatal(err)
	}
	votes := 0
	for _, a := range after.Actions {
		if a.PlayerID == voter.ID && a.Type == games.ActionVote {
			votes++
			if a.TargetID != police.ID || !a.Confirmed {
				t.Errorf("stored vote: %+v", a)
			}
		}
	}
	if votes != 1 {
		t.Errorf("expected one vote, got %d", votes)
	}
}

func TestConfirmAction(t *testing.T) {
	gs, _, snap := startedRoom(t)
	ctx := context.Background()
	police := firstWithRole(snap, games.RolePolice)
	saved, err := gs.InsertAction(ctx, snap.Game.ID, games.Action{
		PlayerID: police.ID, Type: games.ActionPoliceInvestigate, Phase: games.PhaseNight, RoundNumber: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if saved.TargetID != "" {
		t.Errorf("pass should have no target, got %q", saved.TargetID)
	}
	confirmed, err := gs.ConfirmAction(ctx, snap.Game.ID, saved.ID)
	if err != nil || !confirmed.Confirmed {
		t.Fatalf("ConfirmAction: %+v %v", confirmed, err)
	}
	if _, err := gs.ConfirmAction(ctx, "OTHER1", saved.ID); !errors.Is(err, games.ErrActionNotFound) {
		t.Errorf("action of another room: expected ErrActionNotFound, got %v", err)
	}
}

func TestApplyWriteSet_CompareAndSwap(t *testing.T) {
	gs, _, snap := startedRoom(t)
	ctx := context.Background()
	victim := firstWithRole(snap, games.RoleCitizen)
	alive := false

	w := games.WriteSet{
		ExpectedPhase: games.PhaseNight,
		ExpectedRound: 1,
		Game:          games.GameUpdate{Phase: games.PhaseDay, CurrentRound: 1, StartedAt: snap.Game.StartedAt},
		Participants:  []games.ParticipantUpdate{{ID: victim.ID, IsAlive: &alive}},
	}
	if err := gs.ApplyWriteSet(ctx, snap.Game.ID, w); err != nil {
		t.Fatalf("ApplyWriteSet failed: %v", err)
	}
	if err := gs.ApplyWriteSet(ctx, snap.Game.ID, w); !errors.Is(err, games.ErrStaleTransition) {
		t.Errorf("replayed transition: expected ErrStaleTransition, got %v", err)
	}
	if err := gs.ApplyWriteSet(ctx, "NOPE00", w); !errors.Is(err, games.ErrGameNotFound) {
		t.Errorf("unknown game: expected ErrGameNotFound, got %v", err)
	}

	after, err := gs.LoadSnapshot(ctx, snap.Game.ID)
	if err != nil {
		t.Fatal(err)
	}
	if after.Game.Phase != games.PhaseDay {
		t.Errorf("expected day, got %s", after.Game.Phase)
	}
	for _, p := range after.Participants {
		if p.ID == victim.ID && p.IsAlive {
			t.Error("victim should be dead")
		}
		if p.ID != victim.ID && !p.IsAlive {
			t.Errorf("%s should be untouched", p.ID)
		}
		if p.Role == games.RoleNone {
			t.Errorf("%s lost its role", p.ID)
		}
	}
}

// joinDuringStart lets a player join after the engine read the lobby but before it writes.
type joinDuringStart struct {
	*GameStore
	join func()
}

func (j joinDuringStart) ApplyWriteSet(ctx context.Context, gameID string, w games.WriteSet) error {
	j.join()
	return j.GameStore.ApplyWriteSet(ctx, gameID, w)
}

func TestStartGame_LateJoinIsStale(t *testing.T) {
	pool := SetupTestDB(t)
	t.Cleanup(pool.Close)
	ctx := context.Background()

	rooms := NewRoomStore(pool)
	code, ids := seedRoom(t, rooms, 8)
	gs := NewGameStore(pool)
	racing := joinDuringStart{GameStore: gs, join: func() {
		if _, err := rooms.JoinRoom(ctx, JoinRoomRequest{Code: code, DisplayName: "Late"}); err != nil {
			t.Errorf("late JoinRoom failed: %v", err)
		}
	}}

	_, err := games.NewEngine(racing).StartGame(ctx, code, ids[0])
	if !errors.Is(err, games.ErrStaleTransition) {
		t.Fatalf("expected ErrStaleTransition, got %v", err)
	}
	snap, err := gs.LoadSnapshot(ctx, code)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Game.Phase != games.PhaseLobby || len(snap.Participants) != 9 {
		t.Fatalf("room should still be a 9 player lobby: phase %s, %d players", snap.Game.Phase, len(snap.Participants))
	}
	for _, p := range snap.Participants {
		if p.Role != games.RoleNone {
			t.Errorf("%s was dealt %s by a rejected start", p.Name, p.Role)
		}
	}

	res, err := games.NewEngine(gs).StartGame(ctx, code, ids[0])
	if err != nil {
		t.Fatalf("retried start: %v", err)
	}
	for _, p := range res.Snapshot.Participants {
		if !p.Role.Valid() {
			t.Errorf("%s has no role after start", p.Name)
		}
	}
}

func TestSubmitAfterPhaseMoved(t *testing.T) {
	gs, _, snap := startedRoom(t)
	ctx := context.Background()
	mafia := firstWithRole(snap, games.RoleMafia)
	citizen := firstWithRole(snap, games.RoleCitizen)

	w := games.WriteSet{
		ExpectedPhase: games.PhaseNight,
		ExpectedRound: 1,
		Game:          games.GameUpdate{Phase: games.PhaseDay, CurrentRound: 1, StartedAt: snap.Game.StartedAt},
	}
	if err := gs.ApplyWriteSet(ctx, snap.Game.ID, w); err != nil {
		t.Fatalf("ApplyWriteSet failed: %v", err)
	}

	kill := games.Action{PlayerID: mafia.ID, Type: games.ActionMafiaKill, TargetID: citizen.ID, Phase: games.PhaseNight, RoundNumber: 1}
	if _, err := gs.InsertAction(ctx, snap.Game.ID, kill); !errors.Is(err, games.Rejection(games.ReasonPhaseMismatch)) {
		t.Errorf("night action in day: expected PhaseMismatch, got %v", err)
	}
	vote := games.Action{PlayerID: citizen.ID, Type: games.ActionVote, TargetID: mafia.ID, Phase: games.PhaseVoting, RoundNumber: 1, Confirmed: true}
	if _, err := gs.ReplaceVote(ctx, snap.Game.ID, vote); !errors.Is(err, games.Rejection(games.ReasonPhaseMismatch)) {
		t.Errorf("vote in day: expected PhaseMismatch, got %v", err)
	}
	if _, err := gs.InsertAction(ctx, "NOPE00", kill); !errors.Is(err, games.ErrGameNotFound) {
		t.Errorf("unknown game: expected ErrGameNotFound, got %v", err)
	}

	after, err := gs.LoadSnapshot(ctx, snap.Game.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(after.Actions) != 0 {
		t.Errorf("nothing should be stored, got %+v", after.Actions)
	}
}

func TestEngineOverPostgres_DoubleAdvance(t *testing.T) {
	_, engine, snap := startedRoom(t)
	ctx := context.Background()
	mod, _ := snap.Moderator()

	const n = 4
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.AdvancePhase(ctx, snap.Game.ID, mod.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
		} else if !errors.Is(err, games.ErrStaleTransition) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok < 1 {
		t.Fatal("at least one advance must win")
	}
	after, err := engine.Reload(ctx, snap.Game.ID)
	if err != nil {
		t.Fatal(err)
	}
	// Every winner saw a distinct phase, so the game moved exactly ok steps from night.
	want := []games.Phase{games.PhaseDay, games.PhaseVoting, games.PhaseNight, games.PhaseDay}[ok-1]
	if after.Game.Phase != want {
		t.Errorf("after %d successful advances expected %s, got %s", ok, want, after.Game.Phase)
	}
}

func TestGameEventStore(t *testing.T) {
	pool := SetupTestDB(t)
	defer pool.Close()
	rooms := NewRoomStore(pool)
	code, ids := seedRoom(t, rooms, 2)
	events := NewGameEventStore(pool)
	ctx := context.Background()

	err := events.Append(ctx, code, ids[0], []games.BroadcastEvent{
		{Event: games.EventGameStarted, Payload: map[string]interface{}{"round": 1}},
		{Event: games.EventInvestigation, Payload: map[string]interface{}{"is_mafia": true}, Recipients: []string{ids[1]}},
	})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	all, err := events.List(ctx, code, 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 2 || all[0].Type != games.EventGameStarted || all[1].Type != games.EventInvestigation {
		t.Fatalf("unexpected events: %+v", all)
	}
	if all[0].PlayerID == nil || *all[0].PlayerID != ids[0] {
		t.Errorf("actor: %v", all[0].PlayerID)
	}
	if len(all[1].Recipients) != 1 || all[1].Recipients[0] != ids[1] {
		t.Errorf("recipients: %v", all[1].Recipients)
	}
	if all[1].Payload["is_mafia"] != true {
		t.Errorf("payload: %v", all[1].Payload)
	}

	last, err := events.List(ctx, code, 1)
	if err != nil || len(last) != 1 || last[0].Type != games.EventInvestigation {
		t.Errorf("limit 1: %+v %v", last, err)
	}
}
