package websocket

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vntrieu/mafia/internal/games"
	"github.com/vntrieu/mafia/internal/ratelimit"
)

// fakeCommands records calls and answers with canned results.
type fakeCommands struct {
	mu     sync.Mutex
	calls  []string
	last   games.ActionRequest
	snap   *games.Snapshot
	result *games.Result
	err    error
}

func (f *fakeCommands) record(call string) (*games.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.result, f.err
}

func (f *fakeCommands) Reload(ctx context.Context, gameID string) (*games.Snapshot, error) {
	if f.snap == nil {
		return nil, games.ErrGameNotFound
	}
	return f.snap, nil
}

func (f *fakeCommands) Submit(ctx context.Context, gameID, playerID string, req games.ActionRequest) (*games.Result, error) {
	f.mu.Lock()
	f.last = req
	f.mu.Unlock()
	return f.record("submit:" + playerID)
}

func (f *fakeCommands) Confirm(ctx context.Context, gameID, moderatorID, actionID string) (*games.Result, error) {
	return f.record("confirm:" + actionID)
}

func (f *fakeCommands) AdvancePhase(ctx context.Context, gameID, moderatorID string) (*games.Result, error) {
	return f.record("advance")
}

func (f *fakeCommands) StartGame(ctx context.Context, gameID, playerID string) (*games.Result, error) {
	return f.record("start")
}

func (f *fakeCommands) ResetToLobby(ctx context.Context, gameID, moderatorID string) (*games.Result, error) {
	return f.record("reset")
}

func (f *fakeCommands) RestartWithSameRoles(ctx context.Context, gameID, moderatorID string) (*games.Result, error) {
	return f.record("restart")
}

type fakeEventLog struct {
	mu     sync.Mutex
	events []games.BroadcastEvent
	actors []string
}

func (f *fakeEventLog) Append(ctx context.Context, roomCode, playerID string, events []games.BroadcastEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, events...)
	f.actors = append(f.actors, playerID)
	return nil
}

func TestHandleMessage_VotePublishesAndLogs(t *testing.T) {
	hub := startHub(t)
	cmds := &fakeCommands{result: &games.Result{
		Snapshot: roomSnapshot(),
		Events:   []games.BroadcastEvent{{Event: games.EventVoteRecorded, Payload: map[string]interface{}{"target_player_id": "m"}}},
	}}
	evlog := &fakeEventLog{}
	h := NewEventHandler(hub, cmds, evlog, nil)
	hub.SetEventHandler(h)

	voter := testClient(hub, "ABC234", "c")
	hub.register <- voter
	h.HandleMessage(context.Background(), voter, &ClientInMessage{
		Type:    ClientMessageTypeVote,
		Payload: map[string]interface{}{"target_player_id": "m"},
	})

	if cmds.last.Type != games.ActionVote || cmds.last.TargetID != "m" {
		t.Errorf("engine got %+v", cmds.last)
	}
	if env := recv(t, voter); env.Event != games.EventVoteRecorded {
		t.Errorf("expected vote_recorded, got %+v", env)
	}
	if env := recv(t, voter); env.Type != ServerTypeState {
		t.Errorf("expected state after events, got %+v", env)
	}
	if len(evlog.events) != 1 || evlog.actors[0] != "c" {
		t.Errorf("event log: %+v by %v", evlog.events, evlog.actors)
	}
}

func TestHandleMessage_Dispatch(t *testing.T) {
	hub := startHub(t)
	cmds := &fakeCommands{result: &games.Result{}}
	h := NewEventHandler(hub, cmds, nil, nil)
	client := testClient(hub, "ABC234", "g")
	hub.register <- client

	msgs := []*ClientInMessage{
		{Type: ClientMessageTypeAction, Payload: map[string]interface{}{"action_type": "mafia_kill", "target_player_id": "c"}},
		{Type: ClientMessageTypeConfirm, Payload: map[string]interface{}{"action_id": "a1"}},
		{Type: ClientMessageTypeAdvance},
		{Type: ClientMessageTypeStart},
		{Type: ClientMessageTypeReset},
		{Type: ClientMessageTypeRestart},
	}
	for _, m := range msgs {
		h.HandleMessage(context.Background(), client, m)
	}
	want := []string{"submit:g", "confirm:a1", "advance", "start", "reset", "restart"}
	if len(cmds.calls) != len(want) {
		t.Fatalf("calls = %v", cmds.calls)
	}
	for i := range want {
		if cmds.calls[i] != want[i] {
			t.Errorf("call %d = %q, want %q", i, cmds.calls[i], want[i])
		}
	}
}

func TestHandleMessage_RejectionGoesToSenderOnly(t *testing.T) {
	hub := startHub(t)
	cmds := &fakeCommands{err: games.Rejection(games.ReasonAlreadyVoted)}
	h := NewEventHandler(hub, cmds, nil, nil)
	sender, other := testClient(hub, "ABC234", "c"), testClient(hub, "ABC234", "m")
	hub.register <- sender
	hub.register <- other

	h.HandleMessage(context.Background(), sender, &ClientInMessage{Type: ClientMessageTypeVote, CorrelationID: "42"})
	env := recv(t, sender)
	if env.Type != ServerTypeError || env.Payload["reason"] != "AlreadyVoted" || env.CorrelationID != "42" {
		t.Errorf("unexpected envelope: %+v", env)
	}
	expectNothing(t, other)
}

func TestHandleMessage_InfrastructureErrorIsGeneric(t *testing.T) {
	hub := startHub(t)
	cmds := &fakeCommands{err: errors.New("connection refused")}
	h := NewEventHandler(hub, cmds, nil, nil)
	client := testClient(hub, "ABC234", "g")
	hub.register <- client

	h.HandleMessage(context.Background(), client, &ClientInMessage{Type: ClientMessageTypeAdvance})
	env := recv(t, client)
	if env.Payload["message"] != "internal error" {
		t.Errorf("internal details leaked: %+v", env.Payload)
	}
}

func TestHandleMessage_UnknownType(t *testing.T) {
	hub := startHub(t)
	cmds := &fakeCommands{}
	h := NewEventHandler(hub, cmds, nil, nil)
	client := testClient(hub, "ABC234", "g")
	hub.register <- client

	h.HandleMessage(context.Background(), client, &ClientInMessage{Type: "chat"})
	if env := recv(t, client); env.Type != ServerTypeError {
		t.Errorf("expected error, got %+v", env)
	}
	if len(cmds.calls) != 0 {
		t.Errorf("engine should not be called: %v", cmds.calls)
	}
}

func TestHandleMessage_SyncState(t *testing.T) {
	hub := startHub(t)
	cmds := &fakeCommands{snap: roomSnapshot()}
	h := NewEventHandler(hub, cmds, nil, nil)
	client := testClient(hub, "ABC234", "g")
	hub.register <- client

	h.HandleMessage(context.Background(), client, &ClientInMessage{Type: ClientMessageTypeSyncState})
	env := recv(t, client)
	if env.Type != ServerTypeState || env.View == nil || env.View.Gate == nil {
		t.Errorf("moderator state should include the gate: %+v", env)
	}
}

func TestHandleMessage_RateLimited(t *testing.T) {
	hub := startHub(t)
	cmds := &fakeCommands{result: &games.Result{}}
	h := NewEventHandler(hub, cmds, nil, ratelimit.NewInMemory(1, time.Minute))
	client := testClient(hub, "ABC234", "c")
	hub.register <- client

	h.HandleMessage(context.Background(), client, &ClientInMessage{Type: ClientMessageTypeVote})
	h.HandleMessage(context.Background(), client, &ClientInMessage{Type: ClientMessageTypeVote})
	if len(cmds.calls) != 1 {
		t.Errorf("second message should be limited, calls = %v", cmds.calls)
	}
	if env := recv(t, client); env.Type != ServerTypeError {
		t.Errorf("expected rate limit error, got %+v", env)
	}
}

func TestRefresh_PushesStateToRoom(t *testing.T) {
	hub := startHub(t)
	h := NewEventHandler(hub, &fakeCommands{snap: roomSnapshot()}, nil, nil)
	a, b := testClient(hub, "ABC234", "g"), testClient(hub, "ABC234", "c")
	hub.register <- a
	hub.register <- b

	h.Refresh(context.Background(), "ABC234")
	for _, c := range []*Client{a, b} {
		if env := recv(t, c); env.Type != ServerTypeState {
			t.Errorf("%s: expected state, got %+v", c.PlayerID, env)
		}
	}
}
