package ratelimit

import (
	"testing"
	"time"
)

// frozen returns a limiter whose clock only moves when the test advances it.
func frozen(limit int, window time.Duration) (*InMemory, func(time.Duration)) {
	lim := NewInMemory(limit, window)
	now := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)
	lim.nowFunc = func() time.Time { return now }
	return lim, func(d time.Duration) { now = now.Add(d) }
}

func TestNoop(t *testing.T) {
	var lim Limiter = Noop{}
	for i := 0; i < 50; i++ {
		if ok, retry := lim.Allow("room:ABC234"); !ok || retry != 0 {
			t.Fatalf("Noop.Allow = %v, %d", ok, retry)
		}
	}
}

func TestInMemory_Allow(t *testing.T) {
	cases := []struct {
		name  string
		limit int
		keys  []string
		want  []bool
	}{
		{"within limit", 3, []string{"p1", "p1", "p1"}, []bool{true, true, true}},
		{"over limit", 2, []string{"p1", "p1", "p1"}, []bool{true, true, false}},
		{"keys are independent", 1, []string{"p1", "p2", "p1"}, []bool{true, true, false}},
		{"zero limit disables", 0, []string{"p1", "p1", "p1"}, []bool{true, true, true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			lim, _ := frozen(tc.limit, time.Minute)
			for i, key := range tc.keys {
				ok, retry := lim.Allow(key)
				if ok != tc.want[i] {
					t.Fatalf("request %d (%s): allowed=%v, want %v", i+1, key, ok, tc.want[i])
				}
				if ok && retry != 0 {
					t.Errorf("request %d: allowed with retry %d", i+1, retry)
				}
				if !ok && retry <= 0 {
					t.Errorf("request %d: rejected without Retry-After", i+1)
				}
			}
		})
	}
}

func TestInMemory_RetryAfterCountsDown(t *testing.T) {
	lim, advance := frozen(1, time.Minute)
	lim.Allow("p1")
	advance(20 * time.Second)
	if _, retry := lim.Allow("p1"); retry != 40 {
		t.Errorf("retry after = %d, want 40", retry)
	}
}

func TestInMemory_WindowSlides(t *testing.T) {
	lim, advance := frozen(1, time.Minute)
	lim.Allow("p1")
	if ok, _ := lim.Allow("p1"); ok {
		t.Fatal("second request inside the window should be rejected")
	}
	advance(61 * time.Second)
	if ok, _ := lim.Allow("p1"); !ok {
		t.Error("request after the window should be allowed")
	}
}

func TestInMemory_Prune(t *testing.T) {
	lim, advance := frozen(5, time.Minute)
	lim.Allow("left-the-room")
	advance(30 * time.Second)
	lim.Allow("still-playing")
	advance(45 * time.Second)
	if remaining := lim.Prune(); remaining != 1 {
		t.Errorf("expected 1 key left, got %d", remaining)
	}
}
