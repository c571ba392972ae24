package redis

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errRefused = errors.New("dial tcp: connection refused")

// testBreaker returns a breaker on a manual clock.
func testBreaker(maxFailures int, cooldown time.Duration) (*CircuitBreaker, *time.Time) {
	clock := time.Date(2024, 3, 4, 9, 15, 0, 0, time.UTC)
	cb := NewCircuitBreaker(maxFailures, cooldown)
	cb.now = func() time.Time { return clock }
	return cb, &clock
}

func fail(context.Context) error { return errRefused }
func ok(context.Context) error   { return nil }

func TestCircuitBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	cb, _ := testBreaker(3, 30*time.Second)
	ctx := context.Background()

	var transitions []State
	cb.OnStateChange = func(from, to State) { transitions = append(transitions, to) }

	// A success in between resets the count.
	cb.Execute(ctx, fail)
	cb.Execute(ctx, fail)
	cb.Execute(ctx, ok)
	cb.Execute(ctx, fail)
	if cb.CurrentState() != StateClosed {
		t.Fatalf("state = %v, want closed", cb.CurrentState())
	}

	cb.Execute(ctx, fail)
	if err := cb.Execute(ctx, fail); !errors.Is(err, errRefused) {
		t.Fatalf("tripping call err = %v, want the redis error", err)
	}
	if cb.CurrentState() != StateOpen {
		t.Fatalf("state = %v, want open", cb.CurrentState())
	}

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Errorf("open breaker: err = %v, called = %v", err, called)
	}
	if len(transitions) != 1 || transitions[0] != StateOpen {
		t.Errorf("transitions = %v, want [open]", transitions)
	}
}

func TestCircuitBreaker_TrialAfterCooldown(t *testing.T) {
	tests := []struct {
		name  string
		trial func(context.Context) error
		want  State
	}{
		{"trial succeeds", ok, StateClosed},
		{"trial fails", fail, StateOpen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb, clock := testBreaker(1, 30*time.Second)
			ctx := context.Background()
			cb.Execute(ctx, fail)

			*clock = clock.Add(29 * time.Second)
			if err := cb.Execute(ctx, ok); !errors.Is(err, ErrCircuitOpen) {
				t.Fatalf("before cooldown: err = %v", err)
			}

			*clock = clock.Add(2 * time.Second)
			cb.Execute(ctx, tt.trial)
			if got := cb.CurrentState(); got != tt.want {
				t.Errorf("state after trial = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCircuitBreaker_SingleTrialCall(t *testing.T) {
	cb, clock := testBreaker(1, time.Second)
	ctx := context.Background()
	cb.Execute(ctx, fail)
	*clock = clock.Add(2 * time.Second)

	release := make(chan struct{})
	done := make(chan error)
	go func() {
		done <- cb.Execute(ctx, func(context.Context) error { <-release; return nil })
	}()

	// Wait until the trial is in flight.
	deadline := time.Now().Add(time.Second)
	for cb.CurrentState() != StateHalfOpen {
		if time.Now().After(deadline) {
			t.Fatal("trial never started")
		}
		time.Sleep(time.Millisecond)
	}
	if err := cb.Execute(ctx, ok); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("second call during trial: err = %v, want ErrCircuitOpen", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("trial: %v", err)
	}
	if cb.CurrentState() != StateClosed {
		t.Errorf("state = %v, want closed", cb.CurrentState())
	}
}

func TestCircuitBreaker_IgnoresCallerCancellation(t *testing.T) {
	cb, _ := testBreaker(1, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cb.Execute(ctx, func(ctx context.Context) error { return ctx.Err() })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if cb.CurrentState() != StateClosed {
		t.Errorf("cancelled call tripped the breaker: %v", cb.CurrentState())
	}
}

func TestState_String(t *testing.T) {
	for s, want := range map[State]string{
		StateClosed: "closed", StateOpen: "open", StateHalfOpen: "half-open", State(9): "unknown",
	} {
		if got := s.String(); got != want {
			t.Errorf("State(%d) = %q, want %q", s, got, want)
		}
	}
}
