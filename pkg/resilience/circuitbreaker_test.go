package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errFail = errors.New("fail")

func failing(context.Context) error { return errFail }
func passing(context.Context) error { return nil }

func newTestBreaker(threshold int) (*Breaker, *time.Time) {
	now := time.Unix(1700000000, 0)
	b := NewBreaker(BreakerOpts{FailThreshold: threshold, Cooldown: time.Second})
	b.now = func() time.Time { return now }
	return b, &now
}

func TestBreaker_Defaults(t *testing.T) {
	b := NewBreaker(BreakerOpts{})
	if b.opts.FailThreshold != 5 || b.opts.Cooldown != 30*time.Second || b.opts.HalfOpenMax != 1 {
		t.Fatalf("unexpected defaults: %+v", b.opts)
	}
	if b.State() != StateClosed {
		t.Fatal("new breaker should be closed")
	}
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b, _ := newTestBreaker(3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := b.Call(ctx, failing); !errors.Is(err, errFail) {
			t.Fatalf("call %d: expected errFail, got %v", i, err)
		}
	}
	if b.State() != StateOpen {
		t.Fatalf("expected open, got %s", b.State())
	}

	called := false
	err := b.Call(ctx, func(context.Context) error { called = true; return nil })
	if !errors.Is(err, ErrCircuitOpen) || called {
		t.Fatal("open breaker must fail fast without calling through")
	}
}

func TestBreaker_SuccessResetsFailures(t *testing.T) {
	b, _ := newTestBreaker(2)
	ctx := context.Background()

	_ = b.Call(ctx, failing)
	_ = b.Call(ctx, passing)
	_ = b.Call(ctx, failing)
	if b.State() != StateClosed {
		t.Fatal("non-consecutive failures must not open the breaker")
	}
}

func TestBreaker_HalfOpenProbe(t *testing.T) {
	b, now := newTestBreaker(1)
	ctx := context.Background()

	_ = b.Call(ctx, failing)
	*now = now.Add(2 * time.Second)
	if b.State() != StateHalfOpen {
		t.Fatalf("expected half-open, got %s", b.State())
	}

	if err := b.Call(ctx, passing); err != nil {
		t.Fatalf("probe should pass: %v", err)
	}
	if b.State() != StateClosed {
		t.Fatal("successful probe should close the breaker")
	}

	_ = b.Call(ctx, failing)
	*now = now.Add(2 * time.Second)
	_ = b.Call(ctx, failing)
	if b.State() != StateOpen {
		t.Fatal("failed probe should reopen the breaker")
	}
}

func TestBreaker_CallerCancellationIsNotAFailure(t *testing.T) {
	b, _ := newTestBreaker(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_ = b.Call(ctx, func(ctx context.Context) error { return ctx.Err() })
	if b.State() != StateClosed {
		t.Fatal("cancelled calls must not trip the breaker")
	}
}

func TestBreaker_OnStateChange(t *testing.T) {
	var transitions []string
	b := NewBreaker(BreakerOpts{
		Name:          "ollama",
		FailThreshold: 1,
		Cooldown:      time.Second,
		OnStateChange: func(name string, from, to State) {
			transitions = append(transitions, name+":"+from.String()+">"+to.String())
		},
	})
	now := time.Unix(0, 0)
	b.now = func() time.Time { return now }

	_ = b.Call(context.Background(), failing)
	now = now.Add(time.Second)
	_ = b.Call(context.Background(), passing)

	want := []string{"ollama:closed>open", "ollama:open>half-open", "ollama:half-open>closed"}
	if len(transitions) != len(want) {
		t.Fatalf("expected %v, got %v", want, transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, transitions)
		}
	}
}

func TestStateString(t *testing.T) {
	if StateClosed.String() != "closed" || StateOpen.String() != "open" || StateHalfOpen.String() != "half-open" || State(9).String() != "unknown" {
		t.Fatal("unexpected state names")
	}
}

func TestBreaker_CancelledProbeFreesSlot(t *testing.T) {
	b, now := newTestBreaker(1)
	_ = b.Call(context.Background(), failing)
	*now = now.Add(2 * time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = b.Call(ctx, func(ctx context.Context) error { return ctx.Err() })
	if b.State() != StateHalfOpen {
		t.Fatalf("expected half-open, got %s", b.State())
	}
	if err := b.Call(context.Background(), passing); err != nil {
		t.Fatalf("next probe should be admitted: %v", err)
	}
}
