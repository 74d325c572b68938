package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestCircuitBreaker_StartsInClosedState(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("test"))

	if cb.State() != StateClosed {
		t.Errorf("expected StateClosed, got %s", cb.State())
	}
}

func TestCircuitBreaker_AllowsRequestsWhenClosed(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("test"))

	var called bool
	err := cb.Execute(func() error {
		called = true
		return nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if !called {
		t.Error("function was not called")
	}
}

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	config := CircuitBreakerConfig{
		Name:            "test",
		MaxFailures:     5,
		RecoveryTimeout: time.Second,
	}
	cb := NewCircuitBreaker(config)

	testErr := errors.New("dependency down")

	for i := 0; i < 5; i++ {
		_ = cb.Execute(func() error {
			return testErr
		})
	}

	if cb.State() != StateOpen {
		t.Errorf("expected StateOpen, got %s", cb.State())
	}

	// The 6th call must fail fast without invoking the function.
	err := cb.Execute(func() error {
		t.Error("function should not have been called")
		return nil
	})

	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_OpensOnFailureRatio(t *testing.T) {
	config := CircuitBreakerConfig{
		Name:            "test",
		MaxFailures:     100, // absolute threshold out of reach
		FailureRatio:    0.5,
		MinimumRequests: 10,
		RecoveryTimeout: time.Second,
	}
	cb := NewCircuitBreaker(config)

	fail := errors.New("fail")

	// 5 successes then 4 failures: 9 samples, below the minimum.
	for i := 0; i < 5; i++ {
		_ = cb.Execute(func() error { return nil })
	}
	for i := 0; i < 4; i++ {
		_ = cb.Execute(func() error { return fail })
	}
	if cb.State() != StateClosed {
		t.Fatalf("expected StateClosed below minimum samples, got %s", cb.State())
	}

	// 10th sample pushes the ratio to 0.5.
	_ = cb.Execute(func() error { return fail })
	if cb.State() != StateOpen {
		t.Errorf("expected StateOpen at failure ratio, got %s", cb.State())
	}
}

func TestCircuitBreaker_ColdStartDoesNotOpenOnRatio(t *testing.T) {
	config := CircuitBreakerConfig{
		Name:            "test",
		MaxFailures:     100,
		FailureRatio:    0.5,
		MinimumRequests: 10,
		RecoveryTimeout: time.Second,
	}
	cb := NewCircuitBreaker(config)

	// Two failures is a 100% ratio but only 2 samples.
	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return errors.New("fail") })
	}

	if cb.State() != StateClosed {
		t.Errorf("expected StateClosed on cold start, got %s", cb.State())
	}
}

func TestCircuitBreaker_TransitionsToHalfOpenAfterTimeout(t *testing.T) {
	config := CircuitBreakerConfig{
		Name:            "test",
		MaxFailures:     1,
		RecoveryTimeout: 50 * time.Millisecond,
	}
	cb := NewCircuitBreaker(config)

	_ = cb.Execute(func() error {
		return errors.New("fail")
	})

	if cb.State() != StateOpen {
		t.Errorf("expected StateOpen, got %s", cb.State())
	}

	time.Sleep(60 * time.Millisecond)

	if cb.State() != StateHalfOpen {
		t.Errorf("expected StateHalfOpen, got %s", cb.State())
	}
}

func TestCircuitBreaker_ClosesAfterSuccessThreshold(t *testing.T) {
	config := CircuitBreakerConfig{
		Name:             "test",
		MaxFailures:      1,
		RecoveryTimeout:  10 * time.Millisecond,
		SuccessThreshold: 2,
		HalfOpenMaxCalls: 2,
	}
	cb := NewCircuitBreaker(config)

	_ = cb.Execute(func() error {
		return errors.New("fail")
	})

	time.Sleep(15 * time.Millisecond)

	// First success keeps the breaker half-open.
	_ = cb.Execute(func() error { return nil })
	if cb.State() != StateHalfOpen {
		t.Errorf("expected StateHalfOpen after 1 of 2 successes, got %s", cb.State())
	}

	// Second consecutive success closes it.
	_ = cb.Execute(func() error { return nil })
	if cb.State() != StateClosed {
		t.Errorf("expected StateClosed, got %s", cb.State())
	}
}

func TestCircuitBreaker_ReopensOnFailureInHalfOpen(t *testing.T) {
	config := CircuitBreakerConfig{
		Name:            "test",
		MaxFailures:     1,
		RecoveryTimeout: 10 * time.Millisecond,
	}
	cb := NewCircuitBreaker(config)

	_ = cb.Execute(func() error {
		return errors.New("fail")
	})

	time.Sleep(15 * time.Millisecond)

	_ = cb.Execute(func() error {
		return errors.New("fail again")
	})

	if cb.State() != StateOpen {
		t.Errorf("expected StateOpen, got %s", cb.State())
	}
}

func TestCircuitBreaker_NeverSwallowsError(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig("test"))

	want := errors.New("domain failure")
	got := cb.Execute(func() error { return want })

	if !errors.Is(got, want) {
		t.Errorf("expected the underlying error back, got %v", got)
	}
}

func TestCircuitBreaker_Reset(t *testing.T) {
	config := CircuitBreakerConfig{
		Name:            "test",
		MaxFailures:     1,
		RecoveryTimeout: time.Hour,
	}
	cb := NewCircuitBreaker(config)

	_ = cb.Execute(func() error {
		return errors.New("fail")
	})

	if cb.State() != StateOpen {
		t.Errorf("expected StateOpen, got %s", cb.State())
	}

	cb.Reset()

	if cb.State() != StateClosed {
		t.Errorf("expected StateClosed after reset, got %s", cb.State())
	}
	if cb.Counts().Failures != 0 {
		t.Errorf("expected 0 failures after reset, got %d", cb.Counts().Failures)
	}
}

func TestCircuitBreaker_StateChangeFiresOncePerTransition(t *testing.T) {
	var mu sync.Mutex
	var changes []struct{ from, to State }

	config := CircuitBreakerConfig{
		Name:            "test",
		MaxFailures:     3,
		RecoveryTimeout: time.Hour,
		OnStateChange: func(name string, from, to State) {
			mu.Lock()
			changes = append(changes, struct{ from, to State }{from, to})
			mu.Unlock()
		},
	}
	cb := NewCircuitBreaker(config)

	// Many goroutines push past the threshold concurrently; exactly one
	// Closed->Open event may fire.
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = cb.Execute(func() error { return errors.New("fail") })
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()

	opens := 0
	for _, c := range changes {
		if c.from == StateClosed && c.to == StateOpen {
			opens++
		}
	}
	if opens != 1 {
		t.Errorf("expected exactly 1 Closed->Open event, got %d", opens)
	}
}

func TestCircuitBreaker_OpensCounter(t *testing.T) {
	config := CircuitBreakerConfig{
		Name:            "test",
		MaxFailures:     1,
		RecoveryTimeout: time.Hour,
	}
	cb := NewCircuitBreaker(config)

	_ = cb.Execute(func() error { return errors.New("fail") })

	if cb.Opens() != 1 {
		t.Errorf("expected 1 open, got %d", cb.Opens())
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateClosed, "closed"},
		{StateOpen, "open"},
		{StateHalfOpen, "half-open"},
		{State(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}

func TestCircuitBreaker_ContextErrorsDoNotCount(t *testing.T) {
	config := CircuitBreakerConfig{
		Name:            "test",
		MaxFailures:     2,
		RecoveryTimeout: time.Hour,
	}
	cb := NewCircuitBreaker(config)

	for i := 0; i < 5; i++ {
		err := cb.Execute(func() error { return context.Canceled })
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	}
	if err := cb.Execute(func() error { return context.DeadlineExceeded }); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}

	if cb.State() != StateClosed {
		t.Errorf("expected StateClosed after caller cancellations, got %s", cb.State())
	}
	counts := cb.Counts()
	if counts.Failures != 0 || counts.TotalRequests != 0 {
		t.Errorf("expected untouched counters, got %+v", counts)
	}
}

func TestCircuitBreaker_HalfOpenProbeSlotReleasedOnContextError(t *testing.T) {
	config := CircuitBreakerConfig{
		Name:             "test",
		MaxFailures:      1,
		RecoveryTimeout:  10 * time.Millisecond,
		SuccessThreshold: 1,
		HalfOpenMaxCalls: 1,
	}
	cb := NewCircuitBreaker(config)

	_ = cb.Execute(func() error { return errors.New("fail") })
	if cb.State() != StateOpen {
		t.Fatalf("expected StateOpen, got %s", cb.State())
	}

	time.Sleep(15 * time.Millisecond)

	// A cancelled probe must not consume the half-open slot for good.
	if err := cb.Execute(func() error { return context.Canceled }); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	if err := cb.Execute(func() error { return nil }); err != nil {
		t.Fatalf("expected probe to run after cancelled probe, got %v", err)
	}
	if cb.State() != StateClosed {
		t.Errorf("expected StateClosed after successful probe, got %s", cb.State())
	}
}
