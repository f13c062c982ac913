package retry

import (
	"context"
	"testing"
	"time"

	"github.com/exploopio/codeguard/pkg/errors"
)

func fastPolicy(attempts int) Policy {
	return Policy{
		Attempts: attempts,
		Backoff:  &BackoffConfig{Strategy: BackoffConstant, BaseInterval: time.Millisecond},
	}
}

func TestDo_RetriesTransientErrors(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "test", fastPolicy(3), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.E(errors.KindNetwork, "test", "connection reset")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestDo_StopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "test", fastPolicy(5), func(context.Context) error {
		calls++
		return errors.E(errors.KindNotFound, "test", "missing")
	})
	if !errors.IsNotFoundError(err) {
		t.Errorf("Do() error = %v, want not found", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_GivesUp(t *testing.T) {
	calls := 0
	err := Do(context.Background(), "test", fastPolicy(2), func(context.Context) error {
		calls++
		return &errors.RemoteError{Provider: "github", StatusCode: 503}
	})
	if err == nil {
		t.Fatal("Do() succeeded, want error")
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestDo_NegativeAttemptsDisablesRetry(t *testing.T) {
	calls := 0
	_ = Do(context.Background(), "test", fastPolicy(-1), func(context.Context) error {
		calls++
		return errors.E(errors.KindTimeout, "test", "slow")
	})
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestDo_ContextCanceledDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{Attempts: 3, Backoff: &BackoffConfig{BaseInterval: time.Hour}}

	calls := 0
	done := make(chan error, 1)
	go func() {
		done <- Do(ctx, "test", p, func(context.Context) error {
			calls++
			return errors.E(errors.KindRateLimit, "test", "slow down")
		})
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.IsRateLimitError(err) {
			t.Errorf("Do() error = %v, want the last attempt's error", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Do() did not return after cancel")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestBackoffConfig_Schedule(t *testing.T) {
	tests := []struct {
		name     string
		strategy BackoffStrategy
		want     []time.Duration
	}{
		{"exponential", BackoffExponential, []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second}},
		{"linear", BackoffLinear, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 4 * time.Second}},
		{"constant", BackoffConstant, []time.Duration{time.Second, time.Second, time.Second, time.Second}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &BackoffConfig{Strategy: tt.strategy, BaseInterval: time.Second, MaxInterval: 5 * time.Second, Jitter: 0.5}
			got := c.Schedule(4)
			if len(got) != len(tt.want) {
				t.Fatalf("Schedule() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Schedule()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBackoffConfig_Jitter(t *testing.T) {
	c := &BackoffConfig{BaseInterval: time.Second, Jitter: 0.1}
	for range 50 {
		d := c.Interval(1)
		if d < 900*time.Millisecond || d > 1100*time.Millisecond {
			t.Fatalf("Interval(1) = %v, outside the 10%% jitter band", d)
		}
	}
	if got := c.TotalBackoffTime(3); got != 7*time.Second {
		t.Errorf("TotalBackoffTime(3) = %v, want 7s", got)
	}
}
