package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/congo-pay/stakepool/internal/logging"
	"github.com/congo-pay/stakepool/internal/staking"
)

type countingRunner struct {
	calls atomic.Int32
	block chan struct{}
}

func (r *countingRunner) RunPeriodicRewards(ctx context.Context) (staking.PeriodicResult, error) {
	r.calls.Add(1)
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return staking.PeriodicResult{}, ctx.Err()
		}
	}
	return staking.PeriodicResult{}, nil
}

func TestNewRejectsBadSpec(t *testing.T) {
	if _, err := New("every now and then", &countingRunner{}, logging.Discard(), 0); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := New("@daily", nil, logging.Discard(), 0); err == nil {
		t.Fatal("expected missing runner error")
	}
}

func TestSchedulerRunsPass(t *testing.T) {
	runner := &countingRunner{}
	s, err := New("@every 1s", runner, logging.Discard(), time.Second)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	s.Start()

	deadline := time.Now().Add(5 * time.Second)
	for runner.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if runner.calls.Load() == 0 {
		t.Fatal("expected at least one reward pass")
	}
}

func TestSchedulerSkipsOverlappingPasses(t *testing.T) {
	runner := &countingRunner{block: make(chan struct{})}
	s, err := New("@every 1s", runner, logging.Discard(), 0)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}
	s.Start()

	time.Sleep(3500 * time.Millisecond)
	if got := runner.calls.Load(); got != 1 {
		t.Fatalf("expected a single blocked pass, got %d", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
