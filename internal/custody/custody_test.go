package custody

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/congo-pay/stakepool/internal/ledger"
)

func newTestPool(t *testing.T) (*Pool, ledger.Ledger) {
	t.Helper()
	led := ledger.NewInMemory()
	pool, err := NewPool(context.Background(), led)
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	return pool, led
}

func TestPullAndPushMoveValueThroughPool(t *testing.T) {
	pool, led := newTestPool(t)
	ctx := context.Background()

	led.EnsureAccount(ctx, ledger.WalletAccountCode("alice"))
	ledger.SeedBalance(led, ledger.WalletAccountCode("alice"), 1_000)

	if err := pool.Pull(ctx, "alice", 600); err != nil {
		t.Fatalf("pull: %v", err)
	}
	if err := pool.Push(ctx, "bob", 100); err != nil {
		t.Fatalf("push: %v", err)
	}

	balance, err := pool.Balance(ctx)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance != 500 {
		t.Fatalf("expected pool 500, got %d", balance)
	}
	bob, err := led.Balance(ctx, ledger.WalletAccountCode("bob"))
	if err != nil {
		t.Fatalf("bob balance: %v", err)
	}
	if bob != 100 {
		t.Fatalf("expected bob 100, got %d", bob)
	}
}

func TestPullFailures(t *testing.T) {
	pool, led := newTestPool(t)
	ctx := context.Background()

	if err := pool.Pull(ctx, "ghost", 10); !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Fatalf("expected account not found, got %v", err)
	}

	led.EnsureAccount(ctx, ledger.WalletAccountCode("poor"))
	if err := pool.Pull(ctx, "poor", 10); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
	if err := pool.Pull(ctx, "poor", 0); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if err := pool.Pull(ctx, "poor", math.MaxUint64); !errors.Is(err, ErrAmountTooLarge) {
		t.Fatalf("expected amount too large, got %v", err)
	}
}

func TestPushFailsWhenPoolIsShort(t *testing.T) {
	pool, _ := newTestPool(t)
	if err := pool.Push(context.Background(), "bob", 1); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestFundIsIdempotent(t *testing.T) {
	pool, _ := newTestPool(t)
	ctx := context.Background()

	balance, err := pool.Fund(ctx, "seed", 5_000)
	if err != nil {
		t.Fatalf("fund: %v", err)
	}
	if balance != 5_000 {
		t.Fatalf("expected 5000, got %d", balance)
	}

	balance, err = pool.Fund(ctx, "seed", 5_000)
	if !errors.Is(err, ledger.ErrDuplicateTransaction) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if balance != 5_000 {
		t.Fatalf("expected replayed balance 5000, got %d", balance)
	}

	current, _ := pool.Balance(ctx)
	if current != 5_000 {
		t.Fatalf("duplicate fund changed balance to %d", current)
	}
}
