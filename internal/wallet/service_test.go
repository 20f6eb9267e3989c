package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/congo-pay/stakepool/internal/ledger"
)

func TestServiceOpenAndBalance(t *testing.T) {
	led := ledger.NewInMemory()
	svc := NewService(led)
	ctx := context.Background()

	if _, err := svc.Balance(ctx, "alice"); !errors.Is(err, ErrWalletNotFound) {
		t.Fatalf("expected wallet not found, got %v", err)
	}
	if err := svc.Open(ctx, "alice"); err != nil {
		t.Fatalf("open wallet: %v", err)
	}

	ledger.SeedBalance(led, ledger.WalletAccountCode("alice"), 2_500)

	balance, err := svc.Balance(ctx, "alice")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if balance.Amount != 2_500 || balance.Owner != "alice" {
		t.Fatalf("unexpected balance %+v", balance)
	}
}

func TestServiceTopUpIsIdempotent(t *testing.T) {
	svc := NewService(ledger.NewInMemory())
	ctx := context.Background()

	res, err := svc.TopUp(ctx, TopUpInput{Owner: "bob", Amount: 700, ClientTxID: "t-1"})
	if err != nil {
		t.Fatalf("top up: %v", err)
	}
	if res.Balance != 700 || res.Status != ledger.StatusCompleted {
		t.Fatalf("unexpected result %+v", res)
	}

	replay, err := svc.TopUp(ctx, TopUpInput{Owner: "bob", Amount: 700, ClientTxID: "t-1"})
	if !errors.Is(err, ledger.ErrDuplicateTransaction) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	if replay.TransactionID != res.TransactionID {
		t.Fatalf("expected replayed transaction %s, got %s", res.TransactionID, replay.TransactionID)
	}

	balance, _ := svc.Balance(ctx, "bob")
	if balance.Amount != 700 {
		t.Fatalf("duplicate top-up changed balance to %d", balance.Amount)
	}
}

func TestServiceTopUpValidation(t *testing.T) {
	svc := NewService(ledger.NewInMemory())
	ctx := context.Background()

	if _, err := svc.TopUp(ctx, TopUpInput{Owner: "bob", Amount: 0}); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	if _, err := svc.TopUp(ctx, TopUpInput{Owner: "  ", Amount: 5}); !errors.Is(err, ErrMissingOwner) {
		t.Fatalf("expected missing owner, got %v", err)
	}
}
