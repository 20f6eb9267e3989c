package custody

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"

	"github.com/congo-pay/stakepool/internal/ledger"
)

const (
	kindPull = "stake_pull"
	kindPush = "pool_push"
)

// ErrAmountTooLarge indicates an amount the ledger's signed entries cannot hold.
var ErrAmountTooLarge = errors.New("amount exceeds ledger range")

// Pool moves value between identities' custodial wallets and the staking pool.
// Every movement is one balanced ledger posting, so it either fully happens or
// not at all.
type Pool struct {
	ledger ledger.Ledger
}

// NewPool opens the pool account on the ledger.
func NewPool(ctx context.Context, l ledger.Ledger) (*Pool, error) {
	if l == nil {
		return nil, fmt.Errorf("ledger is required")
	}
	if err := l.EnsureAccount(ctx, ledger.PoolAccountCode); err != nil {
		return nil, fmt.Errorf("open pool account: %w", err)
	}
	return &Pool{ledger: l}, nil
}

// Pull moves amount from the identity's wallet into the pool.
func (p *Pool) Pull(ctx context.Context, from string, amount uint64) error {
	amt, err := toLedgerAmount(amount)
	if err != nil {
		return err
	}
	if _, err := p.ledger.Transfer(ctx, ledger.WalletAccountCode(from), ledger.PoolAccountCode, kindPull, uuid.NewString(), amt); err != nil {
		return fmt.Errorf("pull from %s: %w", from, err)
	}
	return nil
}

// Push moves amount from the pool into the identity's wallet, opening the
// wallet if the identity never held one.
func (p *Pool) Push(ctx context.Context, to string, amount uint64) error {
	amt, err := toLedgerAmount(amount)
	if err != nil {
		return err
	}
	code := ledger.WalletAccountCode(to)
	if err := p.ledger.EnsureAccount(ctx, code); err != nil {
		return fmt.Errorf("open wallet %s: %w", to, err)
	}
	if _, err := p.ledger.Transfer(ctx, ledger.PoolAccountCode, code, kindPush, uuid.NewString(), amt); err != nil {
		return fmt.Errorf("push to %s: %w", to, err)
	}
	return nil
}

// Balance returns the pool's current balance.
func (p *Pool) Balance(ctx context.Context) (uint64, error) {
	balance, err := p.ledger.Balance(ctx, ledger.PoolAccountCode)
	if err != nil {
		return 0, err
	}
	if balance < 0 {
		return 0, fmt.Errorf("pool balance is negative: %d", balance)
	}
	return uint64(balance), nil
}

// Fund credits the pool from the outside funding rail. clientTxID makes the
// call idempotent; a repeated id returns ledger.ErrDuplicateTransaction with
// the balance recorded by the first call.
func (p *Pool) Fund(ctx context.Context, clientTxID string, amount uint64) (uint64, error) {
	amt, err := toLedgerAmount(amount)
	if err != nil {
		return 0, err
	}
	if clientTxID == "" {
		clientTxID = uuid.NewString()
	}
	res, err := p.ledger.Fund(ctx, ledger.PoolAccountCode, clientTxID, amt)
	if err != nil && !errors.Is(err, ledger.ErrDuplicateTransaction) {
		return 0, err
	}
	return uint64(max(res.Balance, 0)), err
}

func toLedgerAmount(amount uint64) (int64, error) {
	if amount == 0 {
		return 0, ledger.ErrInvalidAmount
	}
	if amount > math.MaxInt64 {
		return 0, ErrAmountTooLarge
	}
	return int64(amount), nil
}
