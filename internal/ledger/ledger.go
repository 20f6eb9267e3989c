package ledger

import (
	"context"
	"errors"
)

var (
	// ErrInsufficientFunds occurs when the source account lacks available balance
	// to cover a requested posting.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateTransaction indicates the provided client transaction identifier
	// already exists and therefore the operation should be treated as idempotent.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrAccountNotFound indicates a posting referenced an account that was never opened.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidAmount indicates a non-positive posting amount.
	ErrInvalidAmount = errors.New("amount must be positive")
)

const (
	// StatusCompleted represents a settled posting.
	StatusCompleted = "completed"
	// PoolAccountCode is the custodial pool holding staked value and funding rewards.
	PoolAccountCode = "pool:staking"
	// FundingSuspenseAccountCode is the contra account for value entering from outside rails.
	// Its balance goes negative by the amount funded in.
	FundingSuspenseAccountCode = "suspense:funding"
)

// WalletAccountCode returns the ledger account of an identity's custodial wallet.
func WalletAccountCode(owner string) string {
	return "wallet:" + owner
}

// TransactionResult captures the outcome of a ledger posting.
type TransactionResult struct {
	TransactionID string
	FromBalance   int64
	ToBalance     int64
}

// FundingResult captures the outcome of an inbound funding posting.
type FundingResult struct {
	TransactionID string
	Balance       int64
	Status        string
}

// Ledger defines the contract implemented by ledger backends (e.g. Postgres).
type Ledger interface {
	EnsureAccount(ctx context.Context, code string) error
	Balance(ctx context.Context, code string) (int64, error)
	Transfer(ctx context.Context, fromCode, toCode, kind, clientTxID string, amount int64) (TransactionResult, error)
	Fund(ctx context.Context, code, clientTxID string, amount int64) (FundingResult, error)
}
