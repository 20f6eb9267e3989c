package ledger

import (
	"context"
	"sync"
)

type inMemoryLedger struct {
	mu           sync.RWMutex
	balances     map[string]int64
	transactions map[string]TransactionResult
	fundingTx    map[string]FundingResult
}

// NewInMemory creates a concurrency-safe in-memory ledger useful for unit tests
// and development runs without Postgres.
func NewInMemory() Ledger {
	return &inMemoryLedger{
		balances:     map[string]int64{FundingSuspenseAccountCode: 0},
		transactions: make(map[string]TransactionResult),
		fundingTx:    make(map[string]FundingResult),
	}
}

func (l *inMemoryLedger) EnsureAccount(_ context.Context, code string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.balances[code]; !exists {
		l.balances[code] = 0
	}
	return nil
}

func (l *inMemoryLedger) Balance(_ context.Context, code string) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	balance, exists := l.balances[code]
	if !exists {
		return 0, ErrAccountNotFound
	}
	return balance, nil
}

func (l *inMemoryLedger) Transfer(_ context.Context, fromCode, toCode, kind, clientTxID string, amount int64) (TransactionResult, error) {
	if amount <= 0 {
		return TransactionResult{}, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := kind + ":" + clientTxID
	if res, exists := l.transactions[key]; exists {
		return res, ErrDuplicateTransaction
	}

	fromBalance, ok := l.balances[fromCode]
	if !ok {
		return TransactionResult{}, ErrAccountNotFound
	}
	toBalance, ok := l.balances[toCode]
	if !ok {
		return TransactionResult{}, ErrAccountNotFound
	}
	if fromBalance < amount {
		return TransactionResult{}, ErrInsufficientFunds
	}

	fromBalance -= amount
	toBalance += amount
	l.balances[fromCode] = fromBalance
	l.balances[toCode] = toBalance

	res := TransactionResult{TransactionID: key, FromBalance: fromBalance, ToBalance: toBalance}
	l.transactions[key] = res
	return res, nil
}

func (l *inMemoryLedger) Fund(_ context.Context, code, clientTxID string, amount int64) (FundingResult, error) {
	if amount <= 0 {
		return FundingResult{}, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	key := "fund:" + clientTxID
	if res, exists := l.fundingTx[key]; exists {
		return res, ErrDuplicateTransaction
	}

	balance, ok := l.balances[code]
	if !ok {
		return FundingResult{}, ErrAccountNotFound
	}
	balance += amount
	l.balances[code] = balance
	l.balances[FundingSuspenseAccountCode] -= amount

	res := FundingResult{TransactionID: key, Balance: balance, Status: StatusCompleted}
	l.fundingTx[key] = res
	return res, nil
}
