package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/stakepool/internal/ledger"
)

var (
	// ErrMissingOwner indicates a wallet operation without an owner identity.
	ErrMissingOwner = errors.New("wallet owner is required")
	// ErrWalletNotFound indicates the owner never opened a wallet.
	ErrWalletNotFound = errors.New("wallet not found")
)

// Service exposes custodial wallet operations backed by the ledger. Wallets
// are keyed by the owner's identity; the ledger account is the only state.
type Service struct {
	ledger ledger.Ledger
	now    func() time.Time
}

// NewService builds a wallet service instance.
func NewService(l ledger.Ledger) *Service {
	return &Service{ledger: l, now: func() time.Time { return time.Now().UTC() }}
}

// Open provisions the ledger account for owner. Opening twice is a no-op.
func (s *Service) Open(ctx context.Context, owner string) error {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return ErrMissingOwner
	}
	return s.ledger.EnsureAccount(ctx, ledger.WalletAccountCode(owner))
}

// Balance returns the ledger balance for the owner's wallet.
func (s *Service) Balance(ctx context.Context, owner string) (Balance, error) {
	if strings.TrimSpace(owner) == "" {
		return Balance{}, ErrMissingOwner
	}
	amount, err := s.ledger.Balance(ctx, ledger.WalletAccountCode(owner))
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return Balance{}, ErrWalletNotFound
		}
		return Balance{}, err
	}
	return Balance{Owner: owner, Amount: amount, AsOf: s.now()}, nil
}

// TopUp credits the owner's wallet from the outside funding rail, opening the
// wallet when needed. A replayed ClientTxID returns the first result together
// with ledger.ErrDuplicateTransaction.
func (s *Service) TopUp(ctx context.Context, input TopUpInput) (TopUpResult, error) {
	if input.Amount <= 0 {
		return TopUpResult{}, ledger.ErrInvalidAmount
	}
	if err := s.Open(ctx, input.Owner); err != nil {
		return TopUpResult{}, err
	}
	if input.ClientTxID == "" {
		input.ClientTxID = uuid.NewString()
	}

	res, err := s.ledger.Fund(ctx, ledger.WalletAccountCode(strings.TrimSpace(input.Owner)), input.ClientTxID, input.Amount)
	if err != nil && !errors.Is(err, ledger.ErrDuplicateTransaction) {
		return TopUpResult{}, fmt.Errorf("top up %s: %w", input.Owner, err)
	}
	return TopUpResult{
		TransactionID: res.TransactionID,
		Status:        res.Status,
		Balance:       res.Balance,
		CompletedAt:   s.now(),
	}, err
}
