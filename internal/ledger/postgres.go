package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLedger persists ledger entries in PostgreSQL ensuring double-entry balance.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

// EnsureAccount guarantees an account exists for the provided code.
func (l *PostgresLedger) EnsureAccount(ctx context.Context, code string) error {
	_, err := l.db.Exec(ctx, `INSERT INTO accounts (id, code) VALUES ($1, $2)
        ON CONFLICT (code) DO NOTHING`, uuid.New(), code)
	return err
}

// Balance returns the summed balance for the specified account code.
func (l *PostgresLedger) Balance(ctx context.Context, code string) (int64, error) {
	const query = `
        SELECT a.id, COALESCE(SUM(e.amount), 0)
        FROM accounts a
        LEFT JOIN entries e ON e.account_id = a.id
        WHERE a.code = $1
        GROUP BY a.id`
	var (
		id      uuid.UUID
		balance int64
	)
	if err := l.db.QueryRow(ctx, query, code).Scan(&id, &balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: %s", ErrAccountNotFound, code)
		}
		return 0, err
	}
	return balance, nil
}

// Transfer records a balanced posting between two accounts.
func (l *PostgresLedger) Transfer(ctx context.Context, fromCode, toCode, kind, clientTxID string, amount int64) (TransactionResult, error) {
	if amount <= 0 {
		return TransactionResult{}, ErrInvalidAmount
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return TransactionResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	fromAccountID, err := accountIDForCode(ctx, tx, fromCode)
	if err != nil {
		return TransactionResult{}, err
	}
	toAccountID, err := accountIDForCode(ctx, tx, toCode)
	if err != nil {
		return TransactionResult{}, err
	}

	existingTxID, found, err := existingTransaction(ctx, tx, clientTxID, kind)
	if err != nil {
		return TransactionResult{}, err
	}
	if found {
		fromBal, err := balanceForAccount(ctx, tx, fromAccountID)
		if err != nil {
			return TransactionResult{}, err
		}
		toBal, err := balanceForAccount(ctx, tx, toAccountID)
		if err != nil {
			return TransactionResult{}, err
		}
		return TransactionResult{TransactionID: existingTxID.String(), FromBalance: fromBal, ToBalance: toBal}, ErrDuplicateTransaction
	}

	fromBalance, err := balanceForAccount(ctx, tx, fromAccountID)
	if err != nil {
		return TransactionResult{}, err
	}
	if fromBalance < amount {
		return TransactionResult{}, ErrInsufficientFunds
	}

	txID, err := postEntries(ctx, tx, clientTxID, kind, fromAccountID, toAccountID, amount)
	if err != nil {
		return TransactionResult{}, err
	}

	toBalance, err := balanceForAccount(ctx, tx, toAccountID)
	if err != nil {
		return TransactionResult{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return TransactionResult{}, err
	}

	return TransactionResult{TransactionID: txID.String(), FromBalance: fromBalance - amount, ToBalance: toBalance}, nil
}

// Fund credits an account with value entering from an outside rail. The
// funding suspense account carries the matching debit.
func (l *PostgresLedger) Fund(ctx context.Context, code, clientTxID string, amount int64) (FundingResult, error) {
	if amount <= 0 {
		return FundingResult{}, ErrInvalidAmount
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return FundingResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	accountID, err := accountIDForCode(ctx, tx, code)
	if err != nil {
		return FundingResult{}, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO accounts (id, code) VALUES ($1, $2) ON CONFLICT (code) DO NOTHING`, uuid.New(), FundingSuspenseAccountCode); err != nil {
		return FundingResult{}, err
	}
	suspenseID, err := accountIDForCode(ctx, tx, FundingSuspenseAccountCode)
	if err != nil {
		return FundingResult{}, err
	}

	existingTxID, found, err := existingTransaction(ctx, tx, clientTxID, "fund")
	if err != nil {
		return FundingResult{}, err
	}
	if found {
		balance, err := balanceForAccount(ctx, tx, accountID)
		if err != nil {
			return FundingResult{}, err
		}
		return FundingResult{TransactionID: existingTxID.String(), Balance: balance, Status: StatusCompleted}, ErrDuplicateTransaction
	}

	txID, err := postEntries(ctx, tx, clientTxID, "fund", suspenseID, accountID, amount)
	if err != nil {
		return FundingResult{}, err
	}
	balance, err := balanceForAccount(ctx, tx, accountID)
	if err != nil {
		return FundingResult{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return FundingResult{}, err
	}

	return FundingResult{TransactionID: txID.String(), Balance: balance, Status: StatusCompleted}, nil
}

func postEntries(ctx context.Context, tx pgx.Tx, clientTxID, kind string, fromID, toID uuid.UUID, amount int64) (uuid.UUID, error) {
	txID := uuid.New()
	if _, err := tx.Exec(ctx, `INSERT INTO transactions (id, client_tx_id, kind, status) VALUES ($1, $2, $3, $4)`, txID, clientTxID, kind, StatusCompleted); err != nil {
		return uuid.Nil, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO entries (id, transaction_id, account_id, amount) VALUES ($1, $2, $3, $4)`, uuid.New(), txID, fromID, -amount); err != nil {
		return uuid.Nil, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO entries (id, transaction_id, account_id, amount) VALUES ($1, $2, $3, $4)`, uuid.New(), txID, toID, amount); err != nil {
		return uuid.Nil, err
	}
	return txID, nil
}

func existingTransaction(ctx context.Context, tx pgx.Tx, clientTxID, kind string) (uuid.UUID, bool, error) {
	const query = `SELECT id FROM transactions WHERE client_tx_id = $1 AND kind = $2`
	var id uuid.UUID
	if err := tx.QueryRow(ctx, query, clientTxID, kind).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, false, nil
		}
		return uuid.Nil, false, err
	}
	return id, true, nil
}

func accountIDForCode(ctx context.Context, tx pgx.Tx, code string) (uuid.UUID, error) {
	const query = `SELECT id FROM accounts WHERE code = $1 FOR UPDATE`
	var id uuid.UUID
	if err := tx.QueryRow(ctx, query, code).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("%w: %s", ErrAccountNotFound, code)
		}
		return uuid.Nil, err
	}
	return id, nil
}

func balanceForAccount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM entries WHERE account_id = $1`
	var balance int64
	if err := tx.QueryRow(ctx, query, accountID).Scan(&balance); err != nil {
		return 0, err
	}
	return balance, nil
}
