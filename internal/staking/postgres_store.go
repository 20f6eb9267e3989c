package staking

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists ledger state in PostgreSQL. Amounts are NUMERIC so
// the full uint64 range survives; they travel as decimal text.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Load reads every user in registration order, every transaction in append
// order and the totals row.
func (s *PostgresStore) Load(ctx context.Context) (Changeset, error) {
	var cs Changeset

	rows, err := s.db.Query(ctx, `SELECT seq, id, name, COALESCE(referrer, ''), signup_at, last_reward_at, staked::text
        FROM staking_users ORDER BY seq`)
	if err != nil {
		return Changeset{}, fmt.Errorf("query users: %w", err)
	}
	for rows.Next() {
		var (
			u      UserRecord
			seq    int64
			staked string
		)
		if err := rows.Scan(&seq, &u.ID, &u.Name, &u.Referrer, &u.SignupAt, &u.LastRewardAt, &staked); err != nil {
			rows.Close()
			return Changeset{}, err
		}
		if u.Staked, err = strconv.ParseUint(staked, 10, 64); err != nil {
			rows.Close()
			return Changeset{}, fmt.Errorf("user %s staked: %w", u.ID, err)
		}
		u.Seq = uint64(seq)
		u.SignupAt = u.SignupAt.UTC()
		u.LastRewardAt = u.LastRewardAt.UTC()
		cs.Users = append(cs.Users, u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Changeset{}, err
	}

	rows, err = s.db.Query(ctx, `SELECT seq, id, kind, subject, source, amount::text, occurred_at
        FROM staking_transactions ORDER BY seq`)
	if err != nil {
		return Changeset{}, fmt.Errorf("query transactions: %w", err)
	}
	for rows.Next() {
		var (
			tx     Transaction
			seq    int64
			id     uuid.UUID
			kind   string
			amount string
		)
		if err := rows.Scan(&seq, &id, &kind, &tx.Subject, &tx.Source, &amount, &tx.Timestamp); err != nil {
			rows.Close()
			return Changeset{}, err
		}
		if tx.Amount, err = strconv.ParseUint(amount, 10, 64); err != nil {
			rows.Close()
			return Changeset{}, fmt.Errorf("transaction %d amount: %w", seq, err)
		}
		tx.Seq = uint64(seq)
		tx.ID = id.String()
		tx.Kind = Kind(kind)
		tx.Timestamp = tx.Timestamp.UTC()
		cs.Transactions = append(cs.Transactions, tx)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Changeset{}, err
	}

	var totalStaked, paidOut string
	err = s.db.QueryRow(ctx, `SELECT total_staked::text, admin_paid_out::text FROM staking_totals WHERE id = 1`).Scan(&totalStaked, &paidOut)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return cs, nil
	case err != nil:
		return Changeset{}, fmt.Errorf("query totals: %w", err)
	}
	if cs.Totals.TotalStaked, err = strconv.ParseUint(totalStaked, 10, 64); err != nil {
		return Changeset{}, fmt.Errorf("total staked: %w", err)
	}
	if cs.Totals.AdminPaidOut, err = strconv.ParseUint(paidOut, 10, 64); err != nil {
		return Changeset{}, fmt.Errorf("admin paid out: %w", err)
	}
	return cs, nil
}

// Apply writes the changeset in a single database transaction.
func (s *PostgresStore) Apply(ctx context.Context, cs Changeset) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	batch := &pgx.Batch{}
	for _, u := range cs.Users {
		var referrer *string
		if u.Referrer != "" {
			referrer = &u.Referrer
		}
		batch.Queue(`INSERT INTO staking_users (seq, id, name, referrer, signup_at, last_reward_at, staked)
            VALUES ($1, $2, $3, $4, $5, $6, $7::numeric)
            ON CONFLICT (id) DO UPDATE SET last_reward_at = EXCLUDED.last_reward_at, staked = EXCLUDED.staked`,
			int64(u.Seq), u.ID, u.Name, referrer, u.SignupAt.UTC(), u.LastRewardAt.UTC(), strconv.FormatUint(u.Staked, 10))
	}
	for _, t := range cs.Transactions {
		id, err := uuid.Parse(t.ID)
		if err != nil {
			return fmt.Errorf("transaction %d id: %w", t.Seq, err)
		}
		batch.Queue(`INSERT INTO staking_transactions (seq, id, kind, subject, source, amount, occurred_at)
            VALUES ($1, $2, $3, $4, $5, $6::numeric, $7)`,
			int64(t.Seq), id, string(t.Kind), t.Subject, t.Source, strconv.FormatUint(t.Amount, 10), t.Timestamp.UTC())
	}
	batch.Queue(`INSERT INTO staking_totals (id, total_staked, admin_paid_out) VALUES (1, $1::numeric, $2::numeric)
        ON CONFLICT (id) DO UPDATE SET total_staked = EXCLUDED.total_staked, admin_paid_out = EXCLUDED.admin_paid_out`,
		strconv.FormatUint(cs.Totals.TotalStaked, 10), strconv.FormatUint(cs.Totals.AdminPaidOut, 10))

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("write changeset: %w", err)
	}
	return tx.Commit(ctx)
}
