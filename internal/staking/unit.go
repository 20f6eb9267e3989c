package staking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/stakepool/internal/metrics"
)

type movement struct {
	pull    bool
	account string
	amount  uint64
}

// unit stages one all-or-nothing change. Transfers run eagerly and are
// remembered so they can be compensated; ledger state is only touched by
// commit, after the store accepted the changeset.
type unit struct {
	e     *Engine
	moves []movement
	cs    Changeset
	seq   uint64
	users map[string]int
}

func (e *Engine) newUnit() *unit {
	return &unit{
		e:     e,
		cs:    Changeset{Totals: e.arena.totals},
		seq:   e.arena.nextTxSeq,
		users: make(map[string]int),
	}
}

func (u *unit) pull(ctx context.Context, from string, amount uint64) error {
	if err := u.e.port.Pull(ctx, from, amount); err != nil {
		return fmt.Errorf("%w: pull %d from %s: %w", ErrTransferFailure, amount, from, err)
	}
	u.moves = append(u.moves, movement{pull: true, account: from, amount: amount})
	return nil
}

func (u *unit) push(ctx context.Context, to string, amount uint64) error {
	if err := u.e.port.Push(ctx, to, amount); err != nil {
		return fmt.Errorf("%w: push %d to %s: %w", ErrTransferFailure, amount, to, err)
	}
	u.moves = append(u.moves, movement{account: to, amount: amount})
	return nil
}

// touch stages the new state of a user, replacing any earlier staged state.
func (u *unit) touch(rec UserRecord) {
	if i, ok := u.users[rec.ID]; ok {
		u.cs.Users[i] = rec
		return
	}
	u.users[rec.ID] = len(u.cs.Users)
	u.cs.Users = append(u.cs.Users, rec)
}

func (u *unit) record(kind Kind, subject, source string, amount uint64, at time.Time) Transaction {
	tx := Transaction{
		Seq:       u.seq,
		ID:        uuid.NewString(),
		Kind:      kind,
		Subject:   subject,
		Source:    source,
		Amount:    amount,
		Timestamp: at,
	}
	u.seq++
	u.cs.Transactions = append(u.cs.Transactions, tx)
	return tx
}

// abort compensates every executed transfer and returns cause joined with any
// compensation failure.
func (u *unit) abort(ctx context.Context, cause error) error {
	return errors.Join(cause, u.rollback(ctx))
}

func (u *unit) rollback(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	var errs []error
	for i := len(u.moves) - 1; i >= 0; i-- {
		m := u.moves[i]
		var err error
		if m.pull {
			err = u.e.port.Push(ctx, m.account, m.amount)
		} else {
			err = u.e.port.Pull(ctx, m.account, m.amount)
		}
		if err != nil {
			metrics.RecordCompensation("failed")
			u.e.log(ctx).Error("compensating transfer failed",
				slog.String("account", m.account),
				slog.Uint64("amount", m.amount),
				slog.Bool("reverse_of_pull", m.pull),
				slog.Any("error", err),
			)
			errs = append(errs, fmt.Errorf("compensate %s: %w", m.account, err))
			continue
		}
		metrics.RecordCompensation("ok")
	}
	u.moves = nil
	return errors.Join(errs...)
}

func (u *unit) commit(ctx context.Context) error {
	if err := u.e.store.Apply(ctx, u.cs); err != nil {
		return u.abort(ctx, fmt.Errorf("persist changeset: %w", err))
	}
	if err := u.e.applyCommitted(u.cs); err != nil {
		u.e.log(ctx).Error("persisted changeset could not be applied in memory", slog.Any("error", err))
		return err
	}
	u.moves = nil
	return nil
}
