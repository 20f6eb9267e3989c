package staking

import (
	"context"
	"log/slog"

	"github.com/congo-pay/stakepool/internal/metrics"
)

// Stake deposits amount for an already registered user. The asset is pulled
// into the pool before the staked balance and totalStaked grow.
func (e *Engine) Stake(ctx context.Context, id string, amount uint64) (Transaction, error) {
	ctx, release, err := e.enter(ctx)
	if err != nil {
		return Transaction{}, err
	}
	defer release()

	if amount == 0 {
		return Transaction{}, ErrNonPositiveAmount
	}
	r, ok := e.arena.lookup(id)
	if !ok {
		return Transaction{}, ErrNotRegistered
	}
	staked, err := addAmounts(r.staked, amount)
	if err != nil {
		return Transaction{}, err
	}
	total, err := addAmounts(e.arena.totals.TotalStaked, amount)
	if err != nil {
		return Transaction{}, err
	}

	u := e.newUnit()
	if err := u.pull(ctx, id, amount); err != nil {
		return Transaction{}, err
	}
	now := e.now().UTC()
	rec := e.arena.userRecord(r)
	rec.Staked = staked
	u.touch(rec)
	tx := u.record(KindStake, id, "", amount, now)
	u.cs.Totals.TotalStaked = total

	if err := u.commit(ctx); err != nil {
		return Transaction{}, err
	}

	metrics.RecordStake(amount)
	e.log(ctx).Info("stake deposited", slog.String("user", id), slog.Uint64("amount", amount), slog.Uint64("staked", staked))
	e.notify(ctx, message(tx))
	return tx, nil
}
