package staking

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/congo-pay/stakepool/internal/metrics"
	"github.com/congo-pay/stakepool/internal/notification"
)

// Payout is one recipient/amount pair of an administrative transfer.
type Payout struct {
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
}

// GroupResult reports the outcome of one batch transfer group.
type GroupResult struct {
	Index int    `json:"index"`
	Total uint64 `json:"total"`
	Paid  bool   `json:"paid"`
	Err   error  `json:"-"`
}

// AdminPayout pushes amount out of the pool and lowers totalStaked by the same
// amount. The recipient's own staked balance is not consulted or changed; the
// difference is tracked in Totals.AdminPaidOut. Authorization is the caller's
// concern.
func (e *Engine) AdminPayout(ctx context.Context, recipient string, amount uint64) error {
	ctx, release, err := e.enter(ctx)
	if err != nil {
		return err
	}
	defer release()

	if err := e.payout(ctx, []Payout{{Recipient: recipient, Amount: amount}}, false); err != nil {
		metrics.RecordAdminPayout("failed")
		return err
	}
	metrics.RecordAdminPayout("ok")
	return nil
}

// BatchTransfer pays each group independently. A group is paid only when the
// pool covers its whole total; a failing group is rolled back on its own and
// the remaining groups still run.
func (e *Engine) BatchTransfer(ctx context.Context, groups [][]Payout) ([]GroupResult, error) {
	ctx, release, err := e.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	results := make([]GroupResult, len(groups))
	for i, group := range groups {
		results[i] = GroupResult{Index: i}
		total, err := groupTotal(group)
		results[i].Total = total
		if err == nil {
			err = e.payout(ctx, group, true)
		}
		if err != nil {
			results[i].Err = err
			metrics.RecordAdminPayout("failed")
			e.log(ctx).Warn("payout group failed", slog.Int("group", i), slog.Uint64("total", total), slog.Any("error", err))
			continue
		}
		results[i].Paid = true
		metrics.RecordAdminPayout("ok")
	}
	return results, nil
}

func groupTotal(group []Payout) (uint64, error) {
	if len(group) == 0 {
		return 0, ErrEmptyGroup
	}
	var total uint64
	for _, p := range group {
		if p.Recipient == "" {
			return 0, ErrEmptyIdentity
		}
		if p.Amount == 0 {
			return 0, ErrNonPositiveAmount
		}
		var err error
		if total, err = addAmounts(total, p.Amount); err != nil {
			return 0, err
		}
	}
	return total, nil
}

func (e *Engine) payout(ctx context.Context, group []Payout, checkPool bool) error {
	total, err := groupTotal(group)
	if err != nil {
		return err
	}
	if total > e.arena.totals.TotalStaked {
		return fmt.Errorf("%w: payout %d exceeds total staked %d", ErrInsufficientPoolBalance, total, e.arena.totals.TotalStaked)
	}
	if checkPool {
		pool, err := e.port.Balance(ctx)
		if err != nil {
			return fmt.Errorf("%w: pool balance: %w", ErrTransferFailure, err)
		}
		if total > pool {
			return fmt.Errorf("%w: group needs %d, pool holds %d", ErrInsufficientPoolBalance, total, pool)
		}
	}

	u := e.newUnit()
	for _, p := range group {
		if err := u.push(ctx, p.Recipient, p.Amount); err != nil {
			return u.abort(ctx, err)
		}
	}
	if u.cs.Totals.TotalStaked, err = subAmounts(u.cs.Totals.TotalStaked, total); err != nil {
		return u.abort(ctx, err)
	}
	if u.cs.Totals.AdminPaidOut, err = addAmounts(u.cs.Totals.AdminPaidOut, total); err != nil {
		return u.abort(ctx, err)
	}
	if err := u.commit(ctx); err != nil {
		return err
	}

	now := e.now().UTC()
	for _, p := range group {
		e.log(ctx).Info("admin payout", slog.String("recipient", p.Recipient), slog.Uint64("amount", p.Amount))
		e.notify(ctx, notification.Message{Kind: notification.KindAdminPayout, Subject: p.Recipient, Amount: p.Amount, OccurredAt: now})
	}
	return nil
}
