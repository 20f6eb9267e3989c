package staking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/congo-pay/stakepool/internal/metrics"
)

// Skip reasons reported by the periodic pass.
const (
	SkipTooEarly         = "too_early"
	SkipNoStake          = "no_stake"
	SkipZeroReward       = "zero_reward"
	SkipInsufficientPool = "insufficient_pool"
)

// Skip records a user the periodic pass did not pay.
type Skip struct {
	User   string `json:"user"`
	Reason string `json:"reason"`
	Amount uint64 `json:"amount,omitempty"`
}

// PeriodicResult summarizes one periodic reward pass.
type PeriodicResult struct {
	RanAt   time.Time `json:"ran_at"`
	Paid    []Reward  `json:"paid"`
	Skipped []Skip    `json:"skipped"`
}

// RunPeriodicRewards pays stakedAmount/20 to each of the root's direct
// referrals whose signup and last reward are both at least 24h old. The pool
// balance is read once; a user it cannot cover is skipped and the pass goes
// on. Each paid user is committed on its own, so a later transfer failure
// aborts the remaining pass but keeps earlier payments.
func (e *Engine) RunPeriodicRewards(ctx context.Context) (PeriodicResult, error) {
	ctx, release, err := e.enter(ctx)
	if err != nil {
		return PeriodicResult{}, err
	}
	defer release()

	now := e.now().UTC()
	res := PeriodicResult{RanAt: now, Paid: []Reward{}, Skipped: []Skip{}}

	available, err := e.port.Balance(ctx)
	if err != nil {
		return res, fmt.Errorf("%w: pool balance: %w", ErrTransferFailure, err)
	}

	for _, id := range e.arena.directChildren(e.root) {
		r, _ := e.arena.lookup(id)
		if reason := eligibility(r, now); reason != "" {
			res.Skipped = append(res.Skipped, Skip{User: id, Reason: reason})
			continue
		}

		reward := r.staked / periodicRewardDivisor
		if reward == 0 {
			res.Skipped = append(res.Skipped, Skip{User: id, Reason: SkipZeroReward})
			metrics.RecordPeriodicSkip(SkipZeroReward)
			continue
		}
		if reward > available {
			res.Skipped = append(res.Skipped, Skip{User: id, Reason: SkipInsufficientPool, Amount: reward})
			metrics.RecordPeriodicSkip(SkipInsufficientPool)
			e.log(ctx).Warn("periodic reward skipped",
				slog.String("user", id),
				slog.Uint64("reward", reward),
				slog.Uint64("available", available),
			)
			continue
		}

		if err := e.payPeriodic(ctx, r, reward, now); err != nil {
			e.log(ctx).Error("periodic pass aborted", slog.String("user", id), slog.Any("error", err))
			return res, err
		}
		available -= reward
		res.Paid = append(res.Paid, Reward{Kind: KindPeriodicReward, Recipient: id, Amount: reward})
	}

	e.log(ctx).Info("periodic pass completed",
		slog.Time("ran_at", now),
		slog.Int("paid", len(res.Paid)),
		slog.Int("skipped", len(res.Skipped)),
	)
	return res, nil
}

func (e *Engine) payPeriodic(ctx context.Context, r *record, reward uint64, now time.Time) error {
	u := e.newUnit()
	if err := u.push(ctx, r.id, reward); err != nil {
		return err
	}
	rec := e.arena.userRecord(r)
	rec.LastRewardAt = now
	u.touch(rec)
	tx := u.record(KindPeriodicReward, r.id, "", reward, now)
	if err := u.commit(ctx); err != nil {
		return err
	}
	metrics.RecordReward(string(KindPeriodicReward), reward)
	e.notify(ctx, message(tx))
	return nil
}

func eligibility(r *record, now time.Time) string {
	if now.Before(r.signupAt.Add(rewardInterval)) || now.Before(r.lastRewardAt.Add(rewardInterval)) {
		return SkipTooEarly
	}
	if r.staked == 0 {
		return SkipNoStake
	}
	return ""
}
