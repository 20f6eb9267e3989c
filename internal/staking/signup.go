package staking

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/congo-pay/stakepool/internal/metrics"
	"github.com/congo-pay/stakepool/internal/notification"
)

// SignupInput registers ID under Referrer and deposits Amount.
type SignupInput struct {
	ID       string
	Name     string
	Referrer string
	Amount   uint64
}

// SignupResult reports the committed signup.
type SignupResult struct {
	User    User        `json:"user"`
	Stake   Transaction `json:"stake"`
	Rewards []Reward    `json:"rewards"`
}

// Signup registers a user, links it under its referrer, records its stake and
// pays the referral and level-up rewards as one unit. Every sufficiency check
// runs before any value moves; a failure leaves no trace in the ledger.
func (e *Engine) Signup(ctx context.Context, in SignupInput) (SignupResult, error) {
	ctx, release, err := e.enter(ctx)
	if err != nil {
		return SignupResult{}, err
	}
	defer release()

	res, err := e.signup(ctx, in)
	if err != nil {
		outcome := "rejected"
		if isPoolShortfall(err) {
			outcome = "pool_shortfall"
		}
		metrics.RecordSignup(outcome)
		e.log(ctx).Warn("signup aborted", slog.String("user", in.ID), slog.String("referrer", in.Referrer), slog.Any("error", err))
		return SignupResult{}, err
	}
	metrics.RecordSignup("ok")
	return res, nil
}

func (e *Engine) signup(ctx context.Context, in SignupInput) (SignupResult, error) {
	if err := e.validateSignup(in); err != nil {
		return SignupResult{}, err
	}

	rewards, total, err := e.signupRewards(in.Referrer, in.Amount)
	if err != nil {
		return SignupResult{}, err
	}
	totalStaked, err := addAmounts(e.arena.totals.TotalStaked, in.Amount)
	if err != nil {
		return SignupResult{}, err
	}

	pool, err := e.port.Balance(ctx)
	if err != nil {
		return SignupResult{}, fmt.Errorf("%w: pool balance: %w", ErrTransferFailure, err)
	}
	if total > pool {
		return SignupResult{}, fmt.Errorf("%w: signup rewards need %d, pool holds %d", ErrInsufficientPoolBalance, total, pool)
	}

	u := e.newUnit()
	if err := u.pull(ctx, in.ID, in.Amount); err != nil {
		return SignupResult{}, err
	}
	for _, r := range rewards {
		if err := u.push(ctx, r.Recipient, r.Amount); err != nil {
			return SignupResult{}, u.abort(ctx, err)
		}
	}

	now := e.now().UTC()
	u.touch(UserRecord{
		Seq:          e.arena.nextSeq(),
		ID:           in.ID,
		Name:         in.Name,
		Referrer:     in.Referrer,
		SignupAt:     now,
		LastRewardAt: now,
		Staked:       in.Amount,
	})
	stake := u.record(KindStake, in.ID, "", in.Amount, now)
	for _, r := range rewards {
		u.record(r.Kind, r.Recipient, in.ID, r.Amount, now)
	}
	u.cs.Totals.TotalStaked = totalStaked

	if err := u.commit(ctx); err != nil {
		return SignupResult{}, err
	}

	metrics.RecordStake(in.Amount)
	for _, r := range rewards {
		metrics.RecordReward(string(r.Kind), r.Amount)
	}
	e.log(ctx).Info("signup committed",
		slog.String("user", in.ID),
		slog.String("referrer", in.Referrer),
		slog.Uint64("stake", in.Amount),
		slog.Int("rewards", len(rewards)),
		slog.Uint64("rewards_total", total),
	)

	messages := []notification.Message{{Kind: notification.KindRegistration, Subject: in.ID, Source: in.Referrer, OccurredAt: now}}
	for _, tx := range u.cs.Transactions {
		messages = append(messages, message(tx))
	}
	e.notify(ctx, messages...)

	r, _ := e.arena.lookup(in.ID)
	return SignupResult{
		User:    e.arena.view(r),
		Stake:   stake,
		Rewards: rewards,
	}, nil
}

func (e *Engine) validateSignup(in SignupInput) error {
	if in.ID == "" {
		return ErrEmptyIdentity
	}
	if in.Amount == 0 {
		return ErrNonPositiveAmount
	}
	if e.arena.exists(in.ID) {
		return ErrAlreadyRegistered
	}
	if in.Referrer == in.ID {
		return ErrSelfReferral
	}
	if !e.arena.exists(in.Referrer) {
		return ErrUnknownReferrer
	}
	return nil
}

// signupRewards computes the referral reward followed by the level-up rewards
// in ancestor-walk order. Every hop is compared against the new user's direct
// referrer, not the hop's own predecessor, so hop 1 is always excluded.
func (e *Engine) signupRewards(referrer string, stake uint64) ([]Reward, uint64, error) {
	rewards := make([]Reward, 0, levelUpMaxHops+1)
	var total uint64

	if referrer != e.root {
		amount, err := percentOf(stake, referralRewardPercent)
		if err != nil {
			return nil, 0, err
		}
		if amount > 0 {
			rewards = append(rewards, Reward{Kind: KindReferralReward, Recipient: referrer, Amount: amount})
			total = amount
		}
	}

	percent := uint64(levelUpStartPercent)
	for ancestor, hop := range e.signupChain(referrer) {
		if percent == 0 {
			break
		}
		if ancestor != e.root && ancestor != referrer {
			amount, err := percentOf(stake, percent)
			if err != nil {
				return nil, 0, err
			}
			if amount > 0 {
				rewards = append(rewards, Reward{Kind: KindLevelUpReward, Recipient: ancestor, Amount: amount, Hop: hop})
				if total, err = addAmounts(total, amount); err != nil {
					return nil, 0, err
				}
			}
		}
		percent--
	}
	return rewards, total, nil
}

// signupChain is the ancestor walk of a user about to join under referrer:
// the referrer is hop 1, followed by the referrer's own ancestor walk.
func (e *Engine) signupChain(referrer string) iter.Seq2[string, int] {
	return func(yield func(string, int) bool) {
		if !e.arena.exists(referrer) || !yield(referrer, 1) {
			return
		}
		for ancestor, hop := range e.arena.ancestorWalk(referrer, levelUpMaxHops-1) {
			if !yield(ancestor, hop+1) {
				return
			}
		}
	}
}
