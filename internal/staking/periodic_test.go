package staking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPeriodicRewardsPayEligibleUserOnce(t *testing.T) {
	h := newHarness(t, nil)
	h.join(t, "U", testRoot, 2000)
	h.port.pool = 10000
	ctx := context.Background()

	h.clock.Advance(30 * time.Hour)
	res, err := h.engine.RunPeriodicRewards(ctx)
	require.NoError(t, err)
	require.Equal(t, []Reward{{Kind: KindPeriodicReward, Recipient: "U", Amount: 100}}, res.Paid)
	require.Empty(t, res.Skipped)

	u, err := h.engine.User("U")
	require.NoError(t, err)
	require.True(t, u.LastRewardAt.Equal(h.clock.Now()))
	require.Equal(t, uint64(9900), h.port.pool)

	history, err := h.engine.Transactions("U")
	require.NoError(t, err)
	require.Len(t, history, 2)

	h.clock.Advance(time.Hour)
	res, err = h.engine.RunPeriodicRewards(ctx)
	require.NoError(t, err)
	require.Empty(t, res.Paid)
	require.Equal(t, []Skip{{User: "U", Reason: SkipTooEarly}}, res.Skipped)

	again, err := h.engine.User("U")
	require.NoError(t, err)
	require.Equal(t, u, again)
	require.Equal(t, uint64(9900), h.port.pool)

	history, err = h.engine.Transactions("U")
	require.NoError(t, err)
	require.Len(t, history, 2)
}

func TestPeriodicRewardsSkipUserPoolCannotCover(t *testing.T) {
	h := newHarness(t, nil)
	h.join(t, "U1", testRoot, 2000)
	h.join(t, "U2", testRoot, 2000)
	signedUp := h.clock.Now()

	h.clock.Advance(30 * time.Hour)
	h.port.pool = 150

	res, err := h.engine.RunPeriodicRewards(context.Background())
	require.NoError(t, err)
	require.Equal(t, []Reward{{Kind: KindPeriodicReward, Recipient: "U1", Amount: 100}}, res.Paid)
	require.Equal(t, []Skip{{User: "U2", Reason: SkipInsufficientPool, Amount: 100}}, res.Skipped)

	u1, err := h.engine.User("U1")
	require.NoError(t, err)
	require.True(t, u1.LastRewardAt.Equal(h.clock.Now()))

	u2, err := h.engine.User("U2")
	require.NoError(t, err)
	require.True(t, u2.LastRewardAt.Equal(signedUp))
	require.Equal(t, uint64(50), h.port.pool)
}

func TestPeriodicRewardsOnlyScanRootReferrals(t *testing.T) {
	h := newHarness(t, nil)
	h.join(t, "A", testRoot, 2000)
	h.join(t, "B", "A", 4000)
	h.clock.Advance(48 * time.Hour)

	res, err := h.engine.RunPeriodicRewards(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Paid, 1)
	require.Equal(t, "A", res.Paid[0].Recipient)
	require.Empty(t, res.Skipped)
}

func TestPeriodicRewardsSkipZeroReward(t *testing.T) {
	h := newHarness(t, nil)
	h.join(t, "A", testRoot, 19)
	h.clock.Advance(25 * time.Hour)

	res, err := h.engine.RunPeriodicRewards(context.Background())
	require.NoError(t, err)
	require.Empty(t, res.Paid)
	require.Equal(t, []Skip{{User: "A", Reason: SkipZeroReward}}, res.Skipped)

	a, err := h.engine.User("A")
	require.NoError(t, err)
	require.True(t, a.LastRewardAt.Equal(a.SignupAt))
}

func TestPeriodicRewardsAbortOnTransferFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.join(t, "U1", testRoot, 2000)
	h.join(t, "U2", testRoot, 2000)
	h.join(t, "U3", testRoot, 2000)
	h.clock.Advance(25 * time.Hour)
	h.port.failPush["U2"] = errRailDown

	res, err := h.engine.RunPeriodicRewards(context.Background())
	require.ErrorIs(t, err, ErrTransferFailure)
	require.Len(t, res.Paid, 1)
	require.Equal(t, "U1", res.Paid[0].Recipient)

	u3, err := h.engine.User("U3")
	require.NoError(t, err)
	require.True(t, u3.LastRewardAt.Equal(u3.SignupAt))
}
