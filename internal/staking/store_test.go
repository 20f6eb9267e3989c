package staking

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func reopen(t *testing.T, h *harness, store Store) *Engine {
	t.Helper()
	e, err := NewEngine(context.Background(), Config{
		RootID: testRoot,
		Port:   h.port,
		Store:  store,
		Logger: quietLogger(),
		Clock:  h.clock.Now,
	})
	require.NoError(t, err)
	return e
}

func requireSameLedger(t *testing.T, want, got *Engine, ids ...string) {
	t.Helper()
	require.Equal(t, want.Totals(), got.Totals())

	wantTree, err := want.ReferralTree(testRoot)
	require.NoError(t, err)
	gotTree, err := got.ReferralTree(testRoot)
	require.NoError(t, err)
	require.Equal(t, wantTree, gotTree)

	for _, id := range ids {
		w, err := want.User(id)
		require.NoError(t, err)
		g, err := got.User(id)
		require.NoError(t, err)
		require.Equal(t, w.Referrer, g.Referrer)
		require.Equal(t, w.Staked, g.Staked)
		require.Equal(t, w.Referrals, g.Referrals)
		require.True(t, w.LastRewardAt.Equal(g.LastRewardAt))

		wh, err := want.Transactions(id)
		require.NoError(t, err)
		gh, err := got.Transactions(id)
		require.NoError(t, err)
		require.Len(t, gh, len(wh))
		for i := range wh {
			require.Equal(t, wh[i].ID, gh[i].ID)
			require.Equal(t, wh[i].Seq, gh[i].Seq)
			require.Equal(t, wh[i].Kind, gh[i].Kind)
			require.Equal(t, wh[i].Amount, gh[i].Amount)
		}
	}
}

func TestMemoryStoreRestoresLedger(t *testing.T) {
	h := newHarness(t, nil)
	h.join(t, "A", testRoot, 1000)
	h.join(t, "B", "A", 1000)
	h.clock.Advance(25 * time.Hour)
	_, err := h.engine.RunPeriodicRewards(context.Background())
	require.NoError(t, err)

	restored := reopen(t, h, h.store)
	requireSameLedger(t, h.engine, restored, testRoot, "A", "B")

	var maxSeq uint64
	for _, id := range []string{testRoot, "A", "B"} {
		history, err := h.engine.Transactions(id)
		require.NoError(t, err)
		for _, tx := range history {
			maxSeq = max(maxSeq, tx.Seq)
		}
	}

	h.port.wallets["D"] = 1000
	next, err := restored.Signup(context.Background(), SignupInput{ID: "D", Referrer: "A", Amount: 1000})
	require.NoError(t, err)
	require.Equal(t, maxSeq+1, next.Stake.Seq)
	require.Equal(t, "A", next.User.Referrer)
	layers, err := restored.ReferralTree("A")
	require.NoError(t, err)
	require.Equal(t, [][]string{{"B", "D"}}, layers)
}

func TestNewEngineRejectsForeignRoot(t *testing.T) {
	h := newHarness(t, nil)

	_, err := NewEngine(context.Background(), Config{RootID: "other", Port: h.port, Store: h.store, Logger: quietLogger()})
	require.Error(t, err)

	_, err = NewEngine(context.Background(), Config{Port: h.port})
	require.Error(t, err)
	_, err = NewEngine(context.Background(), Config{RootID: testRoot})
	require.Error(t, err)
}

func TestBoltStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	store, err := OpenBoltStore(path)
	require.NoError(t, err)

	h := newHarness(t, store)
	h.join(t, "A", testRoot, 1000)
	h.join(t, "B", "A", 2000)
	require.NoError(t, h.engine.AdminPayout(context.Background(), "treasury", 100))
	require.NoError(t, store.Close())

	reopened, err := OpenBoltStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	restored := reopen(t, h, reopened)
	requireSameLedger(t, h.engine, restored, testRoot, "A", "B")
	require.Equal(t, Totals{TotalStaked: 2900, AdminPaidOut: 100}, restored.Totals())
}
