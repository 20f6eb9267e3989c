package staking

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testRoot = "root"

var errRailDown = errors.New("rail down")

// fakePort is an in-process custody rail. Wallet balances must cover pulls
// and the pool must cover pushes.
type fakePort struct {
	mu       sync.Mutex
	pool     uint64
	wallets  map[string]uint64
	failPush map[string]error
	onPull   func(ctx context.Context)
	pulls    int
	pushes   int
}

func newFakePort() *fakePort {
	return &fakePort{wallets: make(map[string]uint64), failPush: make(map[string]error)}
}

func (p *fakePort) Pull(ctx context.Context, from string, amount uint64) error {
	if hook := p.onPull; hook != nil {
		hook(ctx)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.wallets[from] < amount {
		return errors.New("wallet balance too low")
	}
	p.wallets[from] -= amount
	p.pool += amount
	p.pulls++
	return nil
}

func (p *fakePort) Push(_ context.Context, to string, amount uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.failPush[to]; err != nil {
		return err
	}
	if p.pool < amount {
		return errors.New("pool balance too low")
	}
	p.pool -= amount
	p.wallets[to] += amount
	p.pushes++
	return nil
}

func (p *fakePort) Balance(context.Context) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pool, nil
}

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type failingStore struct {
	Store
	fail bool
}

var errStoreDown = errors.New("store down")

func (s *failingStore) Apply(ctx context.Context, cs Changeset) error {
	if s.fail {
		return errStoreDown
	}
	return s.Store.Apply(ctx, cs)
}

type harness struct {
	engine *Engine
	port   *fakePort
	clock  *testClock
	store  Store
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHarness(t *testing.T, store Store) *harness {
	t.Helper()
	if store == nil {
		store = NewMemoryStore()
	}
	h := &harness{
		port:  newFakePort(),
		clock: &testClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
		store: store,
	}
	e, err := NewEngine(context.Background(), Config{
		RootID:   testRoot,
		RootName: "Root",
		Port:     h.port,
		Store:    store,
		Logger:   quietLogger(),
		Clock:    h.clock.Now,
		LockWait: 50 * time.Millisecond,
	})
	require.NoError(t, err)
	h.engine = e
	return h
}

// join funds id's wallet and signs it up under referrer.
func (h *harness) join(t *testing.T, id, referrer string, stake uint64) SignupResult {
	t.Helper()
	h.port.wallets[id] += stake
	res, err := h.engine.Signup(context.Background(), SignupInput{ID: id, Name: id, Referrer: referrer, Amount: stake})
	require.NoError(t, err)
	return res
}

// requireBalancedTotals checks that every staked unit is either still counted
// in TotalStaked or was paid out administratively.
func requireBalancedTotals(t *testing.T, e *Engine) {
	t.Helper()
	layers, err := e.ReferralTree(e.Root())
	require.NoError(t, err)

	ids := []string{e.Root()}
	for _, layer := range layers {
		ids = append(ids, layer...)
	}
	var sum uint64
	for _, id := range ids {
		u, err := e.User(id)
		require.NoError(t, err)
		sum += u.Staked
	}
	totals := e.Totals()
	require.Equal(t, sum, totals.TotalStaked+totals.AdminPaidOut)
}
