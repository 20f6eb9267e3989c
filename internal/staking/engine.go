package staking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/congo-pay/stakepool/internal/logging"
	"github.com/congo-pay/stakepool/internal/notification"
)

const defaultLockWait = 5 * time.Second

// ValueTransferPort moves the underlying asset between users and the pool.
// Calls are synchronous: a nil error means the movement fully happened.
type ValueTransferPort interface {
	Pull(ctx context.Context, from string, amount uint64) error
	Push(ctx context.Context, to string, amount uint64) error
	Balance(ctx context.Context) (uint64, error)
}

// Config wires an Engine. Store, Notifier, Logger, Clock and LockWait are
// optional. LockWait bounds how long a mutating call waits for the guard.
type Config struct {
	RootID   string
	RootName string
	Port     ValueTransferPort
	Store    Store
	Notifier notification.Notifier
	Logger   *slog.Logger
	Clock    func() time.Time
	LockWait time.Duration
}

// Engine is the reward engine. It owns the ledger arena and serializes every
// mutating operation behind a single guard. Reads take stateMu only, which is
// write-locked just while a committed changeset is applied to the arena, so a
// read never waits on a transfer in flight.
type Engine struct {
	guard    *semaphore.Weighted
	lockWait time.Duration
	stateMu  sync.RWMutex
	arena    *arena
	root     string
	port     ValueTransferPort
	store    Store
	notifier notification.Notifier
	logger   *slog.Logger
	now      func() time.Time
}

type inFlightKey struct{}

// NewEngine restores state from the store and registers the root identity
// when the store is empty.
func NewEngine(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.RootID == "" {
		return nil, fmt.Errorf("root identity is required")
	}
	if cfg.Port == nil {
		return nil, fmt.Errorf("value transfer port is required")
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.LockWait <= 0 {
		cfg.LockWait = defaultLockWait
	}

	e := &Engine{
		guard:    semaphore.NewWeighted(1),
		lockWait: cfg.LockWait,
		arena:    newArena(),
		root:     cfg.RootID,
		port:     cfg.Port,
		store:    cfg.Store,
		notifier: cfg.Notifier,
		logger:   logging.Component(cfg.Logger, "staking"),
		now:      cfg.Clock,
	}

	snapshot, err := e.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger state: %w", err)
	}
	if err := e.arena.apply(snapshot); err != nil {
		return nil, fmt.Errorf("restore ledger state: %w", err)
	}

	if len(e.arena.records) == 0 {
		now := e.now().UTC()
		root := Changeset{Users: []UserRecord{{
			Seq:          1,
			ID:           cfg.RootID,
			Name:         cfg.RootName,
			SignupAt:     now,
			LastRewardAt: now,
		}}}
		if err := e.store.Apply(ctx, root); err != nil {
			return nil, fmt.Errorf("persist root: %w", err)
		}
		if err := e.arena.apply(root); err != nil {
			return nil, err
		}
		e.logger.Info("root registered", slog.String("root", cfg.RootID))
	} else if got := e.arena.records[0].id; got != cfg.RootID {
		return nil, fmt.Errorf("stored root %q does not match configured root %q", got, cfg.RootID)
	}

	e.logger.Info("ledger restored",
		slog.Int("users", len(e.arena.records)),
		slog.Uint64("total_staked", e.arena.totals.TotalStaked),
	)
	return e, nil
}

// enter acquires the mutation guard. A call carrying the context of an
// operation in flight is rejected at once. Any other caller waits at most
// lockWait, so a callback that re-enters with a fresh context fails with
// ErrEngineBusy instead of hanging the engine.
func (e *Engine) enter(ctx context.Context) (context.Context, func(), error) {
	if owner, _ := ctx.Value(inFlightKey{}).(*Engine); owner == e {
		return nil, nil, ErrReentrantCall
	}
	if !e.guard.TryAcquire(1) {
		waitCtx, cancel := context.WithTimeout(ctx, e.lockWait)
		err := e.guard.Acquire(waitCtx, 1)
		cancel()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, nil, ctxErr
			}
			return nil, nil, fmt.Errorf("%w: guard still held after %s", ErrEngineBusy, e.lockWait)
		}
	}
	return context.WithValue(ctx, inFlightKey{}, e), func() { e.guard.Release(1) }, nil
}

// applyCommitted installs a persisted changeset in the arena.
func (e *Engine) applyCommitted(cs Changeset) error {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.arena.apply(cs)
}

// Root returns the root identity.
func (e *Engine) Root() string { return e.root }

// UserExists reports whether id is registered.
func (e *Engine) UserExists(id string) bool {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.arena.exists(id)
}

// User returns a read view of id.
func (e *Engine) User(id string) (User, error) {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	r, ok := e.arena.lookup(id)
	if !ok {
		return User{}, ErrUnknownUser
	}
	return e.arena.view(r), nil
}

// ReferralTree returns id's descendants layered by referral distance.
func (e *Engine) ReferralTree(id string) ([][]string, error) {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.arena.levelOrder(id)
}

// Transactions returns id's history in append order.
func (e *Engine) Transactions(id string) ([]Transaction, error) {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.arena.history(id)
}

// Totals returns the aggregate stake accounting.
func (e *Engine) Totals() Totals {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.arena.totals
}

// PoolBalance queries the custodial pool.
func (e *Engine) PoolBalance(ctx context.Context) (uint64, error) {
	balance, err := e.port.Balance(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: pool balance: %w", ErrTransferFailure, err)
	}
	return balance, nil
}

func (e *Engine) log(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, e.logger)
}

func (e *Engine) notify(ctx context.Context, messages ...notification.Message) {
	if e.notifier == nil {
		return
	}
	for _, m := range messages {
		if err := e.notifier.Send(ctx, m); err != nil {
			e.log(ctx).Warn("notification failed", slog.String("kind", m.Kind), slog.String("subject", m.Subject), slog.Any("error", err))
		}
	}
}

func message(tx Transaction) notification.Message {
	return notification.Message{
		Kind:       string(tx.Kind),
		Subject:    tx.Subject,
		Source:     tx.Source,
		Amount:     tx.Amount,
		OccurredAt: tx.Timestamp,
	}
}

func isPoolShortfall(err error) bool {
	return errors.Is(err, ErrInsufficientPoolBalance)
}
