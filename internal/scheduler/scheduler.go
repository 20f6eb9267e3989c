package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/congo-pay/stakepool/internal/logging"
	"github.com/congo-pay/stakepool/internal/staking"
)

// RewardRunner executes one periodic reward pass.
type RewardRunner interface {
	RunPeriodicRewards(ctx context.Context) (staking.PeriodicResult, error)
}

// Scheduler triggers periodic reward passes on a cron schedule. A tick that
// fires while the previous pass is still running is skipped.
type Scheduler struct {
	cron    *cron.Cron
	runner  RewardRunner
	logger  *slog.Logger
	timeout time.Duration
	ctx     context.Context
	cancel  context.CancelFunc
}

// New parses spec (standard five-field cron or descriptors such as "@daily")
// and prepares a scheduler. Runs are bounded by timeout when it is positive.
func New(spec string, runner RewardRunner, logger *slog.Logger, timeout time.Duration) (*Scheduler, error) {
	if runner == nil {
		return nil, errors.New("reward runner is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logging.Component(logger, "scheduler")

	adapter := cronLogger{logger: logger}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(adapter),
		cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{cron: c, runner: runner, logger: logger, timeout: timeout, ctx: ctx, cancel: cancel}
	if _, err := c.AddFunc(spec, s.tick); err != nil {
		cancel()
		return nil, fmt.Errorf("parse reward schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("reward scheduler started")
}

// Stop cancels an in-flight pass and waits for it to return or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) tick() {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	res, err := s.runner.RunPeriodicRewards(ctx)
	if err != nil {
		s.logger.Error("scheduled reward pass failed", slog.Any("error", err), slog.Int("paid", len(res.Paid)))
		return
	}
	s.logger.Info("scheduled reward pass finished", slog.Int("paid", len(res.Paid)), slog.Int("skipped", len(res.Skipped)))
}

// cronLogger routes cron's own logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
