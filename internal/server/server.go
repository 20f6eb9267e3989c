package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/stakepool/internal/config"
	"github.com/congo-pay/stakepool/internal/custody"
	"github.com/congo-pay/stakepool/internal/ledger"
	"github.com/congo-pay/stakepool/internal/notification"
	"github.com/congo-pay/stakepool/internal/routes"
	"github.com/congo-pay/stakepool/internal/scheduler"
	"github.com/congo-pay/stakepool/internal/staking"
	"github.com/congo-pay/stakepool/internal/wallet"
)

const scheduledPassTimeout = 5 * time.Minute

// Server wraps the Fiber application, the reward engine and its background
// scheduler.
type Server struct {
	app       *fiber.App
	cfg       config.Config
	engine    *staking.Engine
	scheduler *scheduler.Scheduler
	closers   []func() error
	logger    *slog.Logger
}

// New builds the ledger, custody pool, staking engine and HTTP routes. db and
// cache may be nil in development, in which case in-memory backends are used.
func New(ctx context.Context, cfg config.Config, db *pgxpool.Pool, cache *redis.Client, logger *slog.Logger) (*Server, error) {
	var ledgerBackend ledger.Ledger
	if db != nil {
		ledgerBackend = ledger.NewPostgresLedger(db)
	} else {
		ledgerBackend = ledger.NewInMemory()
	}

	pool, err := custody.NewPool(ctx, ledgerBackend)
	if err != nil {
		return nil, err
	}

	s := &Server{cfg: cfg, logger: logger}
	store, err := s.openStore(cfg, db)
	if err != nil {
		return nil, err
	}

	engine, err := staking.NewEngine(ctx, staking.Config{
		RootID:   cfg.RootID,
		RootName: cfg.RootName,
		Port:     pool,
		Store:    store,
		Notifier: buildNotifier(cfg, cache, logger),
		Logger:   logger,
		LockWait: cfg.EngineLockWait,
	})
	if err != nil {
		s.close()
		return nil, fmt.Errorf("start staking engine: %w", err)
	}
	s.engine = engine

	if cfg.RewardSchedule != "" {
		s.scheduler, err = scheduler.New(cfg.RewardSchedule, engine, logger, scheduledPassTimeout)
		if err != nil {
			s.close()
			return nil, err
		}
	}

	s.app = fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: routes.ErrorHandler,
	})

	err = routes.Setup(s.app, routes.Deps{
		Cfg:     cfg,
		DB:      db,
		Cache:   cache,
		Logger:  logger,
		Engine:  engine,
		Wallets: wallet.NewService(ledgerBackend),
		Pool:    pool,
	})
	if err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

func (s *Server) openStore(cfg config.Config, db *pgxpool.Pool) (staking.Store, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		if db == nil {
			return nil, errors.New("postgres store selected without a database")
		}
		return staking.NewPostgresStore(db), nil
	case config.StoreBolt:
		store, err := staking.OpenBoltStore(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, store.Close)
		return store, nil
	default:
		return staking.NewMemoryStore(), nil
	}
}

func buildNotifier(cfg config.Config, cache *redis.Client, logger *slog.Logger) notification.Notifier {
	notifiers := notification.Multi{notification.NewLoggerNotifier(logger)}
	if cache != nil {
		notifiers = append(notifiers, notification.NewRedisNotifier(cache, cfg.NotifyChannel))
	}
	return notifiers
}

// App exposes the Fiber application, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

// Engine returns the staking engine.
func (s *Server) Engine() *staking.Engine { return s.engine }

// Listen starts the reward scheduler and the HTTP server.
func (s *Server) Listen() error {
	if s.scheduler != nil {
		s.scheduler.Start()
	}
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server, waits for a running reward pass
// and releases the store.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.app.ShutdownWithContext(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http: %w", err))
	}
	if s.scheduler != nil {
		if err := s.scheduler.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("scheduler: %w", err))
		}
	}
	if err := s.close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Server) close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
