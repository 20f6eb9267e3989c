package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/stakepool/internal/config"
	"github.com/congo-pay/stakepool/internal/custody"
	"github.com/congo-pay/stakepool/internal/middleware"
	"github.com/congo-pay/stakepool/internal/staking"
	"github.com/congo-pay/stakepool/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg     config.Config
	DB      *pgxpool.Pool
	Cache   *redis.Client
	Logger  *slog.Logger
	Engine  *staking.Engine
	Wallets *wallet.Service
	Pool    *custody.Pool
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if d.Engine == nil || d.Wallets == nil || d.Pool == nil {
		return fmt.Errorf("engine, wallets and pool are required")
	}
	if !d.Cfg.IsDevelopment() && d.Cache == nil {
		return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	// Admin auth is mounted ahead of the idempotency replay.
	app.Use("/api/v1/admin", middleware.AdminAuth(d.Cfg.AdminTokenHash))

	api := app.Group("/api/v1")
	api.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	stakingHandler := staking.NewHandler(d.Engine)
	RegisterStakingRoutes(api, stakingHandler, middleware.SignupRateLimit(d.Cache, d.Cfg.SignupRateLimit, d.Logger))
	RegisterWalletRoutes(api, wallet.NewHandler(d.Wallets))

	RegisterAdminRoutes(api.Group("/admin"), stakingHandler, custody.NewHandler(d.Pool))

	return nil
}

// ErrorHandler renders errors as JSON bodies.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if fe, ok := err.(*fiber.Error); ok {
		code = fe.Code
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
