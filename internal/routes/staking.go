package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/stakepool/internal/staking"
)

// RegisterStakingRoutes wires signup, stake and ledger read endpoints.
func RegisterStakingRoutes(r fiber.Router, h *staking.Handler, signupLimiter fiber.Handler) {
	if signupLimiter != nil {
		r.Post("/signup", signupLimiter, h.Signup)
	} else {
		r.Post("/signup", h.Signup)
	}
	r.Get("/pool", h.Pool)

	users := r.Group("/users/:id")
	users.Get("", h.User)
	users.Get("/exists", h.Exists)
	users.Get("/referrals", h.Referrals)
	users.Get("/transactions", h.Transactions)
	users.Post("/stake", h.Stake)
}
