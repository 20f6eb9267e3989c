package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/stakepool/internal/custody"
	"github.com/congo-pay/stakepool/internal/staking"
)

// RegisterAdminRoutes wires the administrative endpoints. Authorization is
// mounted by Setup on the /admin prefix.
func RegisterAdminRoutes(r fiber.Router, h *staking.Handler, pool *custody.Handler) {
	r.Post("/rewards/periodic", h.RunPeriodic)
	r.Post("/payouts", h.Payout)
	r.Post("/batch-transfers", h.BatchTransfer)
	r.Post("/pool/fund", pool.Fund)
}
