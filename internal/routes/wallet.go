package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/stakepool/internal/wallet"
)

// RegisterWalletRoutes wires wallet-related endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Post("/wallets/:id/topup", h.TopUp)
	r.Get("/wallets/:id/balance", h.Balance)
}
