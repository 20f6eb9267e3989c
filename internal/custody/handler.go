package custody

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/congo-pay/stakepool/internal/ledger"
)

// Handler exposes pool funding over HTTP.
type Handler struct {
	pool *Pool
}

// NewHandler builds a custody HTTP handler.
func NewHandler(pool *Pool) *Handler {
	return &Handler{pool: pool}
}

type fundRequest struct {
	Amount     uint64 `json:"amount"`
	ClientTxID string `json:"client_tx_id"`
}

// Fund credits the pool from the funding rail. A replayed client_tx_id
// returns 200 with the original balance instead of 201.
func (h *Handler) Fund(c *fiber.Ctx) error {
	var req fundRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.ClientTxID == "" {
		req.ClientTxID = c.Get("Idempotency-Key")
	}
	if req.ClientTxID == "" {
		req.ClientTxID = uuid.NewString()
	}
	balance, err := h.pool.Fund(c.UserContext(), req.ClientTxID, req.Amount)
	status := http.StatusCreated
	switch {
	case errors.Is(err, ledger.ErrDuplicateTransaction):
		status = http.StatusOK
	case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ErrAmountTooLarge):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case err != nil:
		return err
	}
	return c.Status(status).JSON(fiber.Map{"client_tx_id": req.ClientTxID, "balance": balance})
}
