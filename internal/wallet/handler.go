package wallet

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/stakepool/internal/ledger"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type topUpRequest struct {
	Amount     int64  `json:"amount"`
	ClientTxID string `json:"client_tx_id"`
}

// TopUp credits the wallet named in the path.
func (h *Handler) TopUp(c *fiber.Ctx) error {
	var req topUpRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.ClientTxID == "" {
		req.ClientTxID = c.Get("Idempotency-Key")
	}
	res, err := h.service.TopUp(c.UserContext(), TopUpInput{
		Owner:      c.Params("id"),
		Amount:     req.Amount,
		ClientTxID: req.ClientTxID,
	})
	switch {
	case errors.Is(err, ledger.ErrDuplicateTransaction):
		return c.Status(http.StatusOK).JSON(res)
	case errors.Is(err, ledger.ErrInvalidAmount), errors.Is(err, ErrMissingOwner):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case err != nil:
		return err
	}
	return c.Status(http.StatusCreated).JSON(res)
}

// Balance returns the wallet balance.
func (h *Handler) Balance(c *fiber.Ctx) error {
	balance, err := h.service.Balance(c.UserContext(), c.Params("id"))
	if err != nil {
		if errors.Is(err, ErrWalletNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return err
	}
	return c.Status(http.StatusOK).JSON(balance)
}
