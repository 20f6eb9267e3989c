package staking

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes the reward engine over HTTP.
type Handler struct {
	engine *Engine
}

// NewHandler builds a staking HTTP handler.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// StatusFor maps engine errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnknownUser):
		return http.StatusNotFound
	case errors.Is(err, ErrInsufficientPoolBalance), errors.Is(err, ErrReentrantCall):
		return http.StatusConflict
	case errors.Is(err, ErrTransferFailure):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrEngineBusy):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func httpError(err error) error {
	return fiber.NewError(StatusFor(err), err.Error())
}

type signupRequest struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Referrer string `json:"referrer"`
	Amount   uint64 `json:"amount"`
}

// Signup registers a user under a referrer and stakes the deposit.
func (h *Handler) Signup(c *fiber.Ctx) error {
	var req signupRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	res, err := h.engine.Signup(c.UserContext(), SignupInput(req))
	if err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusCreated).JSON(res)
}

type amountRequest struct {
	Amount uint64 `json:"amount"`
}

// Stake deposits an additional amount for the user in the path.
func (h *Handler) Stake(c *fiber.Ctx) error {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	tx, err := h.engine.Stake(c.UserContext(), c.Params("id"), req.Amount)
	if err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusCreated).JSON(tx)
}

// User returns the read view of a registered identity.
func (h *Handler) User(c *fiber.Ctx) error {
	u, err := h.engine.User(c.Params("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(u)
}

// Exists reports whether an identity is registered.
func (h *Handler) Exists(c *fiber.Ctx) error {
	id := c.Params("id")
	return c.JSON(fiber.Map{"id": id, "exists": h.engine.UserExists(id)})
}

// Referrals returns the user's descendants layered by distance.
func (h *Handler) Referrals(c *fiber.Ctx) error {
	id := c.Params("id")
	layers, err := h.engine.ReferralTree(id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(fiber.Map{"id": id, "layers": layers})
}

// Transactions returns the user's history in append order.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	id := c.Params("id")
	txs, err := h.engine.Transactions(id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(fiber.Map{"id": id, "transactions": txs})
}

// Pool reports the custodial pool balance with the stake totals.
func (h *Handler) Pool(c *fiber.Ctx) error {
	balance, err := h.engine.PoolBalance(c.UserContext())
	if err != nil {
		return httpError(err)
	}
	totals := h.engine.Totals()
	return c.JSON(fiber.Map{
		"root":           h.engine.Root(),
		"balance":        balance,
		"total_staked":   totals.TotalStaked,
		"admin_paid_out": totals.AdminPaidOut,
	})
}

// RunPeriodic triggers one periodic reward pass.
func (h *Handler) RunPeriodic(c *fiber.Ctx) error {
	res, err := h.engine.RunPeriodicRewards(c.UserContext())
	if err != nil {
		return c.Status(StatusFor(err)).JSON(fiber.Map{"error": err.Error(), "result": res})
	}
	return c.JSON(res)
}

// Payout pushes an administrative payout out of the pool.
func (h *Handler) Payout(c *fiber.Ctx) error {
	var req Payout
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.engine.AdminPayout(c.UserContext(), req.Recipient, req.Amount); err != nil {
		return httpError(err)
	}
	return c.JSON(fiber.Map{"recipient": req.Recipient, "amount": req.Amount, "totals": h.engine.Totals()})
}

type batchRequest struct {
	Groups [][]Payout `json:"groups"`
}

type groupResponse struct {
	Index int    `json:"index"`
	Total uint64 `json:"total"`
	Paid  bool   `json:"paid"`
	Error string `json:"error,omitempty"`
}

// BatchTransfer pays each group atomically and independently. The response is
// 200 when every group was paid and 207 otherwise.
func (h *Handler) BatchTransfer(c *fiber.Ctx) error {
	var req batchRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if len(req.Groups) == 0 {
		return fiber.NewError(http.StatusBadRequest, "at least one group is required")
	}
	results, err := h.engine.BatchTransfer(c.UserContext(), req.Groups)
	if err != nil {
		return httpError(err)
	}

	status := http.StatusOK
	out := make([]groupResponse, len(results))
	for i, r := range results {
		out[i] = groupResponse{Index: r.Index, Total: r.Total, Paid: r.Paid}
		if r.Err != nil {
			out[i].Error = r.Err.Error()
			status = http.StatusMultiStatus
		}
	}
	return c.Status(status).JSON(fiber.Map{"groups": out, "totals": h.engine.Totals()})
}
