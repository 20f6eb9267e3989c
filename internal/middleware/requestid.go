package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/congo-pay/stakepool/internal/logging"
)

const requestIDHeader = "X-Request-ID"

// RequestID ensures each request carries an identifier, echoes it in the
// response and puts it on the user context, where logging.FromContext picks
// it up for the engine's log lines.
func RequestID() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqID := c.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(requestIDHeader, reqID)
		c.Locals(requestIDHeader, reqID)
		c.SetUserContext(logging.WithRequestID(c.UserContext(), reqID))

		return c.Next()
	}
}
