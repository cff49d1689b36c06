package middleware

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/congo_vesting/internal/identity"
	"github.com/congo-pay/congo_vesting/internal/vesting"
)

// CallerHeader carries the hex encoded identity of the calling account.
const CallerHeader = "X-Caller-Identity"

// Caller resolves the caller identity header into the request locals. Requests without
// the header pass through; handlers that need a caller reject them.
func Caller() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := c.Get(CallerHeader)
		if raw == "" {
			return c.Next()
		}
		id, err := identity.Parse(raw)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "invalid "+CallerHeader+" header")
		}
		c.Locals(vesting.CallerLocal, id)
		return c.Next()
	}
}
