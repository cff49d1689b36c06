package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/congo_vesting/internal/funding"
)

// RegisterFundingRoutes wires deployment top-up endpoints.
func RegisterFundingRoutes(r fiber.Router, h *funding.Handler) {
	r.Post("/vestings/:id/deposits", h.Deposit)
}
