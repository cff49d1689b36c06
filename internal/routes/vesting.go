package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/congo_vesting/internal/middleware"
	"github.com/congo-pay/congo_vesting/internal/vesting"
)

// RegisterVestingRoutes wires deployment, query and release endpoints. Release is
// permissionless, so it sits behind a per-IP rate limiter instead of the caller check.
func RegisterVestingRoutes(r fiber.Router, h *vesting.Handler, releaseLimiter fiber.Handler) {
	r.Post("/vestings", middleware.Caller(), h.Deploy)
	r.Get("/vestings", h.List)
	r.Get("/vestings/:id", h.Status)
	r.Get("/vestings/:id/:query", h.Query)
	if releaseLimiter != nil {
		r.Post("/vestings/:id/release", releaseLimiter, h.Release)
	} else {
		r.Post("/vestings/:id/release", h.Release)
	}
}
