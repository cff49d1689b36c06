package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/congo_vesting/internal/wallet"
)

// RegisterWalletRoutes wires wallet-related endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Get("/wallets/:identity/balance", h.Balance)
}
