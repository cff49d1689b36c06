package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

const (
	backendOK       = "ok"
	backendInMemory = "in-memory"
	backendDisabled = "disabled"
)

// RegisterHealthRoutes adds the liveness endpoint. A missing database means the
// ledger runs in memory and a missing Redis disables idempotency, rate limiting
// and the event stream. Neither makes the service unhealthy; a configured backend
// that fails to answer does.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		healthy := true
		check := func(configured bool, absent string, ping func(context.Context) error) string {
			if !configured {
				return absent
			}
			if err := ping(ctx); err != nil {
				healthy = false
				return err.Error()
			}
			return backendOK
		}

		postgres := check(d.DB != nil, backendInMemory, func(ctx context.Context) error { return d.DB.Ping(ctx) })
		redisStatus := check(d.Cache != nil, backendDisabled, func(ctx context.Context) error { return d.Cache.Ping(ctx).Err() })

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"env":       d.Cfg.AppEnv,
			"status":    fiber.Map{"postgres": postgres, "redis": redisStatus},
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
