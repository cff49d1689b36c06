package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/congo_vesting/internal/config"
	"github.com/congo-pay/congo_vesting/internal/funding"
	"github.com/congo-pay/congo_vesting/internal/ledger"
	"github.com/congo-pay/congo_vesting/internal/middleware"
	"github.com/congo-pay/congo_vesting/internal/notification"
	"github.com/congo-pay/congo_vesting/internal/vesting"
	"github.com/congo-pay/congo_vesting/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
	// Clock overrides the wall clock; nil selects vesting.SystemClock.
	Clock vesting.Clock
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though config also checks.
	if !d.Cfg.IsDevelopment() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	// Health
	RegisterHealthRoutes(app, d)

	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Services and handlers
	var (
		ledgerBackend ledger.Ledger
		walletRepo    wallet.Repository
		vestingRepo   vesting.Repository
	)
	if d.DB != nil {
		ledgerBackend = ledger.NewPostgresLedger(d.DB)
		walletRepo = wallet.NewPostgresRepository(d.DB)
		vestingRepo = vesting.NewPostgresRepository(d.DB)
	} else {
		d.Logger.Warn("DATABASE_URL not set, using in-memory storage")
		ledgerBackend = ledger.NewInMemory()
		walletRepo = wallet.NewMemoryRepository()
		vestingRepo = vesting.NewMemoryRepository(ledgerBackend)
	}

	notifiers := notification.Fanout{notification.NewLoggerNotifier(d.Logger)}
	if d.Cache != nil {
		notifiers = append(notifiers, notification.NewStreamNotifier(d.Cache, d.Cfg.EventsStream))
	}

	walletSvc := wallet.NewService(walletRepo, ledgerBackend)
	vestingSvc := vesting.NewService(vestingRepo, walletSvc, d.Clock, notifiers, d.Logger)
	fundingSvc, err := funding.NewService(context.Background(), ledgerBackend, vestingSvc, notifiers, d.Logger)
	if err != nil {
		return err
	}

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDOf(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	releaseLimiter := middleware.RateLimit(d.Cache, "release", d.Cfg.ReleaseRateLimit)
	RegisterVestingRoutes(api, vesting.NewHandler(vestingSvc), releaseLimiter)
	RegisterFundingRoutes(api, funding.NewHandler(fundingSvc))
	RegisterWalletRoutes(api, wallet.NewHandler(walletSvc))

	return nil
}
