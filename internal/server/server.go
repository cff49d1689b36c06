package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/congo_vesting/internal/config"
	"github.com/congo-pay/congo_vesting/internal/middleware"
	"github.com/congo-pay/congo_vesting/internal/routes"
)

// maxBodyBytes bounds request bodies. Every vesting request is a small JSON object.
const maxBodyBytes = 64 * 1024

// Server wraps the Fiber application and shared dependencies.
type Server struct {
	app *fiber.App
	cfg config.Config
}

// New builds the vesting API. db and cache may be nil in development, in which case
// the ledger runs in memory and Redis-backed middleware is skipped.
func New(cfg config.Config, db *pgxpool.Pool, cache *redis.Client, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		BodyLimit:             maxBodyBytes,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
	})

	if err := routes.Setup(app, routes.Deps{Cfg: cfg, DB: db, Cache: cache, Logger: logger}); err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg}, nil
}

// errorHandler renders every failed request as {"error", "request_id"} so clients
// can quote the id when reporting a problem.
func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "internal server error"
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			msg = fe.Message
		} else if logger != nil {
			logger.Error("unhandled request error",
				slog.String("path", c.Path()),
				slog.String("request_id", middleware.RequestIDOf(c)),
				slog.Any("error", err),
			)
		}
		return c.Status(code).JSON(fiber.Map{
			"error":      msg,
			"request_id": middleware.RequestIDOf(c),
		})
	}
}

// Listen starts the HTTP server.
func (s *Server) Listen() error {
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
