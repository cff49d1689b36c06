package middleware

import (
	"bytes"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/congo_vesting/internal/identity"
	"github.com/congo-pay/congo_vesting/internal/vesting"
)

func TestCallerParsesHeader(t *testing.T) {
	want := identity.MustParse(strings.Repeat("0a", identity.Size))

	app := fiber.New()
	app.Use(Caller())
	app.Get("/whoami", func(c *fiber.Ctx) error {
		id, ok := c.Locals(vesting.CallerLocal).(identity.ID)
		if !ok {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.SendString(id.String())
	})

	req := httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
	req.Header.Set(CallerHeader, want.String())
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected %d got %d", fiber.StatusOK, resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest(fiber.MethodGet, "/whoami", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected pass-through without header, got %d", resp.StatusCode)
	}

	bad := httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
	bad.Header.Set(CallerHeader, "zz")
	resp, err = app.Test(bad)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected %d got %d", fiber.StatusBadRequest, resp.StatusCode)
	}
}

func TestRateLimit(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := fiber.New()
	app.Post("/release", RateLimit(cache, "release", 2), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for i, want := range []int{fiber.StatusOK, fiber.StatusOK, fiber.StatusTooManyRequests} {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/release", nil))
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if resp.StatusCode != want {
			t.Fatalf("request %d: expected %d got %d", i, want, resp.StatusCode)
		}
	}

	mr.FastForward(61 * time.Second)
	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/release", nil))
	if err != nil {
		t.Fatalf("request after window: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected budget reset after window, got %d", resp.StatusCode)
	}
}

func TestRateLimitWithoutCache(t *testing.T) {
	app := fiber.New()
	app.Post("/release", RateLimit(nil, "release", 1), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/release", nil))
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("expected no limit without redis, got %d", resp.StatusCode)
		}
	}
}

func TestAuditLogsRequestContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	caller := identity.MustParse(strings.Repeat("0b", identity.Size))

	app := fiber.New()
	app.Use(RequestID(), Audit(logger), Caller())
	app.Post("/vestings/:id/release", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusConflict, "zero releasable balance")
	})

	req := httptest.NewRequest(fiber.MethodPost, "/vestings/abc/release", nil)
	req.Header.Set(CallerHeader, caller.String())
	req.Header.Set(RequestIDHeader, "req-1")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("expected %d got %d", fiber.StatusConflict, resp.StatusCode)
	}
	if got := resp.Header.Get(RequestIDHeader); got != "req-1" {
		t.Fatalf("expected request id echoed, got %q", got)
	}

	line := buf.String()
	for _, want := range []string{`"level":"WARN"`, `"status":409`, `"deployment_id":"abc"`, `"request_id":"req-1"`, caller.String()} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in audit line %s", want, line)
		}
	}
}
