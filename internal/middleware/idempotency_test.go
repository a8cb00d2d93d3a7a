package middleware

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/payout_vault/internal/logging"
)

func setupTestApp(t *testing.T) (*fiber.App, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}

	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	app := fiber.New()
	logger := logging.Discard()
	app.Use(Idempotency(cache, time.Minute, logger))
	app.Post("/resource", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true})
	})

	cleanup := func() {
		cache.Close()
		mr.Close()
	}

	return app, cleanup
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	app, cleanup := setupTestApp(t)
	defer cleanup()

	req := httptest.NewRequest(fiber.MethodPost, "/resource", strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}

	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected %d got %d", fiber.StatusBadRequest, resp.StatusCode)
	}
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	app, cleanup := setupTestApp(t)
	defer cleanup()

	body := strings.NewReader("{}")
	req := httptest.NewRequest(fiber.MethodPost, "/resource", body)
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req.Header.Set(idempotencyKeyHeader, "abc123")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("first request: %v", err)
	}

	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected status %d got %d", fiber.StatusCreated, resp.StatusCode)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()

	// Second request should return the cached response without invoking handler again.
	req2 := httptest.NewRequest(fiber.MethodPost, "/resource", strings.NewReader("{}"))
	req2.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	req2.Header.Set(idempotencyKeyHeader, "abc123")

	resp2, err := app.Test(req2)
	if err != nil {
		t.Fatalf("second request: %v", err)
	}

	if resp2.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected cached status %d got %d", fiber.StatusCreated, resp2.StatusCode)
	}

	cachedPayload, err := io.ReadAll(resp2.Body)
	if err != nil {
		t.Fatalf("read cached body: %v", err)
	}
	resp2.Body.Close()

	if string(cachedPayload) != string(payload) {
		t.Fatalf("expected cached payload %s got %s", string(payload), string(cachedPayload))
	}

	var decoded map[string]any
	if err := json.Unmarshal(cachedPayload, &decoded); err != nil {
		t.Fatalf("cached payload invalid json: %v", err)
	}
}

func TestIdempotencyKeysAreScopedByRoute(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	calls := map[string]int{}
	app := fiber.New()
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	for _, path := range []string{"/vault/deposits", "/vault/payouts/alice"} {
		path := path
		app.Post(path, func(c *fiber.Ctx) error {
			calls[path]++
			return c.SendStatus(fiber.StatusOK)
		})
	}

	for _, path := range []string{"/vault/deposits", "/vault/payouts/alice", "/vault/deposits"} {
		req := httptest.NewRequest(fiber.MethodPost, path, nil)
		req.Header.Set(idempotencyKeyHeader, "same-key")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request %s: %v", path, err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("expected 200 for %s, got %d", path, resp.StatusCode)
		}
	}

	if calls["/vault/deposits"] != 1 || calls["/vault/payouts/alice"] != 1 {
		t.Fatalf("expected one execution per route, got %v", calls)
	}
}

func TestIdempotencyReleasesKeyOnHandlerError(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	attempts := 0
	app := fiber.New()
	app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	app.Post("/vault/payouts/:account", func(c *fiber.Ctx) error {
		attempts++
		if attempts == 1 {
			return fiber.NewError(fiber.StatusConflict, "payout too early")
		}
		return c.SendStatus(fiber.StatusOK)
	})

	for i, want := range []int{fiber.StatusConflict, fiber.StatusOK} {
		req := httptest.NewRequest(fiber.MethodPost, "/vault/payouts/alice", nil)
		req.Header.Set(idempotencyKeyHeader, "retry-key")
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
		if resp.StatusCode != want {
			t.Fatalf("attempt %d: expected %d, got %d", i, want, resp.StatusCode)
		}
	}
}

func TestIdempotencyKeysAreScopedByCaller(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	calls := map[string]int{}
	app := fiber.New()
	app.Post("/vault/deposits",
		func(c *fiber.Ctx) error {
			c.Locals(CallerLocal, c.Get("X-Caller"))
			return c.Next()
		},
		Idempotency(cache, time.Minute, logging.Discard()),
		func(c *fiber.Ctx) error {
			caller := Caller(c)
			calls[caller]++
			return c.Status(fiber.StatusCreated).SendString(caller)
		},
	)

	for _, caller := range []string{"alice", "bob", "alice"} {
		req := httptest.NewRequest(fiber.MethodPost, "/vault/deposits", nil)
		req.Header.Set(idempotencyKeyHeader, "shared")
		req.Header.Set("X-Caller", caller)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request for %s: %v", caller, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if string(body) != caller {
			t.Fatalf("expected response for %s, got %q", caller, string(body))
		}
	}

	if calls["alice"] != 1 || calls["bob"] != 1 {
		t.Fatalf("expected one execution per caller, got %v", calls)
	}
}

func TestIdempotencyWithoutCachePassesThrough(t *testing.T) {
	app := fiber.New()
	app.Use(Idempotency(nil, time.Minute, logging.Discard()))
	app.Post("/resource", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/resource", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected %d got %d", fiber.StatusCreated, resp.StatusCode)
	}
}
