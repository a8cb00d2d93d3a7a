package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

func TestRateLimitPerParam(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := fiber.New()
	app.Post("/payouts/:account", RateLimit(cache, "payout", 2, ByParam("account")), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	post := func(account string) int {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/payouts/"+account, nil))
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		return resp.StatusCode
	}

	for i := 0; i < 2; i++ {
		if got := post("alice"); got != fiber.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, got)
		}
	}
	if got := post("alice"); got != fiber.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d", got)
	}
	if got := post("bob"); got != fiber.StatusOK {
		t.Fatalf("other accounts keep their own budget, got %d", got)
	}

	mr.FastForward(61 * time.Second)
	if got := post("alice"); got != fiber.StatusOK {
		t.Fatalf("expected budget to reset after a minute, got %d", got)
	}
}

func TestRateLimitWithoutRedisPasses(t *testing.T) {
	app := fiber.New()
	app.Post("/payouts/:account", RateLimit(nil, "payout", 1, ByParam("account")), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/payouts/alice", nil))
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("expected pass-through, got %d", resp.StatusCode)
		}
	}
}
