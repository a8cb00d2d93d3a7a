package middleware

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/payout_vault/internal/auth"
)

func TestCallerAuth(t *testing.T) {
	const secret = "test-secret"
	app := fiber.New()
	app.Use(CallerAuth(secret))
	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.SendString(Caller(c))
	})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/whoami", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}

	req := httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer not.a.token")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", resp.StatusCode)
	}

	token, err := auth.IssueCallerToken("alice", time.Hour, []byte(secret), time.Now())
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	req = httptest.NewRequest(fiber.MethodGet, "/whoami", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+token)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != fiber.StatusOK || string(body) != "alice" {
		t.Fatalf("expected 200 alice, got %d %q", resp.StatusCode, body)
	}
}
