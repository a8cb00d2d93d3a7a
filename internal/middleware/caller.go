package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/payout_vault/internal/auth"
)

// CallerLocal is the fiber.Ctx local holding the authenticated caller
// address.
const CallerLocal = "caller"

// CallerAuth validates HS256 bearer tokens and stores the subject as the
// caller address.
func CallerAuth(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		token := strings.TrimSpace(authz[len("Bearer "):])
		caller, err := auth.CallerFromToken(token, []byte(secret), time.Now())
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}
		c.Locals(CallerLocal, caller)
		return c.Next()
	}
}

// Caller returns the caller address set by CallerAuth, or "".
func Caller(c *fiber.Ctx) string {
	caller, _ := c.Locals(CallerLocal).(string)
	return caller
}
