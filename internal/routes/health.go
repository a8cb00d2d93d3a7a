package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RegisterHealthRoutes adds liveness/readiness style endpoints. Backends that
// are not configured report "disabled".
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		dbStatus, redisStatus, natsStatus := "disabled", "disabled", "disabled"

		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if d.DB != nil {
			dbStatus = statusOf(d.DB.Ping(ctx))
		}
		if d.Cache != nil {
			redisStatus = statusOf(d.Cache.Ping(ctx).Err())
		}
		if d.NATS != nil {
			natsStatus = statusOf(d.NATS.Ping())
		}

		status := http.StatusOK
		for _, s := range []string{dbStatus, redisStatus, natsStatus} {
			if s != "ok" && s != "disabled" {
				status = http.StatusServiceUnavailable
			}
		}
		return c.Status(status).JSON(fiber.Map{
			"status":    fiber.Map{"postgres": dbStatus, "redis": redisStatus, "nats": natsStatus},
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}

func statusOf(err error) string {
	if err != nil {
		return err.Error()
	}
	return "ok"
}
