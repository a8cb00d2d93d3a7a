package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/payout_vault/internal/events"
)

const maxEventPage = 500

// RegisterEventRoutes exposes the event journal so a scheduler or auditor
// can catch up on what it missed.
func RegisterEventRoutes(r fiber.Router, journal *events.Journal) {
	r.Get("/vault/events", func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 100)
		if limit <= 0 || limit > maxEventPage {
			limit = maxEventPage
		}
		since := int64(c.QueryInt("since", 0))
		recorded, err := journal.Since(c.UserContext(), c.Query("topic"), since, limit)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, "journal unavailable")
		}
		out := make([]fiber.Map, 0, len(recorded))
		for _, r := range recorded {
			out = append(out, fiber.Map{
				"id":          r.ID,
				"topic":       r.Topic,
				"occurred_at": r.OccurredAt,
				"payload":     r.Payload,
			})
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{"events": out})
	})
}
