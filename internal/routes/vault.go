package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/payout_vault/internal/vault"
)

// RegisterVaultRoutes wires vault endpoints. Mutations by a caller require
// callerAuth; the payout trigger is public and rate limited per account.
// idempotent runs after callerAuth so replays stay scoped to one caller.
func RegisterVaultRoutes(r fiber.Router, h *vault.Handler, callerAuth, idempotent, payoutLimiter fiber.Handler) {
	r.Get("/vault/state", h.State)
	r.Get("/vault/accounts/:account", h.Account)
	r.Get("/vault/accounts/:account/eligibility", h.Eligibility)
	r.Post("/vault/payouts/:account", payoutLimiter, idempotent, h.Payout)

	r.Post("/vault/initialize", callerAuth, idempotent, h.Initialize)
	r.Post("/vault/deposits", callerAuth, idempotent, h.Deposit)
	r.Put("/vault/limit", callerAuth, idempotent, h.SetLimit)

	r.Post("/admin/ownership", callerAuth, idempotent, h.TransferOwnership)
	r.Post("/admin/emergency-withdraw", callerAuth, idempotent, h.EmergencyWithdraw)
	r.Post("/admin/upgrade", callerAuth, idempotent, h.Upgrade)
}
