package routes

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/payout_vault/internal/asset"
	"github.com/congo-pay/payout_vault/internal/vault"
)

type mintRequest struct {
	Holder string `json:"holder"`
	Amount int64  `json:"amount"`
}

// RegisterDevRoutes adds helpers that only make sense against the in-memory
// backends: minting the vault asset to a holder so it can be deposited.
func RegisterDevRoutes(r fiber.Router, v *vault.Vault, ledger asset.Ledger) {
	r.Post("/dev/mint", func(c *fiber.Ctx) error {
		var req mintRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if req.Holder == "" || req.Amount <= 0 {
			return fiber.NewError(http.StatusBadRequest, "holder and a positive amount are required")
		}
		state, err := v.State(c.UserContext())
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		if !state.Initialized {
			return fiber.NewError(http.StatusPreconditionFailed, vault.ErrNotInitialized.Error())
		}
		custody, err := asset.NewCustody(c.UserContext(), ledger, state.Asset)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		balance, err := custody.Fund(c.UserContext(), req.Holder, req.Amount)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		return c.Status(http.StatusCreated).JSON(fiber.Map{
			"holder":  req.Holder,
			"asset":   state.Asset,
			"balance": balance,
		})
	})
}
