package vault

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/congo-pay/payout_vault/internal/middleware"
)

// Handler exposes vault HTTP endpoints.
type Handler struct {
	vault *Vault
}

// NewHandler builds a vault HTTP handler.
func NewHandler(v *Vault) *Handler {
	return &Handler{vault: v}
}

type initializeRequest struct {
	Asset string `json:"asset"`
}

type amountRequest struct {
	Amount int64 `json:"amount"`
}

type ownershipRequest struct {
	NewOwner string `json:"new_owner"`
}

type withdrawRequest struct {
	Destination string `json:"destination"`
}

type upgradeRequest struct {
	Version int             `json:"version"`
	Payload json.RawMessage `json:"payload"`
}

type accountResponse struct {
	Account      string `json:"account"`
	Balance      int64  `json:"balance"`
	Limit        int64  `json:"limit"`
	LastPayoutAt int64  `json:"last_payout_at"`
	NextPayoutAt int64  `json:"next_payout_at"`
	Status       Status `json:"status"`
}

type stateResponse struct {
	GlobalState
	Versions     []int  `json:"versions"`
	HeldBalance  *int64 `json:"held_balance,omitempty"`
	TotalPaidOut *int64 `json:"total_paid_out,omitempty"`
}

// Initialize binds the asset and makes the caller owner.
func (h *Handler) Initialize(c *fiber.Ctx) error {
	var req initializeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.vault.Initialize(c.UserContext(), middleware.Caller(c), req.Asset); err != nil {
		return httpError(err)
	}
	state, err := h.state(c.UserContext())
	if err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusCreated).JSON(state)
}

// Deposit credits the caller.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	caller := middleware.Caller(c)
	if _, err := h.vault.Deposit(c.UserContext(), caller, req.Amount); err != nil {
		return httpError(err)
	}
	return h.respondAccount(c, http.StatusCreated, caller)
}

// SetLimit sets the caller's payout limit.
func (h *Handler) SetLimit(c *fiber.Ctx) error {
	var req amountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	caller := middleware.Caller(c)
	if _, err := h.vault.SetLimit(c.UserContext(), caller, req.Amount); err != nil {
		return httpError(err)
	}
	return h.respondAccount(c, http.StatusOK, caller)
}

// Payout triggers a payout for the account in the path. Public so an
// external scheduler can drive it.
func (h *Handler) Payout(c *fiber.Ctx) error {
	account := c.Params("account")
	paid, err := h.vault.Payout(c.UserContext(), account)
	if err != nil {
		return httpError(err)
	}
	view, err := h.account(c.UserContext(), account)
	if err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"paid":    paid,
		"account": view,
	})
}

// Account returns the ledger entry of an account.
func (h *Handler) Account(c *fiber.Ctx) error {
	return h.respondAccount(c, http.StatusOK, c.Params("account"))
}

// Eligibility reports whether a payout would succeed now.
func (h *Handler) Eligibility(c *fiber.Ctx) error {
	account := c.Params("account")
	ok, reason, err := h.vault.CanPayout(c.UserContext(), account)
	if err != nil {
		return httpError(err)
	}
	next, err := h.vault.NextPayoutTime(c.UserContext(), account)
	if err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"account":        account,
		"eligible":       ok,
		"reason":         reason,
		"next_payout_at": next,
	})
}

// State returns the global record and the custody balance.
func (h *Handler) State(c *fiber.Ctx) error {
	state, err := h.state(c.UserContext())
	if err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusOK).JSON(state)
}

// TransferOwnership hands the owner capability to another address.
func (h *Handler) TransferOwnership(c *fiber.Ctx) error {
	var req ownershipRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.vault.TransferOwnership(c.UserContext(), middleware.Caller(c), req.NewOwner); err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"owner": req.NewOwner})
}

// EmergencyWithdraw drains custody to a destination.
func (h *Handler) EmergencyWithdraw(c *fiber.Ctx) error {
	var req withdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	moved, err := h.vault.EmergencyWithdraw(c.UserContext(), middleware.Caller(c), req.Destination)
	if err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"destination": req.Destination,
		"amount":      moved,
	})
}

// Upgrade swaps the active logic version.
func (h *Handler) Upgrade(c *fiber.Ctx) error {
	var req upgradeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if err := h.vault.Upgrade(c.UserContext(), middleware.Caller(c), req.Version, req.Payload); err != nil {
		return httpError(err)
	}
	state, err := h.state(c.UserContext())
	if err != nil {
		return httpError(err)
	}
	return c.Status(http.StatusOK).JSON(state)
}

func (h *Handler) respondAccount(c *fiber.Ctx, status int, account Address) error {
	view, err := h.account(c.UserContext(), account)
	if err != nil {
		return httpError(err)
	}
	return c.Status(status).JSON(view)
}

func (h *Handler) account(ctx context.Context, account Address) (accountResponse, error) {
	a, err := h.vault.Account(ctx, account)
	if err != nil {
		return accountResponse{}, err
	}
	next, err := h.vault.NextPayoutTime(ctx, account)
	if err != nil {
		return accountResponse{}, err
	}
	status, err := h.vault.Status(ctx, account)
	if err != nil {
		return accountResponse{}, err
	}
	return accountResponse{
		Account:      account,
		Balance:      a.Balance,
		Limit:        a.Limit,
		LastPayoutAt: a.LastPayoutAt,
		NextPayoutAt: next,
		Status:       status,
	}, nil
}

func (h *Handler) state(ctx context.Context) (stateResponse, error) {
	g, err := h.vault.State(ctx)
	if err != nil {
		return stateResponse{}, err
	}
	resp := stateResponse{GlobalState: g, Versions: h.vault.Versions()}
	if !g.Initialized {
		return resp, nil
	}
	held, err := h.vault.HeldBalance(ctx)
	if err != nil {
		return stateResponse{}, err
	}
	resp.HeldBalance = &held
	total, err := h.vault.TotalPaidOut(ctx)
	switch {
	case err == nil:
		resp.TotalPaidOut = &total
	case !errors.Is(err, ErrNotSupported):
		return stateResponse{}, err
	}
	return resp, nil
}

// StatusFor maps vault errors to HTTP status codes.
func StatusFor(err error) int {
	switch errorKind(err) {
	case "zero_address", "zero_amount", "negative_amount", "amount_overflow":
		return http.StatusBadRequest
	case "only_owner":
		return http.StatusForbidden
	case "payout_too_early", "insufficient_balance", "reentrant_call", "already_initialized",
		"already_upgraded", "version_downgrade", "layout_mismatch":
		return http.StatusConflict
	case "not_initialized":
		return http.StatusPreconditionFailed
	case "unknown_logic":
		return http.StatusNotFound
	case "not_supported":
		return http.StatusNotImplemented
	case "transfer_failed":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func httpError(err error) error {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		return fiber.NewError(status, "internal error")
	}
	return fiber.NewError(status, err.Error())
}
