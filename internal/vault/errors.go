package vault

import "errors"

var (
	// ErrZeroAddress rejects the null identity where a real one is required.
	ErrZeroAddress = errors.New("zero address")

	// ErrZeroAmount covers zero deposits, accounts without a payout limit and
	// an empty custody balance on emergency recovery.
	ErrZeroAmount = errors.New("zero amount")

	ErrNegativeAmount = errors.New("negative amount")
	ErrAmountOverflow = errors.New("amount overflows balance")

	// ErrOnlyOwner is returned when the caller is not the current owner.
	ErrOnlyOwner = errors.New("caller is not the owner")

	// ErrPayoutTooEarly means the account's cooldown has not elapsed.
	ErrPayoutTooEarly = errors.New("payout too early")

	// ErrInsufficientBalance means the balance is below the payout limit.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrTransferFailed wraps any asset gateway failure. The operation that
	// triggered the transfer is rolled back.
	ErrTransferFailed = errors.New("asset transfer failed")

	// ErrReentrantCall is returned when a mutating operation is entered while
	// another one is still in flight on the same vault.
	ErrReentrantCall = errors.New("reentrant call")

	ErrNotInitialized     = errors.New("vault not initialized")
	ErrAlreadyInitialized = errors.New("vault already initialized")

	ErrUnknownLogic     = errors.New("unknown logic version")
	ErrAlreadyUpgraded  = errors.New("logic version already active")
	ErrVersionDowngrade = errors.New("logic version is older than the active one")
	ErrLayoutMismatch   = errors.New("storage layout is not an append-only extension")

	// ErrNotSupported is returned for reads the active logic does not offer.
	ErrNotSupported = errors.New("not supported by active logic")
)

// errorKind names err for metrics labels.
func errorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrZeroAddress):
		return "zero_address"
	case errors.Is(err, ErrZeroAmount):
		return "zero_amount"
	case errors.Is(err, ErrNegativeAmount):
		return "negative_amount"
	case errors.Is(err, ErrAmountOverflow):
		return "amount_overflow"
	case errors.Is(err, ErrOnlyOwner):
		return "only_owner"
	case errors.Is(err, ErrPayoutTooEarly):
		return "payout_too_early"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, ErrReentrantCall):
		return "reentrant_call"
	case errors.Is(err, ErrNotInitialized):
		return "not_initialized"
	case errors.Is(err, ErrAlreadyInitialized):
		return "already_initialized"
	case errors.Is(err, ErrUnknownLogic):
		return "unknown_logic"
	case errors.Is(err, ErrAlreadyUpgraded):
		return "already_upgraded"
	case errors.Is(err, ErrVersionDowngrade):
		return "version_downgrade"
	case errors.Is(err, ErrLayoutMismatch):
		return "layout_mismatch"
	case errors.Is(err, ErrNotSupported):
		return "not_supported"
	default:
		return "internal"
	}
}
