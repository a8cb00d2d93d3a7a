// Package asset implements the fungible asset the vault holds in custody: a
// double-entry ledger of holder accounts plus a Custody gateway that pulls
// deposits into, and pushes payouts out of, the vault's custody account.
package asset

import (
	"context"
	"errors"
)

var (
	// ErrInsufficientFunds occurs when the source account lacks available balance
	// to cover a requested posting.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateTransaction indicates the provided client transaction identifier
	// already exists and therefore the operation should be treated as idempotent.
	ErrDuplicateTransaction = errors.New("duplicate transaction")

	// ErrInvalidAmount rejects zero and negative postings.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrAccountNotFound is returned for postings against unknown account codes.
	ErrAccountNotFound = errors.New("account not found")
)

const (
	// StatusCompleted represents a settled posting.
	StatusCompleted = "completed"

	// IssuanceAccountCode is the only account allowed to go negative; minting
	// debits it so the ledger always sums to zero.
	IssuanceAccountCode = "issuance"

	// Posting kinds.
	KindTransfer = "transfer"
	KindMint     = "mint"
	KindPull     = "custody_pull"
	KindPush     = "custody_push"
)

// TransactionResult captures the outcome of a ledger posting.
type TransactionResult struct {
	TransactionID string
	FromBalance   int64
	ToBalance     int64
}

// Ledger defines the contract implemented by asset ledger backends.
type Ledger interface {
	EnsureAccount(ctx context.Context, code string) error
	Balance(ctx context.Context, code string) (int64, error)
	Transfer(ctx context.Context, fromCode, toCode, kind, clientTxID string, amount int64) (TransactionResult, error)
	Mint(ctx context.Context, code, clientTxID string, amount int64) (TransactionResult, error)
}

// HolderCode is the ledger account code of an external holder address.
func HolderCode(address string) string {
	return "holder:" + address
}

// CustodyCode is the ledger account code holding the vault's funds for asset.
func CustodyCode(asset string) string {
	return "custody:" + asset
}
