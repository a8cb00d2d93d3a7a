package asset

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Custody moves one asset between holders and the vault's custody account.
// Every call is a single ledger posting, so it either fully happens or not at
// all.
type Custody struct {
	ledger Ledger
	asset  string
	code   string
}

// NewCustody prepares the custody account for asset on ledger.
func NewCustody(ctx context.Context, ledger Ledger, asset string) (*Custody, error) {
	if ledger == nil {
		return nil, fmt.Errorf("asset ledger is required")
	}
	if asset == "" {
		return nil, fmt.Errorf("asset reference is required")
	}
	code := CustodyCode(asset)
	if err := ledger.EnsureAccount(ctx, code); err != nil {
		return nil, fmt.Errorf("ensure custody account: %w", err)
	}
	return &Custody{ledger: ledger, asset: asset, code: code}, nil
}

// Asset returns the asset reference this custody account holds.
func (c *Custody) Asset() string {
	return c.asset
}

// Pull moves amount from holder into custody.
func (c *Custody) Pull(ctx context.Context, from string, amount int64) error {
	if _, err := c.ledger.Transfer(ctx, HolderCode(from), c.code, KindPull, uuid.NewString(), amount); err != nil {
		return fmt.Errorf("pull %d from %s: %w", amount, from, err)
	}
	return nil
}

// Push moves amount from custody to holder, opening the holder account on
// first use.
func (c *Custody) Push(ctx context.Context, to string, amount int64) error {
	if err := c.ledger.EnsureAccount(ctx, HolderCode(to)); err != nil {
		return fmt.Errorf("ensure holder %s: %w", to, err)
	}
	if _, err := c.ledger.Transfer(ctx, c.code, HolderCode(to), KindPush, uuid.NewString(), amount); err != nil {
		return fmt.Errorf("push %d to %s: %w", amount, to, err)
	}
	return nil
}

// HeldBalance returns the amount currently in custody.
func (c *Custody) HeldBalance(ctx context.Context) (int64, error) {
	return c.ledger.Balance(ctx, c.code)
}

// Fund mints amount to holder. It stands in for the holder acquiring the
// asset elsewhere and is only wired in development mode.
func (c *Custody) Fund(ctx context.Context, holder string, amount int64) (int64, error) {
	code := HolderCode(holder)
	if err := c.ledger.EnsureAccount(ctx, code); err != nil {
		return 0, err
	}
	res, err := c.ledger.Mint(ctx, code, uuid.NewString(), amount)
	if err != nil {
		return 0, err
	}
	return res.ToBalance, nil
}
