package vault

import (
	"context"
	"fmt"
)

// Gateway moves the vault's asset. Each call either fully happens or fails
// without effect.
type Gateway interface {
	Pull(ctx context.Context, from Address, amount int64) error
	Push(ctx context.Context, to Address, amount int64) error
	HeldBalance(ctx context.Context) (int64, error)
}

// GatewayResolver returns the gateway for the asset recorded at
// initialization.
type GatewayResolver func(ctx context.Context, asset Address) (Gateway, error)

// FixedGateway resolves every asset to g.
func FixedGateway(g Gateway) GatewayResolver {
	return func(context.Context, Address) (Gateway, error) { return g, nil }
}

func transferFailed(err error) error {
	return fmt.Errorf("%w: %w", ErrTransferFailed, err)
}
