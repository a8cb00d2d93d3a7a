package vault

import (
	"context"
	"sync/atomic"
)

type guardKey struct{}

// guardEntry identifies one entry. It is not zero-sized so distinct entries
// never share an address.
type guardEntry struct{ _ byte }

// Guard rejects re-entrant calls into the vault. The operation holding the
// vault enters the guard, which marks its context, and runs every asset
// gateway call through Call. A mutation arriving with a marked context, or on
// any context while a gateway call is in flight, fails with ErrReentrantCall
// instead of waiting on a lock its own caller holds. Calls arriving outside a
// gateway call wait for the vault as usual.
type Guard struct {
	current atomic.Pointer[guardEntry]
	calling atomic.Bool
}

// Active reports whether ctx was issued by this guard for an operation still
// in flight.
func (g *Guard) Active(ctx context.Context) bool {
	entry, _ := ctx.Value(guardKey{}).(*guardEntry)
	return entry != nil && g.current.Load() == entry
}

// Calling reports whether a gateway call is in flight.
func (g *Guard) Calling() bool { return g.calling.Load() }

// Locked reports whether a call arriving on ctx must fail fast.
func (g *Guard) Locked(ctx context.Context) bool {
	return g.Active(ctx) || g.Calling()
}

// Enter marks the guard entered and returns the marked context. The caller
// must hold the vault lock and call release on every exit path.
func (g *Guard) Enter(ctx context.Context) (context.Context, func(), error) {
	if g.Locked(ctx) {
		return ctx, nil, ErrReentrantCall
	}
	entry := &guardEntry{}
	g.current.Store(entry)
	return context.WithValue(ctx, guardKey{}, entry), func() { g.current.Store(nil) }, nil
}

// Call runs fn as an outbound gateway call.
func (g *Guard) Call(fn func() error) error {
	g.calling.Store(true)
	defer g.calling.Store(false)
	return fn()
}

// guardedGateway brackets each call to the wrapped gateway with Guard.Call.
type guardedGateway struct {
	gw    Gateway
	guard *Guard
}

func (g guardedGateway) Pull(ctx context.Context, from Address, amount int64) error {
	return g.guard.Call(func() error { return g.gw.Pull(ctx, from, amount) })
}

func (g guardedGateway) Push(ctx context.Context, to Address, amount int64) error {
	return g.guard.Call(func() error { return g.gw.Push(ctx, to, amount) })
}

func (g guardedGateway) HeldBalance(ctx context.Context) (held int64, err error) {
	err = g.guard.Call(func() error {
		held, err = g.gw.HeldBalance(ctx)
		return err
	})
	return held, err
}
