package vault

import (
	"context"
	"fmt"

	"github.com/congo-pay/payout_vault/internal/events"
	"github.com/congo-pay/payout_vault/internal/idgen"
)

// Env is what a logic version sees during one call: the caller, the single
// operation timestamp, transactional storage, the asset gateway and the
// event buffer.
type Env struct {
	ctx      context.Context
	caller   Address
	now      int64
	store    Store
	resolve  GatewayResolver
	gateway  Gateway
	guard    *Guard
	readOnly bool
	pending  []events.Envelope
}

func (e *Env) Context() context.Context { return e.ctx }
func (e *Env) Caller() Address          { return e.caller }

// Now is the operation timestamp in Unix seconds.
func (e *Env) Now() int64 { return e.now }

func (e *Env) Global() (GlobalState, error) {
	return e.store.Global(e.ctx)
}

func (e *Env) PutGlobal(g GlobalState) error {
	if e.readOnly {
		return fmt.Errorf("write to vault state in a read-only call")
	}
	return e.store.PutGlobal(e.ctx, g)
}

func (e *Env) Account(addr Address) (Account, error) {
	return e.store.Account(e.ctx, addr)
}

func (e *Env) PutAccount(addr Address, a Account) error {
	if e.readOnly {
		return fmt.Errorf("write to account %s in a read-only call", addr)
	}
	return e.store.PutAccount(e.ctx, addr, a)
}

// Gateway resolves the asset gateway for the initialized asset. Resolution
// happens once per call. Inside a mutation every gateway call runs under the
// re-entrancy guard.
func (e *Env) Gateway() (Gateway, error) {
	if e.gateway != nil {
		return e.gateway, nil
	}
	g, err := e.Global()
	if err != nil {
		return nil, err
	}
	if !g.Initialized {
		return nil, ErrNotInitialized
	}
	gw, err := e.resolve(e.ctx, g.Asset)
	if err != nil {
		return nil, fmt.Errorf("resolve gateway for %s: %w", g.Asset, err)
	}
	if e.guard != nil {
		gw = guardedGateway{gw: gw, guard: e.guard}
	}
	e.gateway = gw
	return gw, nil
}

// Emit buffers an event. Buffered events are published only after the call
// commits.
func (e *Env) Emit(topic string, payload any) error {
	if e.readOnly {
		return fmt.Errorf("emit %s in a read-only call", topic)
	}
	id, err := idgen.Event()
	if err != nil {
		return err
	}
	e.pending = append(e.pending, events.Envelope{
		ID:         id,
		Topic:      topic,
		OccurredAt: e.now,
		Payload:    payload,
	})
	return nil
}

// requireOwner re-reads the owner from storage and compares it with the
// caller.
func (e *Env) requireOwner() (GlobalState, error) {
	g, err := e.Global()
	if err != nil {
		return GlobalState{}, err
	}
	if e.caller == "" || e.caller != g.Owner {
		return GlobalState{}, ErrOnlyOwner
	}
	return g, nil
}
