package vault

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/congo-pay/payout_vault/internal/clock"
	"github.com/congo-pay/payout_vault/internal/events"
	"github.com/congo-pay/payout_vault/internal/logging"
)

// Options configures a Vault.
type Options struct {
	Backend   Backend
	Gateway   GatewayResolver
	Clock     clock.Clock
	Publisher events.Publisher
	Logger    *slog.Logger

	// Interval is the payout cooldown handed to the built-in logic versions.
	Interval time.Duration
	// DefaultVersion is bound at initialization. Zero means VersionV1.
	DefaultVersion int
	// Logics replaces the built-in registry when set.
	Logics []Logic
}

// Vault binds persistent state to the logic version it records. Mutating
// calls are serialized, guarded against re-entrance and run in one store
// transaction; their events are published after commit.
type Vault struct {
	backend        Backend
	gateway        GatewayResolver
	clock          clock.Clock
	publisher      events.Publisher
	logger         *slog.Logger
	logics         map[int]Logic
	defaultVersion int

	mu    sync.RWMutex
	guard Guard
}

// New validates opts and builds a Vault.
func New(opts Options) (*Vault, error) {
	if opts.Backend == nil {
		return nil, errors.New("vault backend is required")
	}
	if opts.Gateway == nil {
		return nil, errors.New("vault gateway is required")
	}

	logics := opts.Logics
	if logics == nil {
		v1, err := NewLedgerV1(opts.Interval)
		if err != nil {
			return nil, err
		}
		v2, err := NewLedgerV2(opts.Interval)
		if err != nil {
			return nil, err
		}
		logics = []Logic{v1, v2}
	}
	registry := make(map[int]Logic, len(logics))
	for _, l := range logics {
		if _, dup := registry[l.Version()]; dup {
			return nil, fmt.Errorf("logic version %d registered twice", l.Version())
		}
		if err := checkLayout(nil, l.Slots()); err != nil {
			return nil, fmt.Errorf("logic version %d: %w", l.Version(), err)
		}
		registry[l.Version()] = l
	}

	def := opts.DefaultVersion
	if def == 0 {
		def = VersionV1
	}
	if _, ok := registry[def]; !ok {
		return nil, fmt.Errorf("%w: default %d", ErrUnknownLogic, def)
	}

	v := &Vault{
		backend:        opts.Backend,
		gateway:        opts.Gateway,
		clock:          opts.Clock,
		publisher:      opts.Publisher,
		logger:         opts.Logger,
		logics:         registry,
		defaultVersion: def,
	}
	if v.clock == nil {
		v.clock = clock.NewSystem()
	}
	if v.publisher == nil {
		v.publisher = events.NoopPublisher{}
	}
	if v.logger == nil {
		v.logger = logging.Discard()
	}
	return v, nil
}

// Versions lists the registered logic versions in ascending order.
func (v *Vault) Versions() []int {
	out := make([]int, 0, len(v.logics))
	for version := range v.logics {
		out = append(out, version)
	}
	sort.Ints(out)
	return out
}

// Initialize records the asset, makes caller the owner and binds the default
// logic version. It succeeds once.
func (v *Vault) Initialize(ctx context.Context, caller, asset Address) error {
	return v.mutate(ctx, "initialize", caller, func(e *Env) error {
		if caller == "" || asset == "" {
			return ErrZeroAddress
		}
		g, err := e.Global()
		if err != nil {
			return err
		}
		if g.Initialized {
			return ErrAlreadyInitialized
		}
		g.Initialized = true
		g.Owner = caller
		g.Asset = asset
		g.LogicVersion = v.defaultVersion
		if err := e.PutGlobal(g); err != nil {
			return err
		}
		if _, err := e.Gateway(); err != nil {
			return err
		}
		return e.Emit(events.TopicOwnershipTransferred, events.OwnershipTransferred{Next: caller})
	})
}

// Deposit credits caller with amount pulled from caller's holdings.
func (v *Vault) Deposit(ctx context.Context, caller Address, amount int64) (Account, error) {
	var out Account
	err := v.mutate(ctx, "deposit", caller, func(e *Env) error {
		l, err := v.active(e)
		if err != nil {
			return err
		}
		out, err = l.Deposit(e, amount)
		return err
	})
	if err == nil {
		depositedUnitsTotal.Add(float64(amount))
	}
	return out, err
}

// SetLimit sets caller's payout limit. Zero disables payouts.
func (v *Vault) SetLimit(ctx context.Context, caller Address, amount int64) (Account, error) {
	var out Account
	err := v.mutate(ctx, "set_limit", caller, func(e *Env) error {
		l, err := v.active(e)
		if err != nil {
			return err
		}
		out, err = l.SetLimit(e, amount)
		return err
	})
	return out, err
}

// Payout releases account's limit to account if it is eligible. Anyone may
// trigger it.
func (v *Vault) Payout(ctx context.Context, account Address) (int64, error) {
	var paid int64
	err := v.mutate(ctx, "payout", "", func(e *Env) error {
		l, err := v.active(e)
		if err != nil {
			return err
		}
		paid, err = l.Payout(e, account)
		return err
	})
	if err != nil {
		return 0, err
	}
	paidOutUnitsTotal.Add(float64(paid))
	return paid, nil
}

// TransferOwnership hands the owner capability to next.
func (v *Vault) TransferOwnership(ctx context.Context, caller, next Address) error {
	return v.mutate(ctx, "transfer_ownership", caller, func(e *Env) error {
		l, err := v.active(e)
		if err != nil {
			return err
		}
		return l.TransferOwnership(e, next)
	})
}

// EmergencyWithdraw moves everything in custody to destination and returns
// the amount moved.
func (v *Vault) EmergencyWithdraw(ctx context.Context, caller, destination Address) (int64, error) {
	var moved int64
	err := v.mutate(ctx, "emergency_withdraw", caller, func(e *Env) error {
		l, err := v.active(e)
		if err != nil {
			return err
		}
		moved, err = l.EmergencyWithdraw(e, destination)
		return err
	})
	if err == nil {
		custodyHeldUnits.Set(0)
	}
	return moved, err
}

// Upgrade binds logic version and runs its migration with payload. State is
// carried over untouched apart from what the migration writes.
func (v *Vault) Upgrade(ctx context.Context, caller Address, version int, payload []byte) error {
	var from int
	err := v.mutate(ctx, "upgrade", caller, func(e *Env) error {
		l, err := v.active(e)
		if err != nil {
			return err
		}
		from = l.Version()
		return upgrade(e, l, v.logics, version, payload)
	})
	if err != nil {
		return err
	}
	v.logger.Info("vault logic upgraded",
		slog.Int("from", from),
		slog.Int("to", version),
		slog.String("owner", caller),
	)
	return nil
}

// CanPayout reports whether Payout(account) would succeed now. The reason is
// empty exactly when it would.
func (v *Vault) CanPayout(ctx context.Context, account Address) (bool, string, error) {
	var check error
	err := v.view(ctx, func(e *Env) error {
		l, err := v.active(e)
		if err != nil {
			return err
		}
		check = l.CheckPayout(e, account)
		return nil
	})
	if err != nil {
		return false, "", err
	}
	if check != nil {
		if !isDomainError(check) {
			return false, "", check
		}
		return false, check.Error(), nil
	}
	return true, "", nil
}

// NextPayoutTime returns the earliest Unix second at which account may be
// paid again.
func (v *Vault) NextPayoutTime(ctx context.Context, account Address) (int64, error) {
	var at int64
	err := v.view(ctx, func(e *Env) error {
		l, err := v.active(e)
		if err != nil {
			return err
		}
		at, err = l.NextPayoutTime(e, account)
		return err
	})
	return at, err
}

// Status derives the payout state of account.
func (v *Vault) Status(ctx context.Context, account Address) (Status, error) {
	var st Status
	err := v.view(ctx, func(e *Env) error {
		l, err := v.active(e)
		if err != nil {
			return err
		}
		st, err = statusOf(l.CheckPayout(e, account))
		return err
	})
	return st, err
}

// Account returns the stored record of account.
func (v *Vault) Account(ctx context.Context, account Address) (Account, error) {
	var a Account
	err := v.view(ctx, func(e *Env) error {
		var err error
		a, err = e.Account(account)
		return err
	})
	return a, err
}

// State returns the global record.
func (v *Vault) State(ctx context.Context) (GlobalState, error) {
	var g GlobalState
	err := v.view(ctx, func(e *Env) error {
		var err error
		g, err = e.Global()
		return err
	})
	return g, err
}

// HeldBalance returns what the gateway holds in custody.
func (v *Vault) HeldBalance(ctx context.Context) (int64, error) {
	var held int64
	err := v.view(ctx, func(e *Env) error {
		gw, err := e.Gateway()
		if err != nil {
			return err
		}
		if held, err = gw.HeldBalance(e.Context()); err != nil {
			return transferFailed(err)
		}
		return nil
	})
	if err == nil {
		custodyHeldUnits.Set(float64(held))
	}
	return held, err
}

// TotalPaidOut returns the cumulative payout counter of logic versions that
// keep one.
func (v *Vault) TotalPaidOut(ctx context.Context) (int64, error) {
	var total int64
	err := v.view(ctx, func(e *Env) error {
		l, err := v.active(e)
		if err != nil {
			return err
		}
		r, ok := l.(PaidOutReporter)
		if !ok {
			return fmt.Errorf("%w: total paid out under version %d", ErrNotSupported, l.Version())
		}
		total, err = r.TotalPaidOut(e)
		return err
	})
	return total, err
}

func (v *Vault) active(e *Env) (Logic, error) {
	g, err := e.Global()
	if err != nil {
		return nil, err
	}
	if !g.Initialized {
		return nil, ErrNotInitialized
	}
	l, ok := v.logics[g.LogicVersion]
	if !ok {
		return nil, fmt.Errorf("%w: bound version %d", ErrUnknownLogic, g.LogicVersion)
	}
	return l, nil
}

func (v *Vault) mutate(ctx context.Context, op string, caller Address, fn func(e *Env) error) (err error) {
	defer func() {
		observe(op, err)
		if err != nil && !isDomainError(err) {
			v.logger.Warn("vault operation failed", slog.String("operation", op), slog.Any("error", err))
		}
	}()

	if v.guard.Locked(ctx) {
		return ErrReentrantCall
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	ctx, release, err := v.guard.Enter(ctx)
	if err != nil {
		return err
	}
	defer release()

	now := v.clock.Now().Unix()
	var pending []events.Envelope
	err = v.backend.Atomic(ctx, func(ctx context.Context, s Store) error {
		e := &Env{ctx: ctx, caller: caller, now: now, store: s, resolve: v.gateway, guard: &v.guard}
		if err := fn(e); err != nil {
			return err
		}
		pending = e.pending
		return nil
	})
	if err != nil {
		return err
	}
	v.publish(context.WithoutCancel(ctx), pending)
	return nil
}

func (v *Vault) view(ctx context.Context, fn func(e *Env) error) error {
	// A read from inside an operation in flight already runs under the write
	// lock. A read arriving during a gateway call cannot wait for that lock
	// either; it sees committed state.
	switch {
	case v.guard.Active(ctx):
	case v.mu.TryRLock():
		defer v.mu.RUnlock()
	case v.guard.Calling():
	default:
		v.mu.RLock()
		defer v.mu.RUnlock()
	}
	e := &Env{
		ctx:      ctx,
		now:      v.clock.Now().Unix(),
		store:    v.backend,
		resolve:  v.gateway,
		readOnly: true,
	}
	return fn(e)
}

func (v *Vault) publish(ctx context.Context, pending []events.Envelope) {
	for _, event := range pending {
		if err := v.publisher.Publish(ctx, event); err != nil {
			publishFailuresTotal.WithLabelValues(event.Topic).Inc()
			v.logger.Warn("event publish failed",
				slog.String("event_id", event.ID),
				slog.String("topic", event.Topic),
				slog.Any("error", err),
			)
		}
	}
}

// isDomainError reports whether err is one of the vault's rule violations
// rather than an infrastructure failure.
func isDomainError(err error) bool {
	switch errorKind(err) {
	case "internal", "transfer_failed":
		return false
	default:
		return true
	}
}
