package vault

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// VersionV2 adds a running total of released payouts.
const VersionV2 = 2

const slotTotalPaidOut = 0

// LedgerV2 is LedgerV1 plus a cumulative paid-out counter kept in reserved
// slot 0.
type LedgerV2 struct {
	LedgerV1
}

// NewLedgerV2 builds the v2 logic with the given payout interval.
func NewLedgerV2(interval time.Duration) (*LedgerV2, error) {
	v1, err := NewLedgerV1(interval)
	if err != nil {
		return nil, err
	}
	return &LedgerV2{LedgerV1: *v1}, nil
}

func (l *LedgerV2) Version() int    { return VersionV2 }
func (l *LedgerV2) Slots() []string { return []string{"total_paid_out"} }

func (l *LedgerV2) Payout(e *Env, account Address) (int64, error) {
	return payout(e, account, l.interval, func(paid int64) error {
		g, err := e.Global()
		if err != nil {
			return err
		}
		total := g.Reserved[slotTotalPaidOut]
		if total > math.MaxInt64-paid {
			total = math.MaxInt64
		} else {
			total += paid
		}
		g.Reserved[slotTotalPaidOut] = total
		return e.PutGlobal(g)
	})
}

func (l *LedgerV2) TotalPaidOut(e *Env) (int64, error) {
	g, err := e.Global()
	if err != nil {
		return 0, err
	}
	return g.Reserved[slotTotalPaidOut], nil
}

type v2MigrationPayload struct {
	TotalPaidOut *int64 `json:"total_paid_out"`
}

// Migrate optionally seeds the counter, e.g. with payouts made under v1.
// Without a payload the slot keeps whatever it held, zero on a fresh layout.
func (l *LedgerV2) Migrate(e *Env, _ int, payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	var p v2MigrationPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decode v2 migration payload: %w", err)
	}
	if p.TotalPaidOut == nil {
		return nil
	}
	if *p.TotalPaidOut < 0 {
		return ErrNegativeAmount
	}
	g, err := e.Global()
	if err != nil {
		return err
	}
	g.Reserved[slotTotalPaidOut] = *p.TotalPaidOut
	return e.PutGlobal(g)
}

var (
	_ Logic           = (*LedgerV1)(nil)
	_ Logic           = (*LedgerV2)(nil)
	_ PaidOutReporter = (*LedgerV2)(nil)
)
