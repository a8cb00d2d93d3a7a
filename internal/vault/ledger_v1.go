package vault

import "time"

// VersionV1 is the first logic version: the plain rate-gated ledger.
const VersionV1 = 1

// LedgerV1 implements deposits, limits, cooldown-gated payouts, ownership
// and emergency recovery. It uses no reserved slots.
type LedgerV1 struct {
	interval int64
}

// NewLedgerV1 builds the v1 logic with the given payout interval.
func NewLedgerV1(interval time.Duration) (*LedgerV1, error) {
	secs, err := intervalSeconds(interval)
	if err != nil {
		return nil, err
	}
	return &LedgerV1{interval: secs}, nil
}

func (l *LedgerV1) Version() int    { return VersionV1 }
func (l *LedgerV1) Slots() []string { return nil }

func (l *LedgerV1) Deposit(e *Env, amount int64) (Account, error) {
	return deposit(e, amount)
}

func (l *LedgerV1) SetLimit(e *Env, amount int64) (Account, error) {
	return setLimit(e, amount)
}

func (l *LedgerV1) Payout(e *Env, account Address) (int64, error) {
	return payout(e, account, l.interval, nil)
}

func (l *LedgerV1) CheckPayout(e *Env, account Address) error {
	a, err := e.Account(account)
	if err != nil {
		return err
	}
	return checkPayout(a, account, e.Now(), l.interval)
}

func (l *LedgerV1) NextPayoutTime(e *Env, account Address) (int64, error) {
	a, err := e.Account(account)
	if err != nil {
		return 0, err
	}
	return nextPayoutAt(a, l.interval), nil
}

func (l *LedgerV1) TransferOwnership(e *Env, next Address) error {
	return transferOwnership(e, next)
}

func (l *LedgerV1) EmergencyWithdraw(e *Env, to Address) (int64, error) {
	return emergencyWithdraw(e, to)
}

func (l *LedgerV1) AuthorizeUpgrade(e *Env) error {
	_, err := e.requireOwner()
	return err
}

func (l *LedgerV1) Migrate(*Env, int, []byte) error { return nil }
