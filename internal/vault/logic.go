package vault

import (
	"fmt"
	"math"
	"time"

	"github.com/congo-pay/payout_vault/internal/events"
)

// Logic is one executable version of the ledger rules. The Vault resolves it
// per call from GlobalState.LogicVersion.
type Logic interface {
	Version() int
	// Slots names the Reserved slots this version uses, in slot order.
	Slots() []string

	Deposit(e *Env, amount int64) (Account, error)
	SetLimit(e *Env, amount int64) (Account, error)
	Payout(e *Env, account Address) (int64, error)
	CheckPayout(e *Env, account Address) error
	NextPayoutTime(e *Env, account Address) (int64, error)
	TransferOwnership(e *Env, next Address) error
	EmergencyWithdraw(e *Env, to Address) (int64, error)

	// AuthorizeUpgrade is asked by the active version before it is replaced.
	AuthorizeUpgrade(e *Env) error
	// Migrate runs on the incoming version right after it is bound.
	Migrate(e *Env, from int, payload []byte) error
}

// PaidOutReporter is implemented by versions that track cumulative payouts.
type PaidOutReporter interface {
	TotalPaidOut(e *Env) (int64, error)
}

// intervalSeconds validates a payout interval: positive and whole seconds.
func intervalSeconds(d time.Duration) (int64, error) {
	if d < time.Second || d%time.Second != 0 {
		return 0, fmt.Errorf("payout interval must be a positive whole number of seconds, got %s", d)
	}
	return int64(d / time.Second), nil
}

func checkAmount(amount int64) error {
	switch {
	case amount == 0:
		return ErrZeroAmount
	case amount < 0:
		return ErrNegativeAmount
	}
	return nil
}

// checkPayout is the one place payout eligibility is decided. Payout and
// CanPayout both go through it so they cannot disagree.
func checkPayout(a Account, account Address, now, interval int64) error {
	if account == "" {
		return ErrZeroAddress
	}
	if a.Limit == 0 {
		return ErrZeroAmount
	}
	if now < nextPayoutAt(a, interval) {
		return ErrPayoutTooEarly
	}
	if a.Balance < a.Limit {
		return ErrInsufficientBalance
	}
	return nil
}

func nextPayoutAt(a Account, interval int64) int64 {
	if a.LastPayoutAt > math.MaxInt64-interval {
		return math.MaxInt64
	}
	return a.LastPayoutAt + interval
}

// Status names the payout state of an account derived from its record.
type Status string

const (
	StatusNoLimit     Status = "no_limit"
	StatusCooling     Status = "cooling"
	StatusEligible    Status = "eligible"
	StatusUnderfunded Status = "underfunded"
)

// statusOf maps a payout check result to a Status.
func statusOf(check error) (Status, error) {
	switch check {
	case nil:
		return StatusEligible, nil
	case ErrZeroAmount:
		return StatusNoLimit, nil
	case ErrPayoutTooEarly:
		return StatusCooling, nil
	case ErrInsufficientBalance:
		return StatusUnderfunded, nil
	default:
		return "", check
	}
}

// deposit credits the caller and then pulls the amount into custody.
func deposit(e *Env, amount int64) (Account, error) {
	if err := checkAmount(amount); err != nil {
		return Account{}, err
	}
	caller := e.Caller()
	if caller == "" {
		return Account{}, ErrZeroAddress
	}
	a, err := e.Account(caller)
	if err != nil {
		return Account{}, err
	}
	if a.Balance > math.MaxInt64-amount {
		return Account{}, ErrAmountOverflow
	}
	a.Balance += amount
	if err := e.PutAccount(caller, a); err != nil {
		return Account{}, err
	}
	if err := e.Emit(events.TopicDeposited, events.Deposited{Account: caller, Amount: amount}); err != nil {
		return Account{}, err
	}

	gw, err := e.Gateway()
	if err != nil {
		return Account{}, err
	}
	if err := gw.Pull(e.Context(), caller, amount); err != nil {
		return Account{}, transferFailed(err)
	}
	return a, nil
}

func setLimit(e *Env, amount int64) (Account, error) {
	if amount < 0 {
		return Account{}, ErrNegativeAmount
	}
	caller := e.Caller()
	if caller == "" {
		return Account{}, ErrZeroAddress
	}
	a, err := e.Account(caller)
	if err != nil {
		return Account{}, err
	}
	a.Limit = amount
	if err := e.PutAccount(caller, a); err != nil {
		return Account{}, err
	}
	if err := e.Emit(events.TopicLimitSet, events.LimitSet{Account: caller, Amount: amount}); err != nil {
		return Account{}, err
	}
	return a, nil
}

// payout releases one limit's worth of funds. afterDebit runs once the
// account is written and before the asset leaves custody.
func payout(e *Env, account Address, interval int64, afterDebit func(paid int64) error) (int64, error) {
	a, err := e.Account(account)
	if err != nil {
		return 0, err
	}
	if err := checkPayout(a, account, e.Now(), interval); err != nil {
		return 0, err
	}

	paid := a.Limit
	a.Balance -= paid
	a.LastPayoutAt = e.Now()
	if err := e.PutAccount(account, a); err != nil {
		return 0, err
	}
	if afterDebit != nil {
		if err := afterDebit(paid); err != nil {
			return 0, err
		}
	}
	if err := e.Emit(events.TopicPayoutExecuted, events.PayoutExecuted{Account: account, Amount: paid}); err != nil {
		return 0, err
	}

	gw, err := e.Gateway()
	if err != nil {
		return 0, err
	}
	if err := gw.Push(e.Context(), account, paid); err != nil {
		return 0, transferFailed(err)
	}
	return paid, nil
}

func transferOwnership(e *Env, next Address) error {
	g, err := e.requireOwner()
	if err != nil {
		return err
	}
	if next == "" {
		return ErrZeroAddress
	}
	previous := g.Owner
	g.Owner = next
	if err := e.PutGlobal(g); err != nil {
		return err
	}
	return e.Emit(events.TopicOwnershipTransferred, events.OwnershipTransferred{Previous: previous, Next: next})
}

// emergencyWithdraw drains custody to the destination. Account entries are
// left as they are.
func emergencyWithdraw(e *Env, to Address) (int64, error) {
	if _, err := e.requireOwner(); err != nil {
		return 0, err
	}
	if to == "" {
		return 0, ErrZeroAddress
	}
	gw, err := e.Gateway()
	if err != nil {
		return 0, err
	}
	held, err := gw.HeldBalance(e.Context())
	if err != nil {
		return 0, transferFailed(err)
	}
	if held == 0 {
		return 0, ErrZeroAmount
	}
	if err := e.Emit(events.TopicEmergencyWithdrawn, events.EmergencyWithdrawn{Destination: to, Amount: held}); err != nil {
		return 0, err
	}
	if err := gw.Push(e.Context(), to, held); err != nil {
		return 0, transferFailed(err)
	}
	return held, nil
}
