// Package events carries the vault's notification stream: the only record of
// state transitions besides direct reads, consumed by the external payout
// scheduler and auditing tools.
package events

import (
	"context"
	"encoding/json"
	"fmt"
)

// Event topic constants.
const (
	TopicDeposited            = "vault.deposited"
	TopicLimitSet             = "vault.limit_set"
	TopicPayoutExecuted       = "vault.payout_executed"
	TopicEmergencyWithdrawn   = "vault.emergency_withdrawn"
	TopicOwnershipTransferred = "vault.ownership_transferred"
)

// Deposited is emitted after an account deposit.
type Deposited struct {
	Account string `json:"account"`
	Amount  int64  `json:"amount"`
}

// LimitSet is emitted whenever an account sets its payout limit.
type LimitSet struct {
	Account string `json:"account"`
	Amount  int64  `json:"amount"`
}

// PayoutExecuted is emitted for each released payout.
type PayoutExecuted struct {
	Account string `json:"account"`
	Amount  int64  `json:"amount"`
}

// EmergencyWithdrawn is emitted when the owner drains custody.
type EmergencyWithdrawn struct {
	Destination string `json:"destination"`
	Amount      int64  `json:"amount"`
}

// OwnershipTransferred is emitted on initialization and ownership changes.
// Previous is empty for the initial owner.
type OwnershipTransferred struct {
	Previous string `json:"previous"`
	Next     string `json:"next"`
}

// Envelope wraps a domain event with its identity and the timestamp of the
// operation that produced it.
type Envelope struct {
	ID         string `json:"id"`
	Topic      string `json:"topic"`
	OccurredAt int64  `json:"occurred_at"`
	Payload    any    `json:"payload"`
}

// Encode returns the JSON form published on the wire.
func (e Envelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshaling event %s: %w", e.ID, err)
	}
	return data, nil
}

// Publisher is the interface for emitting events.
type Publisher interface {
	Publish(ctx context.Context, event Envelope) error
	Close() error
}
