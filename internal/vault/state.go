// Package vault is the custodial payout ledger: accounts deposit an asset,
// declare a per-interval payout limit and are paid out by an external
// scheduler once their cooldown has elapsed. The executable logic is resolved
// per call from persistent storage so the owner can swap it without touching
// accumulated state.
package vault

// Address is an opaque holder identity. The empty string is the null
// identity.
type Address = string

// ReservedSlots is the number of int64 slots GlobalState keeps for fields
// introduced by later logic versions.
const ReservedSlots = 4

// Account is the per-address ledger entry. The zero value is the state of an
// address that never interacted with the vault.
type Account struct {
	Balance      int64 `json:"balance"`
	Limit        int64 `json:"limit"`
	LastPayoutAt int64 `json:"last_payout_at"`
}

// GlobalState is the vault-wide record. Its layout is append-only: new logic
// versions claim Reserved slots instead of adding fields in between.
type GlobalState struct {
	Initialized  bool                 `json:"initialized"`
	Owner        Address              `json:"owner"`
	Asset        Address              `json:"asset"`
	LogicVersion int                  `json:"logic_version"`
	Reserved     [ReservedSlots]int64 `json:"reserved"`
}
