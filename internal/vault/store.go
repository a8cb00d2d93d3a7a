package vault

import "context"

// Store reads and writes vault state. Implementations handed to an Atomic
// callback see their own uncommitted writes.
type Store interface {
	Global(ctx context.Context) (GlobalState, error)
	PutGlobal(ctx context.Context, g GlobalState) error
	Account(ctx context.Context, addr Address) (Account, error)
	PutAccount(ctx context.Context, addr Address, a Account) error
}

// Backend is a Store that can run a group of reads and writes atomically.
// Reads made on the Backend itself see committed state only.
type Backend interface {
	Store
	// Atomic runs fn against a transactional Store. Writes become visible
	// only when fn returns nil; any error discards all of them.
	Atomic(ctx context.Context, fn func(ctx context.Context, s Store) error) error
}
