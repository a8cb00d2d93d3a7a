package vault

import (
	"context"
	"sync"
)

// MemoryStore keeps vault state in process memory. Used in development and
// tests.
type MemoryStore struct {
	mu       sync.RWMutex
	global   GlobalState
	accounts map[Address]Account
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[Address]Account)}
}

func (s *MemoryStore) Global(context.Context) (GlobalState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.global, nil
}

func (s *MemoryStore) PutGlobal(_ context.Context, g GlobalState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.global = g
	return nil
}

func (s *MemoryStore) Account(_ context.Context, addr Address) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accounts[addr], nil
}

func (s *MemoryStore) PutAccount(_ context.Context, addr Address, a Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[addr] = a
	return nil
}

// Atomic stages writes in an overlay and applies them in one step once fn
// succeeds. Concurrent Atomic calls are not isolated from each other; the
// Vault serializes them.
func (s *MemoryStore) Atomic(ctx context.Context, fn func(ctx context.Context, st Store) error) error {
	tx := &memoryTx{base: s, accounts: make(map[Address]Account)}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tx.global != nil {
		s.global = *tx.global
	}
	for addr, a := range tx.accounts {
		s.accounts[addr] = a
	}
	return nil
}

type memoryTx struct {
	base     *MemoryStore
	global   *GlobalState
	accounts map[Address]Account
}

func (t *memoryTx) Global(ctx context.Context) (GlobalState, error) {
	if t.global != nil {
		return *t.global, nil
	}
	return t.base.Global(ctx)
}

func (t *memoryTx) PutGlobal(_ context.Context, g GlobalState) error {
	t.global = &g
	return nil
}

func (t *memoryTx) Account(ctx context.Context, addr Address) (Account, error) {
	if a, ok := t.accounts[addr]; ok {
		return a, nil
	}
	return t.base.Account(ctx, addr)
}

func (t *memoryTx) PutAccount(_ context.Context, addr Address, a Account) error {
	t.accounts[addr] = a
	return nil
}

var _ Backend = (*MemoryStore)(nil)
