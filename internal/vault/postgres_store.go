package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/congo-pay/payout_vault/internal/infra"
)

// advisoryLockKey serializes vault transactions across processes sharing one
// database.
const advisoryLockKey int64 = 0x7661756c74

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists vault state in the vault_state and vault_accounts
// tables.
type PostgresStore struct {
	pgStore
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pgStore: pgStore{q: db}, db: db}
}

// Atomic runs fn in a transaction holding the vault advisory lock. The
// context passed to fn carries the transaction (see infra.WithTx) so the
// Postgres asset ledger joins it.
func (s *PostgresStore) Atomic(ctx context.Context, fn func(ctx context.Context, st Store) error) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin vault tx: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after commit

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, advisoryLockKey); err != nil {
		return fmt.Errorf("lock vault: %w", err)
	}

	if err := fn(infra.WithTx(ctx, tx), pgStore{q: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit vault tx: %w", err)
	}
	return nil
}

type pgStore struct {
	q querier
}

func (s pgStore) Global(ctx context.Context) (GlobalState, error) {
	var (
		g        GlobalState
		reserved []int64
	)
	err := s.q.QueryRow(ctx, `SELECT initialized, owner, asset, logic_version, reserved
        FROM vault_state WHERE id = 1`).Scan(&g.Initialized, &g.Owner, &g.Asset, &g.LogicVersion, &reserved)
	if errors.Is(err, pgx.ErrNoRows) {
		return GlobalState{}, nil
	}
	if err != nil {
		return GlobalState{}, fmt.Errorf("load vault state: %w", err)
	}
	if len(reserved) > ReservedSlots {
		return GlobalState{}, fmt.Errorf("vault state has %d reserved slots, want at most %d", len(reserved), ReservedSlots)
	}
	copy(g.Reserved[:], reserved)
	return g, nil
}

func (s pgStore) PutGlobal(ctx context.Context, g GlobalState) error {
	_, err := s.q.Exec(ctx, `INSERT INTO vault_state (id, initialized, owner, asset, logic_version, reserved)
        VALUES (1, $1, $2, $3, $4, $5)
        ON CONFLICT (id) DO UPDATE SET
            initialized = EXCLUDED.initialized,
            owner = EXCLUDED.owner,
            asset = EXCLUDED.asset,
            logic_version = EXCLUDED.logic_version,
            reserved = EXCLUDED.reserved`,
		g.Initialized, g.Owner, g.Asset, g.LogicVersion, g.Reserved[:])
	if err != nil {
		return fmt.Errorf("store vault state: %w", err)
	}
	return nil
}

func (s pgStore) Account(ctx context.Context, addr Address) (Account, error) {
	var a Account
	err := s.q.QueryRow(ctx, `SELECT balance, payout_limit, last_payout_at
        FROM vault_accounts WHERE address = $1`, addr).Scan(&a.Balance, &a.Limit, &a.LastPayoutAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, nil
	}
	if err != nil {
		return Account{}, fmt.Errorf("load account %s: %w", addr, err)
	}
	return a, nil
}

func (s pgStore) PutAccount(ctx context.Context, addr Address, a Account) error {
	_, err := s.q.Exec(ctx, `INSERT INTO vault_accounts (address, balance, payout_limit, last_payout_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (address) DO UPDATE SET
            balance = EXCLUDED.balance,
            payout_limit = EXCLUDED.payout_limit,
            last_payout_at = EXCLUDED.last_payout_at`,
		addr, a.Balance, a.Limit, a.LastPayoutAt)
	if err != nil {
		return fmt.Errorf("store account %s: %w", addr, err)
	}
	return nil
}

var _ Backend = (*PostgresStore)(nil)
