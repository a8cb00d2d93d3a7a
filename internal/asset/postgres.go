package asset

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/congo-pay/payout_vault/internal/infra"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresLedger persists asset postings in PostgreSQL ensuring double-entry
// balance. Calls made with a context carrying a transaction (see infra.WithTx)
// run inside it.
type PostgresLedger struct {
	db *pgxpool.Pool
}

// NewPostgresLedger constructs a Postgres-backed ledger implementation.
func NewPostgresLedger(db *pgxpool.Pool) *PostgresLedger {
	return &PostgresLedger{db: db}
}

func (l *PostgresLedger) q(ctx context.Context) querier {
	if tx, ok := infra.TxFromContext(ctx); ok {
		return tx
	}
	return l.db
}

// EnsureAccount guarantees an account exists for the provided code.
func (l *PostgresLedger) EnsureAccount(ctx context.Context, code string) error {
	_, err := l.q(ctx).Exec(ctx, `INSERT INTO asset_accounts (id, code) VALUES ($1, $2)
        ON CONFLICT (code) DO NOTHING`, uuid.New(), code)
	return err
}

// Balance returns the summed balance for the specified account code.
func (l *PostgresLedger) Balance(ctx context.Context, code string) (int64, error) {
	const query = `
        SELECT a.id, COALESCE(SUM(e.amount), 0)
        FROM asset_accounts a
        LEFT JOIN asset_entries e ON e.account_id = a.id
        WHERE a.code = $1
        GROUP BY a.id`
	var (
		id      uuid.UUID
		balance int64
	)
	if err := l.q(ctx).QueryRow(ctx, query, code).Scan(&id, &balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: %s", ErrAccountNotFound, code)
		}
		return 0, err
	}
	return balance, nil
}

// Transfer records a balanced posting between two accounts.
func (l *PostgresLedger) Transfer(ctx context.Context, fromCode, toCode, kind, clientTxID string, amount int64) (TransactionResult, error) {
	return l.post(ctx, fromCode, toCode, kind, clientTxID, amount, false)
}

// Mint credits code from the issuance account.
func (l *PostgresLedger) Mint(ctx context.Context, code, clientTxID string, amount int64) (TransactionResult, error) {
	if err := l.EnsureAccount(ctx, IssuanceAccountCode); err != nil {
		return TransactionResult{}, err
	}
	return l.post(ctx, IssuanceAccountCode, code, KindMint, clientTxID, amount, true)
}

func (l *PostgresLedger) post(ctx context.Context, fromCode, toCode, kind, clientTxID string, amount int64, allowNegative bool) (TransactionResult, error) {
	if amount <= 0 {
		return TransactionResult{}, ErrInvalidAmount
	}

	tx, err := infra.Begin(ctx, l.db)
	if err != nil {
		return TransactionResult{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	fromAccountID, err := accountIDForCode(ctx, tx, fromCode)
	if err != nil {
		return TransactionResult{}, err
	}
	toAccountID, err := accountIDForCode(ctx, tx, toCode)
	if err != nil {
		return TransactionResult{}, err
	}

	const existingTxQuery = `SELECT id FROM asset_transactions WHERE client_tx_id = $1 AND kind = $2`
	var existingTxID uuid.UUID
	if err := tx.QueryRow(ctx, existingTxQuery, clientTxID, kind).Scan(&existingTxID); err == nil {
		fromBal, err := balanceForAccount(ctx, tx, fromAccountID)
		if err != nil {
			return TransactionResult{}, err
		}
		toBal, err := balanceForAccount(ctx, tx, toAccountID)
		if err != nil {
			return TransactionResult{}, err
		}
		return TransactionResult{TransactionID: existingTxID.String(), FromBalance: fromBal, ToBalance: toBal}, ErrDuplicateTransaction
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return TransactionResult{}, err
	}

	fromBalance, err := balanceForAccount(ctx, tx, fromAccountID)
	if err != nil {
		return TransactionResult{}, err
	}
	if !allowNegative && fromBalance < amount {
		return TransactionResult{}, ErrInsufficientFunds
	}
	toBalance, err := balanceForAccount(ctx, tx, toAccountID)
	if err != nil {
		return TransactionResult{}, err
	}

	txID := uuid.New()
	if _, err := tx.Exec(ctx, `INSERT INTO asset_transactions (id, client_tx_id, kind, status) VALUES ($1, $2, $3, $4)`, txID, clientTxID, kind, StatusCompleted); err != nil {
		return TransactionResult{}, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO asset_entries (id, transaction_id, account_id, amount) VALUES ($1, $2, $3, $4)`, uuid.New(), txID, fromAccountID, -amount); err != nil {
		return TransactionResult{}, err
	}
	if _, err := tx.Exec(ctx, `INSERT INTO asset_entries (id, transaction_id, account_id, amount) VALUES ($1, $2, $3, $4)`, uuid.New(), txID, toAccountID, amount); err != nil {
		return TransactionResult{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return TransactionResult{}, err
	}

	return TransactionResult{
		TransactionID: txID.String(),
		FromBalance:   fromBalance - amount,
		ToBalance:     toBalance + amount,
	}, nil
}

func accountIDForCode(ctx context.Context, tx pgx.Tx, code string) (uuid.UUID, error) {
	const query = `SELECT id FROM asset_accounts WHERE code = $1 FOR UPDATE`
	var id uuid.UUID
	if err := tx.QueryRow(ctx, query, code).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("%w: %s", ErrAccountNotFound, code)
		}
		return uuid.Nil, err
	}
	return id, nil
}

func balanceForAccount(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (int64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM asset_entries WHERE account_id = $1`
	var balance int64
	if err := tx.QueryRow(ctx, query, accountID).Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return balance, nil
}
