package asset

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/congo-pay/payout_vault/internal/infra"
)

const testDatabaseEnvVar = "VAULT_TEST_DATABASE_URL"

func openTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv(testDatabaseEnvVar)
	if url == "" {
		t.Skipf("%s not set", testDatabaseEnvVar)
	}
	ctx := context.Background()

	sqlDB, err := infra.OpenSQL(url)
	if err != nil {
		t.Fatalf("open sql: %v", err)
	}
	defer sqlDB.Close()
	if err := infra.Migrate(sqlDB); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pool, err := infra.NewPostgresPool(ctx, url)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// testCode returns a holder code no other test run uses, so tests can share
// the database.
func testCode(name string) string {
	return HolderCode(name + "-" + uuid.NewString()[:8])
}

func TestPostgresLedger_TransferAndDuplicate(t *testing.T) {
	ctx := context.Background()
	l := NewPostgresLedger(openTestPool(t))
	a, b := testCode("a"), testCode("b")
	clientTx := uuid.NewString()

	for _, code := range []string{a, b} {
		if err := l.EnsureAccount(ctx, code); err != nil {
			t.Fatalf("ensure %s: %v", code, err)
		}
	}
	if _, err := l.Mint(ctx, a, uuid.NewString(), 1_000); err != nil {
		t.Fatalf("mint: %v", err)
	}

	res, err := l.Transfer(ctx, a, b, KindTransfer, clientTx, 400)
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if res.FromBalance != 600 || res.ToBalance != 400 {
		t.Fatalf("unexpected balances %+v", res)
	}

	res, err = l.Transfer(ctx, a, b, KindTransfer, clientTx, 400)
	if !errors.Is(err, ErrDuplicateTransaction) {
		t.Fatalf("expected duplicate transaction, got %v", err)
	}
	if res.FromBalance != 600 || res.ToBalance != 400 {
		t.Fatalf("duplicate must not move funds, got %+v", res)
	}
	if _, err := l.Transfer(ctx, b, a, KindTransfer, uuid.NewString(), 401); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}
}

func TestPostgresLedger_JoinsContextTransaction(t *testing.T) {
	ctx := context.Background()
	pool := openTestPool(t)
	l := NewPostgresLedger(pool)
	a, b := testCode("a"), testCode("b")

	if err := l.EnsureAccount(ctx, a); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, err := l.Mint(ctx, a, uuid.NewString(), 1_000); err != nil {
		t.Fatalf("mint: %v", err)
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	txCtx := infra.WithTx(ctx, tx)
	if err := l.EnsureAccount(txCtx, b); err != nil {
		t.Fatalf("ensure in tx: %v", err)
	}
	if _, err := l.Transfer(txCtx, a, b, KindTransfer, uuid.NewString(), 300); err != nil {
		t.Fatalf("transfer in tx: %v", err)
	}
	inside, err := l.Balance(txCtx, b)
	if err != nil {
		t.Fatalf("balance in tx: %v", err)
	}
	if inside != 300 {
		t.Fatalf("expected 300 inside the transaction, got %d", inside)
	}
	if err := tx.Rollback(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	balance, err := l.Balance(ctx, a)
	if err != nil {
		t.Fatalf("balance a: %v", err)
	}
	if balance != 1_000 {
		t.Fatalf("expected rolled back balance 1000, got %d", balance)
	}
	if _, err := l.Balance(ctx, b); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected holder:b rolled back, got %v", err)
	}
}
