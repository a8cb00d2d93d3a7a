package vault

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/payout_vault/internal/asset"
	"github.com/congo-pay/payout_vault/internal/clock"
	"github.com/congo-pay/payout_vault/internal/events"
	"github.com/congo-pay/payout_vault/internal/infra"
)

// testDatabaseEnvVar names a disposable database. Tests using it reset the
// vault tables; asset accounts are left alone and named per test.
const testDatabaseEnvVar = "VAULT_TEST_DATABASE_URL"

func openTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv(testDatabaseEnvVar)
	if url == "" {
		t.Skipf("%s not set", testDatabaseEnvVar)
	}
	ctx := context.Background()

	sqlDB, err := infra.OpenSQL(url)
	require.NoError(t, err)
	defer sqlDB.Close()
	require.NoError(t, infra.Migrate(sqlDB))

	pool, err := infra.NewPostgresPool(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE vault_state, vault_accounts`)
	require.NoError(t, err)
	return pool
}

func uniqueName(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

func newPostgresVault(t *testing.T, pool *pgxpool.Pool, clk clock.Clock) *Vault {
	t.Helper()
	ledger := asset.NewPostgresLedger(pool)
	v, err := New(Options{
		Backend: NewPostgresStore(pool),
		Gateway: func(ctx context.Context, a Address) (Gateway, error) {
			custody, err := asset.NewCustody(ctx, ledger, a)
			if err != nil {
				return nil, err
			}
			return custody, nil
		},
		Clock:     clk,
		Publisher: &events.Recorder{},
		Interval:  testInterval,
	})
	require.NoError(t, err)
	return v
}

func TestPostgresStoreUpgradePreservesState(t *testing.T) {
	ctx := context.Background()
	pool := openTestPool(t)
	clk := clock.NewManual(testStart)
	v := newPostgresVault(t, pool, clk)
	assetRef := uniqueName(testAsset)
	alice := uniqueName("alice")

	require.NoError(t, v.Initialize(ctx, testOwner, assetRef))
	custody, err := asset.NewCustody(ctx, asset.NewPostgresLedger(pool), assetRef)
	require.NoError(t, err)
	_, err = custody.Fund(ctx, alice, 10_000)
	require.NoError(t, err)

	_, err = v.Deposit(ctx, alice, 10_000)
	require.NoError(t, err)
	_, err = v.SetLimit(ctx, alice, 1_000)
	require.NoError(t, err)
	_, err = v.Payout(ctx, alice)
	require.NoError(t, err)
	before, err := v.Account(ctx, alice)
	require.NoError(t, err)

	require.NoError(t, v.Upgrade(ctx, testOwner, VersionV2, []byte(`{"total_paid_out":1000}`)))

	// A second vault over the same database sees the persisted layout.
	reopened := newPostgresVault(t, pool, clk)
	g, err := reopened.State(ctx)
	require.NoError(t, err)
	require.Equal(t, VersionV2, g.LogicVersion)
	require.Equal(t, testOwner, g.Owner)
	require.EqualValues(t, 1_000, g.Reserved[0])

	after, err := reopened.Account(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, before, after)

	clk.Advance(testInterval)
	_, err = reopened.Payout(ctx, alice)
	require.NoError(t, err)
	total, err := reopened.TotalPaidOut(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 2_000, total)

	held, err := reopened.HeldBalance(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 8_000, held)
}

func TestPostgresStoreAtomicRollsBackJoinedLedger(t *testing.T) {
	ctx := context.Background()
	pool := openTestPool(t)
	ledger := asset.NewPostgresLedger(pool)
	custody, err := asset.NewCustody(ctx, ledger, uniqueName(testAsset))
	require.NoError(t, err)
	alice := uniqueName("alice")
	_, err = custody.Fund(ctx, alice, 500)
	require.NoError(t, err)

	store := NewPostgresStore(pool)
	boom := errors.New("boom")
	err = store.Atomic(ctx, func(ctx context.Context, s Store) error {
		if err := s.PutAccount(ctx, alice, Account{Balance: 500}); err != nil {
			return err
		}
		if err := custody.Pull(ctx, alice, 500); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	a, err := store.Account(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, Account{}, a)
	holder, err := ledger.Balance(ctx, asset.HolderCode(alice))
	require.NoError(t, err)
	require.EqualValues(t, 500, holder)
	held, err := custody.HeldBalance(ctx)
	require.NoError(t, err)
	require.Zero(t, held)
}

func TestPostgresStoreMissingRowsReadAsZero(t *testing.T) {
	ctx := context.Background()
	store := NewPostgresStore(openTestPool(t))

	g, err := store.Global(ctx)
	require.NoError(t, err)
	require.Equal(t, GlobalState{}, g)

	g = GlobalState{Initialized: true, Owner: testOwner, Asset: testAsset, LogicVersion: VersionV1}
	g.Reserved[ReservedSlots-1] = 42
	require.NoError(t, store.Atomic(ctx, func(ctx context.Context, s Store) error {
		return s.PutGlobal(ctx, g)
	}))
	got, err := store.Global(ctx)
	require.NoError(t, err)
	require.Equal(t, g, got)
}
