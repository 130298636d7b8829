package quantity

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoforge/ecoforge-backend/pkg/keytree"
	"github.com/ecoforge/ecoforge-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

// brokenTxnStore simulates a backend whose transaction transport is down.
type brokenTxnStore struct {
	keytree.Store
}

func (s brokenTxnStore) Transact(ctx context.Context, path string, fn keytree.TxnFunc) error {
	return errors.New("transaction transport unavailable")
}

func newLedgerWithStore(t *testing.T, store keytree.Store) Ledger {
	t.Helper()
	ledger, err := NewLedger(store, testLogger())
	require.NoError(t, err)
	return ledger
}

func TestAdjustDebitAndCredit(t *testing.T) {
	store := keytree.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "donations/d1/quantity", 10))

	ledger := newLedgerWithStore(t, store)

	result, err := ledger.Adjust(ctx, "donations/d1/quantity", -4, Options{Strict: true})
	require.NoError(t, err)
	assert.Equal(t, 10, result.Previous)
	assert.Equal(t, 6, result.Current)
	assert.Equal(t, -4, result.Applied)
	assert.False(t, result.Fallback)

	var stored int
	require.NoError(t, store.Get(ctx, "donations/d1/quantity", &stored))
	assert.Equal(t, 6, stored)
}

func TestAdjustStrictRefusesOverdraw(t *testing.T) {
	store := keytree.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "donations/d1/quantity", 3))

	ledger := newLedgerWithStore(t, store)

	_, err := ledger.Adjust(ctx, "donations/d1/quantity", -5, Options{Strict: true})
	require.ErrorIs(t, err, ErrInsufficient)

	var stored int
	require.NoError(t, store.Get(ctx, "donations/d1/quantity", &stored))
	assert.Equal(t, 3, stored, "refused adjustment must not write")
}

func TestAdjustClampsToBounds(t *testing.T) {
	store := keytree.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, "projects/p1/materials/m1/acquired", 7))

	ledger := newLedgerWithStore(t, store)

	// Credit past the cap clamps to it.
	result, err := ledger.Adjust(ctx, "projects/p1/materials/m1/acquired", 10, Options{Max: 12, HasMax: true})
	require.NoError(t, err)
	assert.Equal(t, 12, result.Current)
	assert.Equal(t, 5, result.Applied)

	// Non-strict debit below the floor clamps to zero.
	result, err = ledger.Adjust(ctx, "projects/p1/materials/m1/acquired", -20, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Current)
}

func TestAdjustMissingCounterStartsAtZero(t *testing.T) {
	store := keytree.NewMemoryStore()
	ledger := newLedgerWithStore(t, store)

	result, err := ledger.Adjust(context.Background(), "donations/new/quantity", 5, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Previous)
	assert.Equal(t, 5, result.Current)
}

func TestAdjustFallsBackWhenTransactionFails(t *testing.T) {
	memory := keytree.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, memory.Set(ctx, "donations/d1/quantity", 8))

	ledger := newLedgerWithStore(t, brokenTxnStore{Store: memory})

	result, err := ledger.Adjust(ctx, "donations/d1/quantity", -3, Options{Strict: true})
	require.NoError(t, err)
	assert.True(t, result.Fallback)
	assert.Equal(t, 5, result.Current)

	var stored int
	require.NoError(t, memory.Get(ctx, "donations/d1/quantity", &stored))
	assert.Equal(t, 5, stored)
}

func TestAdjustStrictFailureSkipsFallback(t *testing.T) {
	memory := keytree.NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, memory.Set(ctx, "donations/d1/quantity", 2))

	ledger := newLedgerWithStore(t, memory)

	_, err := ledger.Adjust(ctx, "donations/d1/quantity", -9, Options{Strict: true})
	require.ErrorIs(t, err, ErrInsufficient)

	var stored int
	require.NoError(t, memory.Get(ctx, "donations/d1/quantity", &stored))
	assert.Equal(t, 2, stored)
}
