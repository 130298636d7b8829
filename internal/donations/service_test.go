package donations

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ecoforge/ecoforge-backend/pkg/keytree"
	"github.com/ecoforge/ecoforge-backend/pkg/logger"
)

func newTestService(t *testing.T) (Service, *keytree.MemoryStore) {
	t.Helper()
	store := keytree.NewMemoryStore()
	svc, err := NewService(ServiceParams{
		Repo:   NewRepository(store),
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	require.NoError(t, err)
	return svc, store
}

func TestCreateValidates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{OwnerID: "u1", Category: "plastic", Quantity: 0, Unit: "kg"})
	require.Error(t, err, "zero quantity must be rejected")

	donation, err := svc.Create(ctx, CreateInput{OwnerID: "u1", Category: "plastic", Quantity: 10, Unit: "kg"})
	require.NoError(t, err)
	assert.NotEmpty(t, donation.ID)
	assert.Equal(t, 10, donation.Quantity)
}

func TestDiscoverHidesDepletedListings(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	full, err := svc.Create(ctx, CreateInput{OwnerID: "u1", Category: "plastic", Quantity: 10, Unit: "kg"})
	require.NoError(t, err)
	empty, err := svc.Create(ctx, CreateInput{OwnerID: "u2", Category: "glass", Quantity: 4, Unit: "kg"})
	require.NoError(t, err)

	// Fulfilment drained the second listing.
	require.NoError(t, store.Set(ctx, QuantityPath(empty.ID), 0))

	items, err := svc.Discover(ctx, DiscoverParams{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, full.ID, items[0].ID)

	// The depleted listing is hidden, not deleted.
	kept, err := svc.Get(ctx, empty.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, kept.Quantity)
}

func TestDiscoverFilters(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{OwnerID: "u1", Category: "plastic", Quantity: 5, Unit: "kg"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{OwnerID: "u2", Category: "glass", Quantity: 5, Unit: "kg"})
	require.NoError(t, err)

	items, err := svc.Discover(ctx, DiscoverParams{Category: "glass"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "glass", items[0].Category)

	items, err = svc.Discover(ctx, DiscoverParams{ExcludeOwner: "u1"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "u2", items[0].OwnerID)
}

func TestEditAndDeleteRequireOwnership(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	donation, err := svc.Create(ctx, CreateInput{OwnerID: "u1", Category: "plastic", Quantity: 5, Unit: "kg"})
	require.NoError(t, err)

	description := "bottle caps"
	_, err = svc.Edit(ctx, EditInput{ActorID: "intruder", DonationID: donation.ID, Description: &description})
	require.Error(t, err)

	updated, err := svc.Edit(ctx, EditInput{ActorID: "u1", DonationID: donation.ID, Description: &description})
	require.NoError(t, err)
	assert.Equal(t, "bottle caps", updated.Description)

	require.Error(t, svc.Delete(ctx, "intruder", donation.ID))
	require.NoError(t, svc.Delete(ctx, "u1", donation.ID))

	_, err = svc.Get(ctx, donation.ID)
	require.Error(t, err)
}
