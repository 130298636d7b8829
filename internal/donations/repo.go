package donations

import (
	"context"
	"errors"

	"github.com/ecoforge/ecoforge-backend/pkg/keytree"
	"github.com/ecoforge/ecoforge-backend/pkg/models"
)

// Repository exposes persistence helpers for donation listings.
type Repository interface {
	Create(ctx context.Context, donation models.Donation) error
	Get(ctx context.Context, donationID string) (*models.Donation, error)
	Update(ctx context.Context, donationID string, fields map[string]any) error
	Delete(ctx context.Context, donationID string) error
	List(ctx context.Context) (map[string]models.Donation, error)
}

type repositoryImpl struct {
	store keytree.Store
}

// NewRepository returns a donations repository bound to the key tree.
func NewRepository(store keytree.Store) Repository {
	return &repositoryImpl{store: store}
}

// Path returns the tree path of a donation record.
func Path(donationID string) string {
	return keytree.Join("donations", donationID)
}

// QuantityPath returns the tree path of a donation's remaining quantity
// counter. All quantity writes go through the quantity ledger at this path.
func QuantityPath(donationID string) string {
	return keytree.Join("donations", donationID, "quantity")
}

func (r *repositoryImpl) Create(ctx context.Context, donation models.Donation) error {
	return r.store.Set(ctx, Path(donation.ID), donation)
}

func (r *repositoryImpl) Get(ctx context.Context, donationID string) (*models.Donation, error) {
	var donation models.Donation
	if err := r.store.Get(ctx, Path(donationID), &donation); err != nil {
		return nil, err
	}
	donation.ID = donationID
	return &donation, nil
}

func (r *repositoryImpl) Update(ctx context.Context, donationID string, fields map[string]any) error {
	return r.store.Update(ctx, Path(donationID), fields)
}

func (r *repositoryImpl) Delete(ctx context.Context, donationID string) error {
	return r.store.Delete(ctx, Path(donationID))
}

func (r *repositoryImpl) List(ctx context.Context) (map[string]models.Donation, error) {
	items := map[string]models.Donation{}
	err := r.store.Get(ctx, "donations", &items)
	if errors.Is(err, keytree.ErrNotFound) {
		return map[string]models.Donation{}, nil
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}
