// Package donations manages donation listings. Remaining quantity is owned by
// the quantity ledger; this package never mutates it outside creation.
package donations

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/ecoforge/ecoforge-backend/pkg/errors"
	"github.com/ecoforge/ecoforge-backend/pkg/keytree"
	"github.com/ecoforge/ecoforge-backend/pkg/logger"
	"github.com/ecoforge/ecoforge-backend/pkg/models"
)

// Service defines donation listing operations.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Donation, error)
	Get(ctx context.Context, donationID string) (*models.Donation, error)
	Edit(ctx context.Context, input EditInput) (*models.Donation, error)
	Delete(ctx context.Context, actorID, donationID string) error
	Discover(ctx context.Context, params DiscoverParams) ([]models.Donation, error)
	ListByOwner(ctx context.Context, ownerID string) ([]models.Donation, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// CreateInput carries a new listing.
type CreateInput struct {
	OwnerID     string
	Category    string
	SubCategory string
	Quantity    int
	Unit        string
	Description string
	Images      []string
}

// EditInput carries owner-editable listing fields. Quantity is deliberately
// absent; the ledger owns it once requests exist.
type EditInput struct {
	ActorID     string
	DonationID  string
	Category    *string
	SubCategory *string
	Description *string
	Images      []string
}

// DiscoverParams filters the public listing feed.
type DiscoverParams struct {
	Category     string
	ExcludeOwner string
}

// ServiceParams wires donation dependencies.
type ServiceParams struct {
	Repo   Repository
	Logger *logger.Logger
}

// NewService wires the donations service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "donations repository required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "donations logger required")
	}
	return &service{repo: params.Repo, logg: params.Logger}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Donation, error) {
	if input.OwnerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	if input.Category == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if input.Unit == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit required")
	}

	donation := models.Donation{
		ID:          uuid.NewString(),
		OwnerID:     input.OwnerID,
		Category:    input.Category,
		SubCategory: input.SubCategory,
		Quantity:    input.Quantity,
		Unit:        input.Unit,
		Description: input.Description,
		Images:      input.Images,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, donation); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create donation")
	}
	return &donation, nil
}

func (s *service) Get(ctx context.Context, donationID string) (*models.Donation, error) {
	if donationID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "donation id required")
	}
	donation, err := s.repo.Get(ctx, donationID)
	if errors.Is(err, keytree.ErrNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "donation not found")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read donation")
	}
	return donation, nil
}

func (s *service) Edit(ctx context.Context, input EditInput) (*models.Donation, error) {
	donation, err := s.Get(ctx, input.DonationID)
	if err != nil {
		return nil, err
	}
	if donation.OwnerID != input.ActorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the owner can edit a donation")
	}

	fields := map[string]any{}
	if input.Category != nil {
		if *input.Category == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category required")
		}
		fields["category"] = *input.Category
	}
	if input.SubCategory != nil {
		fields["subCategory"] = *input.SubCategory
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}
	if input.Images != nil {
		fields["images"] = input.Images
	}
	if len(fields) == 0 {
		return donation, nil
	}

	if err := s.repo.Update(ctx, input.DonationID, fields); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update donation")
	}
	return s.Get(ctx, input.DonationID)
}

func (s *service) Delete(ctx context.Context, actorID, donationID string) error {
	donation, err := s.Get(ctx, donationID)
	if err != nil {
		return err
	}
	if donation.OwnerID != actorID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the owner can delete a donation")
	}
	if err := s.repo.Delete(ctx, donationID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete donation")
	}
	return nil
}

// Discover lists donations visible in the public feed. Depleted listings stay
// in the tree but never surface here.
func (s *service) Discover(ctx context.Context, params DiscoverParams) ([]models.Donation, error) {
	byID, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list donations")
	}

	items := make([]models.Donation, 0, len(byID))
	for id, donation := range byID {
		donation.ID = id
		if !donation.Discoverable() {
			continue
		}
		if params.Category != "" && donation.Category != params.Category {
			continue
		}
		if params.ExcludeOwner != "" && donation.OwnerID == params.ExcludeOwner {
			continue
		}
		items = append(items, donation)
	}
	sortByNewest(items)
	return items, nil
}

func (s *service) ListByOwner(ctx context.Context, ownerID string) ([]models.Donation, error) {
	if ownerID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	byID, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list donations")
	}

	items := make([]models.Donation, 0)
	for id, donation := range byID {
		if donation.OwnerID != ownerID {
			continue
		}
		donation.ID = id
		items = append(items, donation)
	}
	sortByNewest(items)
	return items, nil
}

func sortByNewest(items []models.Donation) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
}
