package requests

import (
	"context"
	"errors"

	"github.com/ecoforge/ecoforge-backend/pkg/keytree"
	"github.com/ecoforge/ecoforge-backend/pkg/models"
)

// Repository exposes persistence helpers for donation requests.
type Repository interface {
	Create(ctx context.Context, request models.Request) error
	Get(ctx context.Context, requestID string) (*models.Request, error)
	Update(ctx context.Context, requestID string, fields map[string]any) error
	Delete(ctx context.Context, requestID string) error
	List(ctx context.Context) (map[string]models.Request, error)
}

type repositoryImpl struct {
	store keytree.Store
}

// NewRepository returns a requests repository bound to the key tree.
func NewRepository(store keytree.Store) Repository {
	return &repositoryImpl{store: store}
}

// Path returns the tree path of a request record.
func Path(requestID string) string {
	return keytree.Join("requests", requestID)
}

func (r *repositoryImpl) Create(ctx context.Context, request models.Request) error {
	return r.store.Set(ctx, Path(request.ID), request)
}

func (r *repositoryImpl) Get(ctx context.Context, requestID string) (*models.Request, error) {
	var request models.Request
	if err := r.store.Get(ctx, Path(requestID), &request); err != nil {
		return nil, err
	}
	request.ID = requestID
	return &request, nil
}

func (r *repositoryImpl) Update(ctx context.Context, requestID string, fields map[string]any) error {
	return r.store.Update(ctx, Path(requestID), fields)
}

func (r *repositoryImpl) Delete(ctx context.Context, requestID string) error {
	return r.store.Delete(ctx, Path(requestID))
}

func (r *repositoryImpl) List(ctx context.Context) (map[string]models.Request, error) {
	items := map[string]models.Request{}
	err := r.store.Get(ctx, "requests", &items)
	if errors.Is(err, keytree.ErrNotFound) {
		return map[string]models.Request{}, nil
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}
