package projects

import (
	"context"
	"errors"

	"github.com/ecoforge/ecoforge-backend/pkg/keytree"
	"github.com/ecoforge/ecoforge-backend/pkg/models"
)

// Repository exposes persistence helpers for projects and their sub-entities.
type Repository interface {
	Create(ctx context.Context, project models.Project) error
	Get(ctx context.Context, projectID string) (*models.Project, error)
	Update(ctx context.Context, projectID string, fields map[string]any) error
	Delete(ctx context.Context, projectID string) error
	List(ctx context.Context) (map[string]models.Project, error)
	SetMaterial(ctx context.Context, projectID string, material models.Material) error
	UpdateMaterial(ctx context.Context, projectID, materialID string, fields map[string]any) error
	DeleteMaterial(ctx context.Context, projectID, materialID string) error
	SetStep(ctx context.Context, projectID string, step models.Step) error
	UpdateStep(ctx context.Context, projectID, stepID string, fields map[string]any) error
	DeleteStep(ctx context.Context, projectID, stepID string) error
}

type repositoryImpl struct {
	store keytree.Store
}

// NewRepository returns a projects repository bound to the key tree.
func NewRepository(store keytree.Store) Repository {
	return &repositoryImpl{store: store}
}

// Path returns the tree path of a project record.
func Path(projectID string) string {
	return keytree.Join("projects", projectID)
}

// AcquiredPath returns the tree path of a material's acquired counter.
// All acquired writes go through the quantity ledger at this path.
func AcquiredPath(projectID, materialID string) string {
	return keytree.Join("projects", projectID, "materials", materialID, "acquired")
}

func materialPath(projectID, materialID string) string {
	return keytree.Join("projects", projectID, "materials", materialID)
}

func stepPath(projectID, stepID string) string {
	return keytree.Join("projects", projectID, "steps", stepID)
}

func (r *repositoryImpl) Create(ctx context.Context, project models.Project) error {
	return r.store.Set(ctx, Path(project.ID), project)
}

func (r *repositoryImpl) Get(ctx context.Context, projectID string) (*models.Project, error) {
	var project models.Project
	if err := r.store.Get(ctx, Path(projectID), &project); err != nil {
		return nil, err
	}
	project.ID = projectID
	return &project, nil
}

func (r *repositoryImpl) Update(ctx context.Context, projectID string, fields map[string]any) error {
	return r.store.Update(ctx, Path(projectID), fields)
}

func (r *repositoryImpl) Delete(ctx context.Context, projectID string) error {
	return r.store.Delete(ctx, Path(projectID))
}

func (r *repositoryImpl) List(ctx context.Context) (map[string]models.Project, error) {
	items := map[string]models.Project{}
	err := r.store.Get(ctx, "projects", &items)
	if errors.Is(err, keytree.ErrNotFound) {
		return map[string]models.Project{}, nil
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repositoryImpl) SetMaterial(ctx context.Context, projectID string, material models.Material) error {
	return r.store.Set(ctx, materialPath(projectID, material.ID), material)
}

func (r *repositoryImpl) UpdateMaterial(ctx context.Context, projectID, materialID string, fields map[string]any) error {
	return r.store.Update(ctx, materialPath(projectID, materialID), fields)
}

func (r *repositoryImpl) DeleteMaterial(ctx context.Context, projectID, materialID string) error {
	return r.store.Delete(ctx, materialPath(projectID, materialID))
}

func (r *repositoryImpl) SetStep(ctx context.Context, projectID string, step models.Step) error {
	return r.store.Set(ctx, stepPath(projectID, step.ID), step)
}

func (r *repositoryImpl) UpdateStep(ctx context.Context, projectID, stepID string, fields map[string]any) error {
	return r.store.Update(ctx, stepPath(projectID, stepID), fields)
}

func (r *repositoryImpl) DeleteStep(ctx context.Context, projectID, stepID string) error {
	return r.store.Delete(ctx, stepPath(projectID, stepID))
}
