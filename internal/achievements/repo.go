package achievements

import (
	"context"
	"errors"

	"github.com/ecoforge/ecoforge-backend/pkg/keytree"
	"github.com/ecoforge/ecoforge-backend/pkg/models"
)

// Repository exposes persistence helpers for the global task list.
type Repository interface {
	Set(ctx context.Context, task models.Task) error
	Get(ctx context.Context, taskID string) (*models.Task, error)
	Delete(ctx context.Context, taskID string) error
	List(ctx context.Context) (map[string]models.Task, error)
}

type repositoryImpl struct {
	store keytree.Store
}

// NewRepository returns a task repository bound to the key tree.
func NewRepository(store keytree.Store) Repository {
	return &repositoryImpl{store: store}
}

func taskPath(taskID string) string {
	return keytree.Join("tasks", taskID)
}

func (r *repositoryImpl) Set(ctx context.Context, task models.Task) error {
	return r.store.Set(ctx, taskPath(task.ID), task)
}

func (r *repositoryImpl) Get(ctx context.Context, taskID string) (*models.Task, error) {
	var task models.Task
	if err := r.store.Get(ctx, taskPath(taskID), &task); err != nil {
		return nil, err
	}
	task.ID = taskID
	return &task, nil
}

func (r *repositoryImpl) Delete(ctx context.Context, taskID string) error {
	return r.store.Delete(ctx, taskPath(taskID))
}

func (r *repositoryImpl) List(ctx context.Context) (map[string]models.Task, error) {
	items := map[string]models.Task{}
	err := r.store.Get(ctx, "tasks", &items)
	if errors.Is(err, keytree.ErrNotFound) {
		return map[string]models.Task{}, nil
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}
