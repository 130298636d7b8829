package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/ecoforge/ecoforge-backend/pkg/keytree"
	"github.com/ecoforge/ecoforge-backend/pkg/models"
)

// Repository exposes persistence helpers for per-user notifications.
type Repository interface {
	Append(ctx context.Context, userID string, notification models.Notification) (string, error)
	List(ctx context.Context, userID string) (map[string]models.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	Delete(ctx context.Context, userID, notificationID string) error
	ListUserIDs(ctx context.Context) ([]string, error)
}

type repositoryImpl struct {
	store keytree.Store
}

// NewRepository returns a notifications repository bound to the key tree.
func NewRepository(store keytree.Store) Repository {
	return &repositoryImpl{store: store}
}

func notificationsPath(userID string) string {
	return keytree.Join("notifications", userID)
}

func (r *repositoryImpl) Append(ctx context.Context, userID string, notification models.Notification) (string, error) {
	return r.store.Push(ctx, notificationsPath(userID), notification)
}

func (r *repositoryImpl) List(ctx context.Context, userID string) (map[string]models.Notification, error) {
	items := map[string]models.Notification{}
	err := r.store.Get(ctx, notificationsPath(userID), &items)
	if errors.Is(err, keytree.ErrNotFound) {
		return map[string]models.Notification{}, nil
	}
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repositoryImpl) MarkRead(ctx context.Context, userID, notificationID string) error {
	path := keytree.Join(notificationsPath(userID), notificationID)
	var existing models.Notification
	if err := r.store.Get(ctx, path, &existing); err != nil {
		return err
	}
	return r.store.Update(ctx, path, map[string]any{"read": true})
}

func (r *repositoryImpl) Delete(ctx context.Context, userID, notificationID string) error {
	return r.store.Delete(ctx, keytree.Join(notificationsPath(userID), notificationID))
}

// ListUserIDs enumerates the user keys under the notifications root for
// maintenance sweeps.
func (r *repositoryImpl) ListUserIDs(ctx context.Context) ([]string, error) {
	feeds := map[string]json.RawMessage{}
	err := r.store.Get(ctx, "notifications", &feeds)
	if errors.Is(err, keytree.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(feeds))
	for id := range feeds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// olderThan reports whether the notification predates the cutoff.
func olderThan(n models.Notification, cutoff time.Time) bool {
	return !n.CreatedAt.IsZero() && n.CreatedAt.Before(cutoff)
}
