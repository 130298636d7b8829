package gamification

import (
	"context"
	"errors"
	"fmt"

	"github.com/ecoforge/ecoforge-backend/pkg/keytree"
	"github.com/ecoforge/ecoforge-backend/pkg/models"
)

// Repository persists the gamification counters embedded in user nodes.
// The user node is shared with profile data owned by other systems, so writes
// go through a transaction that merges stat keys back into the raw node
// instead of replacing it.
type Repository interface {
	GetStats(ctx context.Context, userID string) (models.UserStats, error)
	TransactStats(ctx context.Context, userID string, mutate func(*models.UserStats) error) (models.UserStats, error)
}

type repositoryImpl struct {
	store keytree.Store
}

// NewRepository returns a gamification repository bound to the key tree.
func NewRepository(store keytree.Store) Repository {
	return &repositoryImpl{store: store}
}

func userPath(userID string) string {
	return keytree.Join("users", userID)
}

func (r *repositoryImpl) GetStats(ctx context.Context, userID string) (models.UserStats, error) {
	raw := map[string]any{}
	err := r.store.Get(ctx, userPath(userID), &raw)
	if errors.Is(err, keytree.ErrNotFound) {
		return models.UserStats{}, nil
	}
	if err != nil {
		return models.UserStats{}, err
	}
	return models.StatsFromNode(raw)
}

func (r *repositoryImpl) TransactStats(ctx context.Context, userID string, mutate func(*models.UserStats) error) (models.UserStats, error) {
	var updated models.UserStats
	err := r.store.Transact(ctx, userPath(userID), func(node keytree.Node) (any, error) {
		raw := map[string]any{}
		if err := node.Unmarshal(&raw); err != nil {
			return nil, fmt.Errorf("decode user node: %w", err)
		}
		stats, err := models.StatsFromNode(raw)
		if err != nil {
			return nil, err
		}
		if err := mutate(&stats); err != nil {
			return nil, err
		}
		merged, err := stats.MergeInto(raw)
		if err != nil {
			return nil, err
		}
		updated = stats
		return merged, nil
	})
	if err != nil {
		return models.UserStats{}, err
	}
	return updated, nil
}
