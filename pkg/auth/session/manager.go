package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ecoforge/ecoforge-backend/pkg/config"
	redisclient "github.com/ecoforge/ecoforge-backend/pkg/redis"
	redislib "github.com/redis/go-redis/v9"
)

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	AccessSessionKey(accessID string) string
}

// Manager tracks which access-token ids still have a live session in Redis.
// Minting credentials happens elsewhere (auth is an upstream service); the
// engine only needs to open, check, and revoke sessions.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
}

// AccessSessionChecker exposes the read-only surface needed by middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	ttl := cfg.SessionTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}
	accessTTL := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if ttl <= accessTTL {
		return nil, fmt.Errorf("session ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}

	return &Manager{
		store: client,
		keyer: client,
		ttl:   ttl,
	}, nil
}

// Open records a live session for the provided access ID.
func (m *Manager) Open(ctx context.Context, accessID, userID string) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	return m.store.Set(ctx, m.keyer.AccessSessionKey(accessID), userID, m.ttl)
}

// HasSession reports whether the access ID still has a live session.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, nil
	}
	_, err := m.store.Get(ctx, m.keyer.AccessSessionKey(accessID))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Revoke drops the session for the provided access ID.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return nil
	}
	return m.store.Del(ctx, m.keyer.AccessSessionKey(accessID))
}
