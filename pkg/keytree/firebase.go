package keytree

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/db"
	"google.golang.org/api/option"

	"github.com/ecoforge/ecoforge-backend/pkg/config"
)

// FirebaseStore implements Store on top of the Realtime Database. The RTDB
// Ref.Transaction call is the per-path optimistic CAS the Store contract
// promises.
type FirebaseStore struct {
	client *db.Client
}

// NewFirebaseStore connects to the Realtime Database named by cfg.
func NewFirebaseStore(ctx context.Context, cfg config.FirebaseConfig) (*FirebaseStore, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, fmt.Errorf("firebase database url is required")
	}

	var opts []option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.ApplicationCredentials != "":
		opts = append(opts, option.WithCredentialsFile(cfg.ApplicationCredentials))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{
		DatabaseURL: cfg.DatabaseURL,
		ProjectID:   cfg.ProjectID,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing firebase app: %w", err)
	}

	client, err := app.Database(ctx)
	if err != nil {
		return nil, fmt.Errorf("connecting realtime database: %w", err)
	}

	return &FirebaseStore{client: client}, nil
}

func (s *FirebaseStore) Get(ctx context.Context, path string, dest any) error {
	var raw json.RawMessage
	if err := s.client.NewRef(path).Get(ctx, &raw); err != nil {
		return fmt.Errorf("get %s: %w", path, err)
	}
	if isNull(raw) {
		return ErrNotFound
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (s *FirebaseStore) Set(ctx context.Context, path string, value any) error {
	if err := s.client.NewRef(path).Set(ctx, value); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	return nil
}

func (s *FirebaseStore) Update(ctx context.Context, path string, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}
	converted := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		converted[k] = v
	}
	if err := s.client.NewRef(path).Update(ctx, converted); err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	return nil
}

func (s *FirebaseStore) Push(ctx context.Context, path string, value any) (string, error) {
	ref, err := s.client.NewRef(path).Push(ctx, value)
	if err != nil {
		return "", fmt.Errorf("push %s: %w", path, err)
	}
	return ref.Key, nil
}

func (s *FirebaseStore) Delete(ctx context.Context, path string) error {
	if err := s.client.NewRef(path).Delete(ctx); err != nil {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (s *FirebaseStore) Transact(ctx context.Context, path string, fn TxnFunc) error {
	err := s.client.NewRef(path).Transaction(ctx, func(node db.TransactionNode) (interface{}, error) {
		return fn(node)
	})
	if err != nil {
		return fmt.Errorf("transact %s: %w", path, err)
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
