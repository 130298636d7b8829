package keytree

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store used by tests and local development.
// Values are kept JSON-roundtripped so that struct tags behave exactly as
// they do against the real database.
type MemoryStore struct {
	mu   sync.Mutex
	root map[string]any
}

// NewMemoryStore returns an empty in-memory key tree.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{root: map[string]any{}}
}

type memoryNode struct {
	raw json.RawMessage
}

func (n memoryNode) Unmarshal(dest any) error {
	if isNull(n.raw) {
		return nil
	}
	return json.Unmarshal(n.raw, dest)
}

func (s *MemoryStore) Get(ctx context.Context, path string, dest any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := s.snapshot(path)
	if err != nil {
		return err
	}
	if isNull(raw) {
		return ErrNotFound
	}
	return json.Unmarshal(raw, dest)
}

func (s *MemoryStore) Set(ctx context.Context, path string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.setLocked(path, value)
}

func (s *MemoryStore) Update(ctx context.Context, path string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, value := range fields {
		if err := s.setLocked(Join(path, key), value); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) Push(ctx context.Context, path string, value any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := uuid.NewString()
	if err := s.setLocked(Join(path, key), value); err != nil {
		return "", err
	}
	return key, nil
}

func (s *MemoryStore) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	segments := splitPath(path)
	if len(segments) == 0 {
		s.root = map[string]any{}
		return nil
	}
	parent := s.root
	for _, segment := range segments[:len(segments)-1] {
		child, ok := parent[segment].(map[string]any)
		if !ok {
			return nil
		}
		parent = child
	}
	delete(parent, segments[len(segments)-1])
	return nil
}

func (s *MemoryStore) Transact(ctx context.Context, path string, fn TxnFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := s.snapshot(path)
	if err != nil {
		return err
	}
	result, err := fn(memoryNode{raw: raw})
	if err != nil {
		return fmt.Errorf("transact %s: %w", path, err)
	}
	return s.setLocked(path, result)
}

// snapshot marshals the subtree at path; missing nodes yield "null", which
// mirrors what the Realtime Database returns.
func (s *MemoryStore) snapshot(path string) (json.RawMessage, error) {
	var current any = s.root
	for _, segment := range splitPath(path) {
		asMap, ok := current.(map[string]any)
		if !ok {
			return json.RawMessage("null"), nil
		}
		current, ok = asMap[segment]
		if !ok {
			return json.RawMessage("null"), nil
		}
	}
	raw, err := json.Marshal(current)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	return raw, nil
}

func (s *MemoryStore) setLocked(path string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if isNull(raw) {
		segments := splitPath(path)
		if len(segments) == 0 {
			s.root = map[string]any{}
			return nil
		}
		parent := s.root
		for _, segment := range segments[:len(segments)-1] {
			child, ok := parent[segment].(map[string]any)
			if !ok {
				return nil
			}
			parent = child
		}
		delete(parent, segments[len(segments)-1])
		return nil
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}

	segments := splitPath(path)
	if len(segments) == 0 {
		asMap, ok := decoded.(map[string]any)
		if !ok {
			return fmt.Errorf("root value must be an object")
		}
		s.root = asMap
		return nil
	}

	parent := s.root
	for _, segment := range segments[:len(segments)-1] {
		child, ok := parent[segment].(map[string]any)
		if !ok {
			child = map[string]any{}
			parent[segment] = child
		}
		parent = child
	}
	parent[segments[len(segments)-1]] = decoded
	return nil
}
