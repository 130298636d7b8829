// Package keytree abstracts the hierarchical key-value store the engine
// persists to. The store guarantees per-path reads/writes and a per-path
// optimistic compare-and-swap transaction, and nothing across paths: two
// writes to different paths are never atomic and may be observed in either
// order. Every caller is written against that contract.
package keytree

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is returned by Get when no value exists at the path.
var ErrNotFound = errors.New("keytree: not found")

// Node is a snapshot of the value at a path inside a transaction.
type Node interface {
	Unmarshal(dest any) error
}

// TxnFunc receives the current value at the transaction path and returns the
// value to write. Returning an error aborts the transaction without writing.
type TxnFunc func(node Node) (any, error)

// Store is the minimal surface the engine needs from the key tree.
type Store interface {
	// Get unmarshals the value at path into dest, or returns ErrNotFound.
	Get(ctx context.Context, path string, dest any) error
	// Set replaces the value at path.
	Set(ctx context.Context, path string, value any) error
	// Update merges the given children into the node at path. Keys may be
	// slash-separated relative paths.
	Update(ctx context.Context, path string, fields map[string]any) error
	// Push stores value under a new generated child key and returns the key.
	Push(ctx context.Context, path string, value any) (string, error)
	// Delete removes the node at path.
	Delete(ctx context.Context, path string) error
	// Transact runs fn as an optimistic compare-and-swap on the single node
	// at path, retrying on contention. This is the only multi-writer-safe
	// primitive the store offers.
	Transact(ctx context.Context, path string, fn TxnFunc) error
}

// Join builds a store path from segments, dropping empty ones.
func Join(parts ...string) string {
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.Trim(part, "/")
		if part == "" {
			continue
		}
		clean = append(clean, part)
	}
	return strings.Join(clean, "/")
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}
