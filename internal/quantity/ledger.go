// Package quantity adjusts integer counters stored at key-tree paths.
//
// Every adjustment is attempted as an optimistic per-path transaction first.
// When the transaction transport fails, a single plain read-modify-write pass
// runs instead so a flaky backend degrades to last-writer-wins rather than a
// hard error. Bound violations found inside the transaction are never retried
// through the fallback.
package quantity

import (
	"context"
	"errors"
	"fmt"

	pkgerrors "github.com/ecoforge/ecoforge-backend/pkg/errors"
	"github.com/ecoforge/ecoforge-backend/pkg/keytree"
	"github.com/ecoforge/ecoforge-backend/pkg/logger"
)

// ErrInsufficient is returned by strict adjustments that would push the
// counter below its floor. Nothing is written when it is returned.
var ErrInsufficient = errors.New("insufficient quantity")

// Options bound an adjustment.
type Options struct {
	// Min is the floor. Strict adjustments refuse to cross it; non-strict
	// adjustments clamp to it.
	Min int
	// Max caps the counter when HasMax is set. Always a clamp, never an error.
	Max    int
	HasMax bool
	// Strict makes a floor violation return ErrInsufficient instead of
	// clamping.
	Strict bool
}

// Result reports the counter values around an adjustment.
type Result struct {
	Previous int
	Current  int
	// Applied is the delta actually written after clamping.
	Applied int
	// Fallback is set when the plain read-modify-write path ran.
	Fallback bool
}

// Ledger adjusts counters at arbitrary store paths.
type Ledger interface {
	Adjust(ctx context.Context, path string, delta int, opts Options) (*Result, error)
}

type ledger struct {
	store keytree.Store
	logg  *logger.Logger
}

// NewLedger wires a quantity ledger over the given store.
func NewLedger(store keytree.Store, logg *logger.Logger) (Ledger, error) {
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "quantity store required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "quantity logger required")
	}
	return &ledger{store: store, logg: logg}, nil
}

func (l *ledger) Adjust(ctx context.Context, path string, delta int, opts Options) (*Result, error) {
	if path == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "counter path required")
	}

	result := &Result{}
	err := l.store.Transact(ctx, path, func(node keytree.Node) (any, error) {
		current := 0
		if err := node.Unmarshal(&current); err != nil {
			return nil, fmt.Errorf("decode counter: %w", err)
		}
		next, applied, err := apply(current, delta, opts)
		if err != nil {
			return nil, err
		}
		result.Previous = current
		result.Current = next
		result.Applied = applied
		return next, nil
	})
	if err == nil {
		return result, nil
	}
	if errors.Is(err, ErrInsufficient) {
		return nil, ErrInsufficient
	}

	// Transport failure. One plain pass; a concurrent writer can win here.
	l.logg.Error(l.logg.WithPath(ctx, path), "quantity.adjust transaction failed, falling back", err)

	current := 0
	if getErr := l.store.Get(ctx, path, &current); getErr != nil && !errors.Is(getErr, keytree.ErrNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, getErr, "read counter")
	}
	next, applied, applyErr := apply(current, delta, opts)
	if applyErr != nil {
		return nil, applyErr
	}
	if setErr := l.store.Set(ctx, path, next); setErr != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, setErr, "write counter")
	}
	return &Result{Previous: current, Current: next, Applied: applied, Fallback: true}, nil
}

func apply(current, delta int, opts Options) (next, applied int, err error) {
	next = current + delta
	if next < opts.Min {
		if opts.Strict {
			return 0, 0, ErrInsufficient
		}
		next = opts.Min
	}
	if opts.HasMax && next > opts.Max {
		next = opts.Max
	}
	return next, next - current, nil
}
