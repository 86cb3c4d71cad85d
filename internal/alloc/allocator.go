// Package alloc produces unique, ordered physical identifiers for children
// of a parent row without a centralized sequencer. The store's atomic
// increment is the sole serialization point; no application locking is
// involved, so any number of processes can allocate against the same
// counter row concurrently.
package alloc

import (
	"context"

	fgerrors "github.com/fieldgrid/fieldgrid/internal/errors"
	"github.com/fieldgrid/fieldgrid/internal/store"
)

// CounterSeed is the initial value of per-parent ordinal counters. Counters
// are seeded at creation of the parent row and decremented per allocation,
// so later-created children carry smaller identifiers. Identifiers are
// later truncated to a fixed byte width; starting at the top of the int64
// range maximizes the distance to the truncation boundary.
const CounterSeed = int64(^uint64(0) >> 1) // math.MaxInt64

// Allocator wraps the store's atomic increment for id allocation.
//
// Increments against a counter row whose parent entity does not exist still
// succeed: the counter is independent of parent existence. Callers that
// need referential integrity must resolve the parent first.
type Allocator struct {
	store store.Store
	table string
}

// New creates an Allocator for counter rows in the given table.
func New(s store.Store, table string) *Allocator {
	return &Allocator{store: s, table: table}
}

// Next atomically moves the counter at (parentKey, qualifier) by delta and
// returns the new value. Under concurrent callers each call observes a
// distinct value.
func (a *Allocator) Next(ctx context.Context, parentKey, qualifier []byte, delta int64) (int64, error) {
	value, err := a.store.Increment(ctx, a.table, parentKey, qualifier, delta)
	if err != nil {
		return 0, fgerrors.NewStoreError(fgerrors.CodeIncrementFailed, "unable to allocate next id", err)
	}
	return value, nil
}

// NextOrdinal allocates the next decrementing ordinal for a seeded
// per-parent counter.
func (a *Allocator) NextOrdinal(ctx context.Context, parentKey, qualifier []byte) (uint64, error) {
	value, err := a.Next(ctx, parentKey, qualifier, -1)
	if err != nil {
		return 0, err
	}
	return uint64(value), nil
}
