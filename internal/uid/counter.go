package uid

import (
	"context"

	"github.com/google/uuid"

	fgerrors "github.com/fieldgrid/fieldgrid/internal/errors"
	"github.com/fieldgrid/fieldgrid/internal/store"
)

// CounterMap is a Map whose values are allocated from a shared counter row
// in the uid table. It backs the indirection spaces where the physical
// identifier is a plain ordinal (sites, devices) rather than a row key.
type CounterMap struct {
	*Map
}

// NewCounterMap creates a CounterMap for one indirection space.
func NewCounterMap(s store.Store, keyKind, valueKind Kind) *CounterMap {
	return &CounterMap{Map: NewMap(s, keyKind, valueKind)}
}

// counterRowKey is the dedicated counter row for this space: the counter
// placeholder byte followed by the space's key-kind byte.
func (c *CounterMap) counterRowKey() []byte {
	return []byte{byte(KindCounter), byte(c.keyKind)}
}

// NextCounterValue returns the next ordinal for this space. The counter
// row is initialized lazily: the first caller writes 1, later callers go
// through the store's atomic increment.
func (c *CounterMap) NextCounterValue(ctx context.Context) (uint64, error) {
	key := c.counterRowKey()
	cols, err := c.store.Get(ctx, store.TableUIDs, key, valueQualifier)
	if err != nil {
		return 0, fgerrors.NewStoreError(fgerrors.CodeGetFailed,
			"unable to read uid counter row", err)
	}
	if len(cols) == 0 {
		if err := c.store.Put(ctx, store.TableUIDs, key,
			store.Column{Qualifier: valueQualifier, Value: EncodeCounterValue(1)}); err != nil {
			return 0, fgerrors.NewStoreError(fgerrors.CodePutFailed,
				"unable to initialize uid counter row", err)
		}
		return 1, nil
	}
	value, err := c.store.Increment(ctx, store.TableUIDs, key, valueQualifier, 1)
	if err != nil {
		return 0, fgerrors.NewStoreError(fgerrors.CodeIncrementFailed,
			"unable to get next counter value", err)
	}
	return uint64(value), nil
}

// CreateUniqueID mints a UUID token, allocates the next ordinal for it, and
// creates the bidirectional mapping. Returns the token and its ordinal.
func (c *CounterMap) CreateUniqueID(ctx context.Context) (string, uint64, error) {
	token := uuid.NewString()
	value, err := c.NextCounterValue(ctx)
	if err != nil {
		return "", 0, err
	}
	if err := c.Create(ctx, token, EncodeCounterValue(value)); err != nil {
		return "", 0, err
	}
	return token, value, nil
}

// GetCounterValue resolves a name to its ordinal. The boolean is false when
// the name is unknown.
func (c *CounterMap) GetCounterValue(ctx context.Context, name string) (uint64, bool, error) {
	raw, err := c.GetValue(ctx, name)
	if err != nil {
		return 0, false, err
	}
	if raw == nil {
		return 0, false, nil
	}
	value, ok := DecodeCounterValue(raw)
	if !ok {
		return 0, false, fgerrors.NewCorruptError(fgerrors.CodeUnparsableBody,
			"uid counter value is not 8 bytes")
	}
	return value, true, nil
}
