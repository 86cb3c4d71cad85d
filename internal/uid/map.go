// Package uid maintains the bidirectional indirection between externally
// visible tokens (UUIDs, hardware ids) and the compact physical identifiers
// used inside row keys. All indirection spaces share one store table; a
// one-byte kind indicator prefixes every row key so each space occupies a
// disjoint, scannable range.
package uid

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/google/uuid"

	fgerrors "github.com/fieldgrid/fieldgrid/internal/errors"
	"github.com/fieldgrid/fieldgrid/internal/store"
)

// Kind is the one-byte indicator tagging rows of one indirection space.
type Kind byte

const (
	// KindCounter prefixes the counter rows backing CounterMap allocation.
	KindCounter Kind = 0x00

	KindSiteKey         Kind = 0x01
	KindSiteValue       Kind = 0x02
	KindDeviceKey       Kind = 0x03
	KindDeviceValue     Kind = 0x04
	KindZoneKey         Kind = 0x05
	KindZoneValue       Kind = 0x06
	KindAssignmentKey   Kind = 0x07
	KindAssignmentValue Kind = 0x08
)

// valueQualifier names the single column every indirection row carries.
var valueQualifier = []byte("value")

// Map translates between names (tokens) and values (physical identifier
// bytes) for one indirection space. Lookups are two-tier: an in-memory
// cache with process lifetime is consulted first, then the store.
//
// Concurrent Create calls for the same name are not deduplicated here;
// duplicate-token detection is the caller's responsibility.
type Map struct {
	store     store.Store
	keyKind   Kind
	valueKind Kind

	mu          sync.RWMutex
	nameToValue map[string][]byte
	valueToName map[string]string
	// filter short-circuits store fallbacks for names that were never
	// created. Only trustworthy after a full Refresh under the
	// single-writer-per-token assumption.
	filter *seenFilter
}

// NewMap creates a Map for one indirection space.
func NewMap(s store.Store, keyKind, valueKind Kind) *Map {
	return &Map{
		store:       s,
		keyKind:     keyKind,
		valueKind:   valueKind,
		nameToValue: make(map[string][]byte),
		valueToName: make(map[string]string),
	}
}

func rowKey(kind Kind, body []byte) []byte {
	out := make([]byte, 0, len(body)+1)
	out = append(out, byte(kind))
	return append(out, body...)
}

// Create writes both directions of a mapping. The value-to-name row goes
// first so a failure between the two writes never leaves a name without a
// reverse lookup. The cache is updated only after both writes succeed.
func (m *Map) Create(ctx context.Context, name string, value []byte) error {
	reverse := rowKey(m.valueKind, value)
	if err := m.store.Put(ctx, store.TableUIDs, reverse,
		store.Column{Qualifier: valueQualifier, Value: []byte(name)}); err != nil {
		return fgerrors.NewStoreError(fgerrors.CodePutFailed,
			"unable to store value mapping in uid table", err)
	}

	forward := rowKey(m.keyKind, []byte(name))
	if err := m.store.Put(ctx, store.TableUIDs, forward,
		store.Column{Qualifier: valueQualifier, Value: value}); err != nil {
		return fgerrors.NewStoreError(fgerrors.CodePutFailed,
			"unable to store name mapping in uid table", err)
	}

	m.mu.Lock()
	m.nameToValue[name] = cloneBytes(value)
	m.valueToName[string(value)] = name
	if m.filter != nil {
		m.filter.Add([]byte(name))
	}
	m.mu.Unlock()
	return nil
}

// CreateToken mints a fresh UUID token for the given value bytes and
// creates the mapping. Used for entities whose physical identifier is a
// full row key (zones, assignments).
func (m *Map) CreateToken(ctx context.Context, value []byte) (string, error) {
	token := uuid.NewString()
	if err := m.Create(ctx, token, value); err != nil {
		return "", err
	}
	return token, nil
}

// GetValue resolves a name to its value. A nil value with nil error means
// the name is unknown; an error means the store lookup itself failed.
func (m *Map) GetValue(ctx context.Context, name string) ([]byte, error) {
	m.mu.RLock()
	if v, ok := m.nameToValue[name]; ok {
		m.mu.RUnlock()
		return cloneBytes(v), nil
	}
	skip := m.filter != nil && !m.filter.MightContain([]byte(name))
	m.mu.RUnlock()
	if skip {
		return nil, nil
	}
	return m.getValueFromStore(ctx, name)
}

// getValueFromStore is the cache-miss fallback for GetValue.
func (m *Map) getValueFromStore(ctx context.Context, name string) ([]byte, error) {
	cols, err := m.store.Get(ctx, store.TableUIDs, rowKey(m.keyKind, []byte(name)), valueQualifier)
	if err != nil {
		return nil, fgerrors.NewStoreError(fgerrors.CodeGetFailed,
			"error locating name to value mapping", err)
	}
	if len(cols) == 0 {
		return nil, nil
	}
	value := cols[0].Value
	m.mu.Lock()
	m.nameToValue[name] = cloneBytes(value)
	m.valueToName[string(value)] = name
	m.mu.Unlock()
	return cloneBytes(value), nil
}

// GetName resolves a value back to its name. An empty name with nil error
// means the value is unknown.
func (m *Map) GetName(ctx context.Context, value []byte) (string, error) {
	m.mu.RLock()
	if n, ok := m.valueToName[string(value)]; ok {
		m.mu.RUnlock()
		return n, nil
	}
	m.mu.RUnlock()
	return m.getNameFromStore(ctx, value)
}

// getNameFromStore is the cache-miss fallback for GetName.
func (m *Map) getNameFromStore(ctx context.Context, value []byte) (string, error) {
	cols, err := m.store.Get(ctx, store.TableUIDs, rowKey(m.valueKind, value), valueQualifier)
	if err != nil {
		return "", fgerrors.NewStoreError(fgerrors.CodeGetFailed,
			"error locating value to name mapping", err)
	}
	if len(cols) == 0 {
		return "", nil
	}
	name := string(cols[0].Value)
	m.mu.Lock()
	m.nameToValue[name] = cloneBytes(value)
	m.valueToName[string(value)] = name
	m.mu.Unlock()
	return name, nil
}

// Delete removes the forward (name-to-value) mapping from the store and
// both directions from the cache. The reverse row is intentionally left in
// place: forced entity deletes have always orphaned it, and existing data
// depends on that layout staying put.
func (m *Map) Delete(ctx context.Context, name string) error {
	m.mu.RLock()
	value, cached := m.nameToValue[name]
	m.mu.RUnlock()

	if err := m.store.Delete(ctx, store.TableUIDs, rowKey(m.keyKind, []byte(name))); err != nil {
		return fgerrors.NewStoreError(fgerrors.CodeDeleteFailed,
			"unable to delete name mapping from uid table", err)
	}

	m.mu.Lock()
	delete(m.nameToValue, name)
	if cached {
		delete(m.valueToName, string(value))
	}
	m.mu.Unlock()
	return nil
}

// Refresh bulk-loads both directions of this space from the store via
// kind-bounded prefix scans, replacing the cache and arming the
// negative-lookup filter.
func (m *Map) Refresh(ctx context.Context) error {
	nameToValue := make(map[string][]byte)
	valueToName := make(map[string]string)

	if err := m.scanKind(ctx, m.keyKind, func(body, value []byte) {
		nameToValue[string(body)] = cloneBytes(value)
	}); err != nil {
		return err
	}
	if err := m.scanKind(ctx, m.valueKind, func(body, value []byte) {
		valueToName[string(body)] = string(value)
	}); err != nil {
		return err
	}

	filter := newSeenFilter(len(nameToValue))
	for name := range nameToValue {
		filter.Add([]byte(name))
	}

	m.mu.Lock()
	m.nameToValue = nameToValue
	m.valueToName = valueToName
	m.filter = filter
	m.mu.Unlock()
	return nil
}

// scanKind visits every row of one kind range. The row-key body (kind byte
// stripped) and column value are passed to visit.
func (m *Map) scanKind(ctx context.Context, kind Kind, visit func(body, value []byte)) error {
	start := []byte{byte(kind)}
	stop := []byte{byte(kind) + 1}
	scanner, err := m.store.Scan(ctx, store.TableUIDs, start, stop)
	if err != nil {
		return fgerrors.NewStoreError(fgerrors.CodeScanFailed,
			"unable to scan uid table", err)
	}
	defer scanner.Close()

	for scanner.Next() {
		row := scanner.Row()
		if len(row.Key) < 2 {
			continue
		}
		if v := row.Column(valueQualifier); v != nil {
			visit(row.Key[1:], v)
		}
	}
	if err := scanner.Err(); err != nil {
		return fgerrors.NewStoreError(fgerrors.CodeScanFailed,
			"error scanning uid table", err)
	}
	return nil
}

// EncodeCounterValue encodes a counter-backed physical identifier the way
// it is persisted in uid rows.
func EncodeCounterValue(value uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, value)
	return buf
}

// DecodeCounterValue decodes a persisted counter value. The second return
// is false for malformed values.
func DecodeCounterValue(raw []byte) (uint64, bool) {
	if len(raw) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(raw), true
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
