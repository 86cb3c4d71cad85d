package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"sort"
	"sync"
)

// MemoryStore is a sorted in-memory Store used for tests and development.
// All operations take the store lock, which gives the same single-row
// atomicity guarantees the contract requires.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]map[string]map[string][]byte // table -> key -> qualifier -> value
	closed bool
}

// NewMemoryStore creates an empty in-memory store. Tables are created
// implicitly on first write.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: make(map[string]map[string]map[string][]byte),
	}
}

func (m *MemoryStore) table(name string) map[string]map[string][]byte {
	t, ok := m.tables[name]
	if !ok {
		t = make(map[string]map[string][]byte)
		m.tables[name] = t
	}
	return t
}

// Get returns the columns of one row, optionally restricted to qualifiers.
func (m *MemoryStore) Get(ctx context.Context, table string, key []byte, qualifiers ...[]byte) ([]Column, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	row, ok := m.tables[table][string(key)]
	if !ok {
		return nil, nil
	}

	var cols []Column
	if len(qualifiers) == 0 {
		for q, v := range row {
			cols = append(cols, Column{Qualifier: []byte(q), Value: cloneBytes(v)})
		}
	} else {
		for _, q := range qualifiers {
			if v, ok := row[string(q)]; ok {
				cols = append(cols, Column{Qualifier: cloneBytes(q), Value: cloneBytes(v)})
			}
		}
	}
	sortColumns(cols)
	return cols, nil
}

// Put writes all columns into one row under the store lock.
func (m *MemoryStore) Put(ctx context.Context, table string, key []byte, columns ...Column) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	t := m.table(table)
	row, ok := t[string(key)]
	if !ok {
		row = make(map[string][]byte)
		t[string(key)] = row
	}
	for _, c := range columns {
		row[string(c.Qualifier)] = cloneBytes(c.Value)
	}
	return nil
}

// Delete removes a whole row, or individual columns when qualifiers are given.
func (m *MemoryStore) Delete(ctx context.Context, table string, key []byte, qualifiers ...[]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}

	t, ok := m.tables[table]
	if !ok {
		return nil
	}
	if len(qualifiers) == 0 {
		delete(t, string(key))
		return nil
	}
	if row, ok := t[string(key)]; ok {
		for _, q := range qualifiers {
			delete(row, string(q))
		}
		if len(row) == 0 {
			delete(t, string(key))
		}
	}
	return nil
}

// Scan materializes a snapshot of the matching rows and iterates it. Rows
// are returned in ascending key order with sorted qualifiers.
func (m *MemoryStore) Scan(ctx context.Context, table string, start, stop []byte) (Scanner, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	var keys []string
	for k := range m.tables[table] {
		kb := []byte(k)
		if start != nil && bytes.Compare(kb, start) < 0 {
			continue
		}
		if stop != nil && bytes.Compare(kb, stop) >= 0 {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([]*Row, 0, len(keys))
	for _, k := range keys {
		cols := make([]Column, 0, len(m.tables[table][k]))
		for q, v := range m.tables[table][k] {
			cols = append(cols, Column{Qualifier: []byte(q), Value: cloneBytes(v)})
		}
		sortColumns(cols)
		rows = append(rows, &Row{Key: []byte(k), Columns: cols})
	}
	return &sliceScanner{rows: rows}, nil
}

// Increment atomically adds delta to an 8-byte big-endian counter column.
func (m *MemoryStore) Increment(ctx context.Context, table string, key, qualifier []byte, delta int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, ErrClosed
	}

	t := m.table(table)
	row, ok := t[string(key)]
	if !ok {
		row = make(map[string][]byte)
		t[string(key)] = row
	}

	var current int64
	if raw, ok := row[string(qualifier)]; ok {
		if len(raw) != 8 {
			return 0, ErrInvalidCounter
		}
		current = int64(binary.BigEndian.Uint64(raw))
	}
	next := current + delta
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(next))
	row[string(qualifier)] = buf
	return next, nil
}

// Close marks the store closed; further calls fail with ErrClosed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// sliceScanner iterates a materialized row snapshot.
type sliceScanner struct {
	rows []*Row
	idx  int
	cur  *Row
}

func (s *sliceScanner) Next() bool {
	if s.idx >= len(s.rows) {
		return false
	}
	s.cur = s.rows[s.idx]
	s.idx++
	return true
}

func (s *sliceScanner) Row() *Row  { return s.cur }
func (s *sliceScanner) Err() error { return nil }
func (s *sliceScanner) Close() error {
	s.rows = nil
	return nil
}

func sortColumns(cols []Column) {
	sort.Slice(cols, func(i, j int) bool {
		return bytes.Compare(cols[i].Qualifier, cols[j].Qualifier) < 0
	})
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
