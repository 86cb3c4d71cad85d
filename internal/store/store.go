// Package store defines the sorted wide-column store contract the schema
// layer is built on, along with an in-memory backend for tests and a
// SQLite-backed implementation for single-node deployments.
//
// The contract is deliberately narrow: point get, multi-column put, delete,
// lexicographic range scan, and atomic increment. Key layout decides which
// queries are efficient; there are no secondary indexes and no multi-row
// transactions. A put touching several columns of one row is atomic.
package store

import (
	"bytes"
	"context"
	"errors"
)

// Table names for the persisted layout. Sites, zones, and assignments are
// co-located in the sites table; their record-type bytes partition the
// per-site key space.
const (
	TableUIDs    = "uids"
	TableSites   = "sites"
	TableDevices = "devices"
	TableEvents  = "events"
)

// FamilyID is the single column family shared by every table. Backends fold
// it into their physical layout; it is part of the persisted format, not of
// the call surface.
var FamilyID = []byte("s")

// Common errors for store operations.
var (
	ErrClosed         = errors.New("store is closed")
	ErrInvalidCounter = errors.New("counter column does not hold an 8-byte value")
)

// Column is a qualifier/value pair within a row.
type Column struct {
	Qualifier []byte
	Value     []byte
}

// Row is a key plus its columns, qualifiers in ascending byte order.
type Row struct {
	Key     []byte
	Columns []Column
}

// Column returns the value stored under the given qualifier, or nil if the
// row does not carry it.
func (r *Row) Column(qualifier []byte) []byte {
	for _, c := range r.Columns {
		if bytes.Equal(c.Qualifier, qualifier) {
			return c.Value
		}
	}
	return nil
}

// HasColumn reports whether the row carries the given qualifier.
func (r *Row) HasColumn(qualifier []byte) bool {
	for _, c := range r.Columns {
		if bytes.Equal(c.Qualifier, qualifier) {
			return true
		}
	}
	return false
}

// Scanner iterates rows of a range scan in ascending key order. Usage
// mirrors sql.Rows: Next, Row, then Err after the loop.
type Scanner interface {
	// Next advances to the next row. It returns false when the scan is
	// exhausted or an error occurred.
	Next() bool

	// Row returns the current row. Only valid after Next returned true.
	Row() *Row

	// Err returns the first error encountered during iteration.
	Err() error

	// Close releases scan resources. Safe to call multiple times.
	Close() error
}

// Store is the wide-column contract consumed by the schema layer.
//
// Scan bounds follow the usual half-open convention: start is inclusive,
// stop is exclusive. A nil start scans from the beginning of the table; a
// nil stop scans to the end.
type Store interface {
	// Get returns the columns of one row. With qualifiers given, only those
	// columns are returned. A missing row yields an empty slice, not an
	// error.
	Get(ctx context.Context, table string, key []byte, qualifiers ...[]byte) ([]Column, error)

	// Put writes the given columns into one row as a single atomic batch.
	Put(ctx context.Context, table string, key []byte, columns ...Column) error

	// Delete removes whole rows (no qualifiers) or individual columns.
	Delete(ctx context.Context, table string, key []byte, qualifiers ...[]byte) error

	// Scan iterates rows with start <= key < stop.
	Scan(ctx context.Context, table string, start, stop []byte) (Scanner, error)

	// Increment atomically adds delta to a counter column, initializing a
	// missing counter to zero first, and returns the new value. Counters
	// are stored as 8-byte big-endian signed integers.
	Increment(ctx context.Context, table string, key, qualifier []byte, delta int64) (int64, error)

	// Close releases backend resources.
	Close() error
}
