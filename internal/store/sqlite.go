package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store on a single SQLite database. Every cell is a
// (table, key, qualifier) -> value row; SQLite compares BLOBs with memcmp,
// so an ORDER BY over the key column is exactly the lexicographic scan order
// the schema layer depends on.
//
// Writes go through a dedicated single-writer connection; reads go through a
// small read-only pool.
type SQLiteStore struct {
	db     *sql.DB // Write connection (single writer)
	readDB *sql.DB // Read connection pool (concurrent readers)
	dbPath string
}

// NewSQLiteStore opens (or creates) the store database and ensures the cell
// schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // Single writer
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db, dbPath: dbPath}
	if err := s.EnsureTables(); err != nil {
		db.Close()
		return nil, err
	}

	readDB, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&mode=ro")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to open read database: %w", err)
	}
	readDB.SetMaxOpenConns(4)
	readDB.SetMaxIdleConns(4)
	readDB.SetConnMaxLifetime(5 * time.Minute)

	s.readDB = readDB
	return s, nil
}

// EnsureTables creates the cell schema if it is missing. The family id is
// fixed per table, so it is stored once in the schema comment rather than
// per cell.
func (s *SQLiteStore) EnsureTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cells (
		tbl  TEXT NOT NULL,
		key  BLOB NOT NULL,
		qual BLOB NOT NULL,
		val  BLOB NOT NULL,
		PRIMARY KEY (tbl, key, qual)
	) WITHOUT ROWID;
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("store: failed to initialize schema: %w", err)
	}
	return nil
}

// Get returns the columns of one row, optionally restricted to qualifiers.
func (s *SQLiteStore) Get(ctx context.Context, table string, key []byte, qualifiers ...[]byte) ([]Column, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if len(qualifiers) == 0 {
		rows, err = s.readDB.QueryContext(ctx,
			`SELECT qual, val FROM cells WHERE tbl = ? AND key = ? ORDER BY qual`, table, key)
	} else {
		query := `SELECT qual, val FROM cells WHERE tbl = ? AND key = ? AND qual IN (?` +
			strings.Repeat(",?", len(qualifiers)-1) + `) ORDER BY qual`
		args := make([]interface{}, 0, len(qualifiers)+2)
		args = append(args, table, key)
		for _, q := range qualifiers {
			args = append(args, q)
		}
		rows, err = s.readDB.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get failed: %w", err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var c Column
		if err := rows.Scan(&c.Qualifier, &c.Value); err != nil {
			return nil, fmt.Errorf("store: get scan failed: %w", err)
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: get iteration failed: %w", err)
	}
	return cols, nil
}

// Put writes all columns of one row inside a single transaction, which gives
// the single-row multi-column atomicity the contract requires.
func (s *SQLiteStore) Put(ctx context.Context, table string, key []byte, columns ...Column) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: put begin failed: %w", err)
	}
	defer tx.Rollback()

	for _, c := range columns {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO cells (tbl, key, qual, val) VALUES (?, ?, ?, ?)
			 ON CONFLICT (tbl, key, qual) DO UPDATE SET val = excluded.val`,
			table, key, c.Qualifier, c.Value)
		if err != nil {
			return fmt.Errorf("store: put failed: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: put commit failed: %w", err)
	}
	return nil
}

// Delete removes a whole row, or individual columns when qualifiers are given.
func (s *SQLiteStore) Delete(ctx context.Context, table string, key []byte, qualifiers ...[]byte) error {
	if len(qualifiers) == 0 {
		_, err := s.db.ExecContext(ctx,
			`DELETE FROM cells WHERE tbl = ? AND key = ?`, table, key)
		if err != nil {
			return fmt.Errorf("store: delete failed: %w", err)
		}
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: delete begin failed: %w", err)
	}
	defer tx.Rollback()
	for _, q := range qualifiers {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM cells WHERE tbl = ? AND key = ? AND qual = ?`, table, key, q)
		if err != nil {
			return fmt.Errorf("store: delete failed: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: delete commit failed: %w", err)
	}
	return nil
}

// Scan iterates rows with start <= key < stop in key order. Cells arrive
// ordered by (key, qual); the scanner groups consecutive cells of one key
// into a Row.
func (s *SQLiteStore) Scan(ctx context.Context, table string, start, stop []byte) (Scanner, error) {
	query := `SELECT key, qual, val FROM cells WHERE tbl = ?`
	args := []interface{}{table}
	if start != nil {
		query += ` AND key >= ?`
		args = append(args, start)
	}
	if stop != nil {
		query += ` AND key < ?`
		args = append(args, stop)
	}
	query += ` ORDER BY key, qual`

	rows, err := s.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: scan failed: %w", err)
	}
	return &sqliteScanner{rows: rows}, nil
}

// Increment atomically adds delta to an 8-byte big-endian counter column.
// The read-modify-write runs inside one write transaction; the single-writer
// connection serializes concurrent increments.
func (s *SQLiteStore) Increment(ctx context.Context, table string, key, qualifier []byte, delta int64) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("store: increment begin failed: %w", err)
	}
	defer tx.Rollback()

	var raw []byte
	err = tx.QueryRowContext(ctx,
		`SELECT val FROM cells WHERE tbl = ? AND key = ? AND qual = ?`,
		table, key, qualifier).Scan(&raw)
	var current int64
	switch {
	case err == sql.ErrNoRows:
		current = 0
	case err != nil:
		return 0, fmt.Errorf("store: increment read failed: %w", err)
	case len(raw) != 8:
		return 0, ErrInvalidCounter
	default:
		current = int64(binary.BigEndian.Uint64(raw))
	}

	next := current + delta
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(next))
	_, err = tx.ExecContext(ctx,
		`INSERT INTO cells (tbl, key, qual, val) VALUES (?, ?, ?, ?)
		 ON CONFLICT (tbl, key, qual) DO UPDATE SET val = excluded.val`,
		table, key, qualifier, buf)
	if err != nil {
		return 0, fmt.Errorf("store: increment write failed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("store: increment commit failed: %w", err)
	}
	return next, nil
}

// Close closes both connection pools.
func (s *SQLiteStore) Close() error {
	if s.readDB != nil {
		s.readDB.Close()
	}
	return s.db.Close()
}

// sqliteScanner groups the flat (key, qual, val) result set into rows.
type sqliteScanner struct {
	rows *sql.Rows
	cur  *Row
	// pending holds the first cell of the next row once a key change is seen.
	pendingKey []byte
	pendingCol *Column
	exhausted  bool
	err        error
}

func (s *sqliteScanner) Next() bool {
	if s.err != nil || (s.exhausted && s.pendingCol == nil) {
		return false
	}

	var row *Row
	if s.pendingCol != nil {
		row = &Row{Key: s.pendingKey, Columns: []Column{*s.pendingCol}}
		s.pendingKey = nil
		s.pendingCol = nil
	}

	for s.rows.Next() {
		var key []byte
		var c Column
		if err := s.rows.Scan(&key, &c.Qualifier, &c.Value); err != nil {
			s.err = err
			return false
		}
		if row == nil {
			row = &Row{Key: key, Columns: []Column{c}}
			continue
		}
		if bytes.Equal(key, row.Key) {
			row.Columns = append(row.Columns, c)
			continue
		}
		// Key changed: stash the cell for the next row.
		s.pendingKey = key
		s.pendingCol = &c
		s.cur = row
		return true
	}
	if err := s.rows.Err(); err != nil {
		s.err = err
		return false
	}
	s.exhausted = true
	if row == nil {
		return false
	}
	s.cur = row
	return true
}

func (s *sqliteScanner) Row() *Row  { return s.cur }
func (s *sqliteScanner) Err() error { return s.err }
func (s *sqliteScanner) Close() error {
	return s.rows.Close()
}
