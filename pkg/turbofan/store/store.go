package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/common"
	"github.com/elevated-systems/turbofan-rul/pkg/turbofan/types"
)

var (
	// ErrStoreUnavailable marks transient failures (database busy, locked or unopenable) that are
	// worth retrying
	ErrStoreUnavailable = errors.New("store temporarily unavailable")

	// ErrTableMissing means the readings table has never been ingested
	ErrTableMissing = errors.New("readings table does not exist")
)

// ReadingStore persists raw sensor readings
type ReadingStore interface {
	Replace(ctx context.Context, readings []types.SensorReading) error
	Append(ctx context.Context, readings []types.SensorReading) error
	ReadAll(ctx context.Context) ([]types.SensorReading, error)
	Summary(ctx context.Context) (Summary, error)
	Close() error
}

// Summary describes the contents of the readings table
type Summary struct {
	Rows     int `db:"row_count"`
	Units    int `db:"unit_count"`
	MaxCycle int `db:"max_cycle"`
}

// SQLiteStore implements ReadingStore on a single SQLite table
type SQLiteStore struct {
	db     *sqlx.DB
	dbPath string
	table  string
	mutex  sync.RWMutex
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// NewSQLiteStore opens (creating if needed) the database at dbPath. The table is created by the
// first Replace or Append.
func NewSQLiteStore(dbPath, table string) (*SQLiteStore, error) {
	if !identifierPattern.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %v", err)
	}

	db, err := sqlx.Open("sqlite3", dbPath+"?_journal=WAL&_sync=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}
	// SQLite allows one writer; a single connection keeps transactions from contending
	db.SetMaxOpenConns(1)

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
		table:  table,
	}, nil
}

func (s *SQLiteStore) schema() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", s.table)
	fmt.Fprintf(&b, "\t%s INTEGER NOT NULL,\n", common.ColumnUnitNumber)
	fmt.Fprintf(&b, "\t%s INTEGER NOT NULL", common.ColumnTimeInCycles)
	for _, col := range common.FeatureColumns {
		fmt.Fprintf(&b, ",\n\t%s REAL NOT NULL", col)
	}
	b.WriteString("\n);\n")
	fmt.Fprintf(&b, "CREATE INDEX IF NOT EXISTS idx_%s_unit_cycle ON %s(%s, %s);",
		s.table, s.table, common.ColumnUnitNumber, common.ColumnTimeInCycles)
	return b.String()
}

func (s *SQLiteStore) insertQuery() string {
	cols := common.RawColumns()
	named := make([]string, len(cols))
	for i, c := range cols {
		named[i] = ":" + c
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		s.table, strings.Join(cols, ", "), strings.Join(named, ", "))
}

func (s *SQLiteStore) selectQuery() string {
	return fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid ASC",
		strings.Join(common.RawColumns(), ", "), s.table)
}

// Replace drops the table and writes readings in one transaction
func (s *SQLiteStore) Replace(ctx context.Context, readings []types.SensorReading) error {
	return s.write(ctx, readings, true)
}

// Append adds readings without touching existing rows
func (s *SQLiteStore) Append(ctx context.Context, readings []types.SensorReading) error {
	return s.write(ctx, readings, false)
}

func (s *SQLiteStore) write(ctx context.Context, readings []types.SensorReading, replace bool) (err error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return classify(err, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				klog.V(2).InfoS("Rollback failed", "error", rbErr)
			}
		}
	}()

	if replace {
		if _, err = tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+s.table); err != nil {
			return classify(err, "failed to drop table")
		}
	}
	if _, err = tx.ExecContext(ctx, s.schema()); err != nil {
		return classify(err, "failed to create table")
	}

	stmt, err := tx.PrepareNamedContext(ctx, s.insertQuery())
	if err != nil {
		return classify(err, "failed to prepare insert")
	}
	defer stmt.Close()

	for i := range readings {
		if _, err = stmt.ExecContext(ctx, readings[i]); err != nil {
			return classify(err, fmt.Sprintf("failed to insert reading %d", i))
		}
	}

	if err = tx.Commit(); err != nil {
		return classify(err, "failed to commit")
	}

	klog.V(2).InfoS("Stored sensor readings",
		"table", s.table,
		"rows", len(readings),
		"replace", replace)
	return nil
}

// ReadAll returns every reading in insertion order
func (s *SQLiteStore) ReadAll(ctx context.Context) ([]types.SensorReading, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var readings []types.SensorReading
	if err := s.db.SelectContext(ctx, &readings, s.selectQuery()); err != nil {
		return nil, classify(err, "failed to query readings")
	}

	klog.V(3).InfoS("Read sensor readings", "table", s.table, "rows", len(readings))
	return readings, nil
}

// Summary returns row, unit and cycle counts
func (s *SQLiteStore) Summary(ctx context.Context) (Summary, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var sum Summary
	query := fmt.Sprintf(
		"SELECT COUNT(*) AS row_count, COUNT(DISTINCT %s) AS unit_count, COALESCE(MAX(%s), 0) AS max_cycle FROM %s",
		common.ColumnUnitNumber, common.ColumnTimeInCycles, s.table)
	if err := s.db.GetContext(ctx, &sum, query); err != nil {
		return Summary{}, classify(err, "failed to summarize readings")
	}
	return sum, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.db.Close()
}

// IsTransient reports whether err is worth retrying
func IsTransient(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// classify maps driver errors onto the store's error kinds
func classify(err error, msg string) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked, sqlite3.ErrCantOpen:
			return fmt.Errorf("%s: %w: %w", msg, ErrStoreUnavailable, err)
		}
		if strings.Contains(sqliteErr.Error(), "no such table") {
			return fmt.Errorf("%s: %w: %w", msg, ErrTableMissing, err)
		}
	}
	if strings.HasPrefix(err.Error(), "sql: Scan error") {
		return fmt.Errorf("%s: %w: %w", msg, types.ErrMalformedInput, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
