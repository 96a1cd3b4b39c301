// Package store implements the calendar event store on a single
// SQLite file: the merge-write engine with cross-source duplicate
// detection, the suppression lists, and the date-filtered query path.
package store

import (
	_ "embed"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schema string

// Store handles database operations. It assumes a single writer
// process; concurrent readers are covered by SQLite's own locking.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger

	// now is swapped out in tests that pin the query window.
	now func() time.Time
}

// Open opens the calendar database at dbPath, creating the file and
// schema on first use.
func Open(dbPath string, logger *zap.Logger) (*Store, error) {
	db, err := sqlx.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return New(db, logger), nil
}

// New wraps an already-open database handle. A nil logger disables
// logging.
func New(db *sqlx.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger, now: time.Now}
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
