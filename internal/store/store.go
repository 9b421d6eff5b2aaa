// Package store persists completed listing analyses to a relational table.
package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"estate-advisor/internal/listing"
)

// StorageError signals a failed persistence attempt. The transaction has
// already been rolled back when it is returned.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

const schema = `
CREATE TABLE IF NOT EXISTS analyses (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id  INTEGER NOT NULL,
	location TEXT    NOT NULL,
	area     REAL    NOT NULL,
	price    INTEGER NOT NULL,
	type     TEXT    NOT NULL,
	result   TEXT    NOT NULL
);
`

// Analysis is one persisted row. Rows are insert-only; identity is the
// auto-assigned id and content carries no uniqueness constraint.
type Analysis struct {
	ID       int64   `db:"id"`
	UserID   int64   `db:"user_id"`
	Location string  `db:"location"`
	Area     float64 `db:"area"`
	Price    int64   `db:"price"`
	Type     string  `db:"type"`
	Result   string  `db:"result"`
}

type Store struct {
	db *sqlx.DB
}

// New opens the analyses store. Driver "sqlite" (modernc) bootstraps the
// schema and pins the pool to one connection the way a WAL sqlite file wants;
// driver "postgres" (lib/pq) assumes the table exists, matching the original
// deployment.
func New(driver, dsn string) (*Store, error) {
	switch driver {
	case "sqlite":
		db, err := sqlx.Open("sqlite", dsn+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		db.SetMaxOpenConns(1)
		if _, err := db.Exec(schema); err != nil {
			db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
		return &Store{db: db}, nil
	case "postgres":
		db, err := sqlx.Connect("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return &Store{db: db}, nil
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}
}

// NewWithDB wraps an existing connection, for tests.
func NewWithDB(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// SaveAnalysis inserts one row for a completed analysis inside a
// single-statement transaction. On any failure the transaction is rolled
// back and a StorageError surfaces to the caller.
func (s *Store) SaveAnalysis(ctx context.Context, userID int64, rec listing.Record, narrative string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return &StorageError{Op: "begin", Err: err}
	}
	_, err = tx.ExecContext(ctx,
		s.db.Rebind(`INSERT INTO analyses (user_id, location, area, price, type, result) VALUES (?, ?, ?, ?, ?, ?)`),
		userID, rec.Location, rec.Area, rec.Price, rec.PropertyType, narrative,
	)
	if err != nil {
		_ = tx.Rollback()
		return &StorageError{Op: "insert", Err: err}
	}
	if err := tx.Commit(); err != nil {
		return &StorageError{Op: "commit", Err: err}
	}
	return nil
}

// RecentAnalyses returns up to limit most recent rows for one user.
func (s *Store) RecentAnalyses(ctx context.Context, userID int64, limit int) ([]Analysis, error) {
	if limit <= 0 {
		limit = 5
	}
	var out []Analysis
	err := s.db.SelectContext(ctx, &out,
		s.db.Rebind(`SELECT id, user_id, location, area, price, type, result FROM analyses WHERE user_id = ? ORDER BY id DESC LIMIT ?`),
		userID, limit,
	)
	if err != nil {
		return nil, &StorageError{Op: "select", Err: err}
	}
	return out, nil
}

// CountAnalyses reports the number of rows for one user, for tests and the
// history summary.
func (s *Store) CountAnalyses(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, s.db.Rebind(`SELECT COUNT(*) FROM analyses WHERE user_id = ?`), userID)
	if err != nil {
		return 0, &StorageError{Op: "count", Err: err}
	}
	return n, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
