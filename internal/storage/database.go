package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"modernc.org/sqlite" // Registers the sqlite driver
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound is returned when a row looked up by id, path or hash does not exist.
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict is returned when a card changed between read and update.
	// Callers may re-read and retry.
	ErrConflict = errors.New("storage: concurrent update conflict")
	// ErrDuplicate is returned when a unique value, such as a language code,
	// is already taken.
	ErrDuplicate = errors.New("storage: already exists")
)

// Pragmas go in the DSN so that every pooled connection gets them,
// not only the one that happened to run an Exec.
const pragmas = "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// DB represents a wrapper around the SQL database connection.
type DB struct {
	conn *sql.DB
	Path string
}

// Open creates a new database connection and ensures the schema is up to date.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path+"?"+pragmas+"&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return initialize(conn, path)
}

// OpenMemory opens a private in-memory database, for tests.
func OpenMemory() (*DB, error) {
	conn, err := sql.Open("sqlite", "file::memory:?"+pragmas)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	// Each new connection to :memory: is a fresh database.
	conn.SetMaxOpenConns(1)
	return initialize(conn, ":memory:")
}

func initialize(conn *sql.DB, path string) (*DB, error) {
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db := &DB{conn: conn, Path: path}
	if err := db.migrate(context.Background()); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Timestamps are stored as unix milliseconds in UTC.
func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func toNullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromNullMillis(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromMillis(n.Int64)
	return &t
}

// constraintCode returns the extended SQLite result code of err, or 0.
func constraintCode(err error) int {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code()
	}
	return 0
}

func isUniqueViolation(err error) bool {
	return constraintCode(err) == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

func isForeignKeyViolation(err error) bool {
	return constraintCode(err) == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY
}
