package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

const (
	dateLayout = "2006-01-02"
	// Fixed-width so timestamps sort lexically.
	tsLayout = "2006-01-02T15:04:05.000000Z"
)

// DB is the user-scoped persistence gateway. Every read and write filters
// on the owning user id.
type DB struct {
	conn *sql.DB
	loc  *time.Location
}

// Open opens (and migrates) the SQLite database at path. loc is the calendar
// used to turn completion timestamps into streak days; nil means time.Local.
func Open(path string, loc *time.Location) (*DB, error) {
	if loc == nil {
		loc = time.Local
	}
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection: SQLite serializes writers anyway, and :memory:
	// databases are per-connection.
	conn.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("setting %q: %w", pragma, err)
		}
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &DB{conn: conn, loc: loc}, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

// Ping verifies database connectivity.
func (d *DB) Ping(ctx context.Context) error {
	return d.conn.PingContext(ctx)
}

// Location returns the calendar the database uses for day boundaries.
func (d *DB) Location() *time.Location {
	return d.loc
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (d *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func newID() string {
	return uuid.NewString()
}

func now() string {
	return time.Now().UTC().Format(tsLayout)
}

func formatTS(t time.Time) string {
	return t.UTC().Format(tsLayout)
}
