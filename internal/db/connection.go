// Package db persists run reports (selected features, model rankings,
// predictions) and training datasets to PostgreSQL or SQLite.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Connection holds the database connection
type Connection struct {
	DB     *sql.DB
	Driver string
}

// NewConnection opens and pings a database. Driver is "postgres" or
// "sqlite"; for sqlite the DSN is a file path or ":memory:".
func NewConnection(ctx context.Context, driver, dsn string) (*Connection, error) {
	switch driver {
	case "postgres", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == "sqlite" {
		// one writer, and an in-memory database lives on a single connection
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(10)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	c := &Connection{DB: db, Driver: driver}
	if err := c.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// Close closes the database connection
func (c *Connection) Close() error {
	return c.DB.Close()
}

// Rebind rewrites ? placeholders as $1, $2, ... for postgres.
func (c *Connection) Rebind(query string) string {
	if c.Driver != "postgres" {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		created_at TEXT NOT NULL,
		seed BIGINT NOT NULL,
		test_fraction DOUBLE PRECISION NOT NULL,
		dataset_rows INTEGER NOT NULL,
		best_model TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS run_features (
		run_id TEXT NOT NULL REFERENCES runs(id),
		ord INTEGER NOT NULL,
		name TEXT NOT NULL,
		PRIMARY KEY (run_id, ord)
	)`,
	`CREATE TABLE IF NOT EXISTS run_rankings (
		run_id TEXT NOT NULL REFERENCES runs(id),
		rank_no INTEGER NOT NULL,
		model TEXT NOT NULL,
		test_f1 DOUBLE PRECISION NOT NULL,
		train_f1 DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, rank_no)
	)`,
	`CREATE TABLE IF NOT EXISTS run_predictions (
		run_id TEXT NOT NULL REFERENCES runs(id),
		district_id TEXT NOT NULL,
		winner TEXT NOT NULL,
		PRIMARY KEY (run_id, district_id)
	)`,
	`CREATE TABLE IF NOT EXISTS dataset_cells (
		run_id TEXT NOT NULL REFERENCES runs(id),
		row_no INTEGER NOT NULL,
		col_no INTEGER NOT NULL,
		district_id TEXT NOT NULL,
		label TEXT NOT NULL,
		feature TEXT NOT NULL,
		value DOUBLE PRECISION NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS dataset_cells_run ON dataset_cells (run_id, row_no)`,
}

// EnsureSchema creates the report tables if they do not exist.
func (c *Connection) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := c.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}
	return nil
}
