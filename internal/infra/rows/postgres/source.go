// Package postgres implements a row Source over a Postgres registry table,
// for deployments that mirror spreadsheet contents into a database.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"policyhub/internal/rows/core"
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/policyhub?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Source implements core.Source backed by the policyhub_sheets table. Each
// registry row holds one sheet: its ID, display name, and the raw rows as a
// JSON array of objects.
type Source struct {
	db *sql.DB
}

// New opens a Postgres-backed row source using dsn (falling back to
// POLICYHUB_POSTGRES_DSN, then a localhost default) and ensures the
// registry table exists.
func New(dsn string) (*Source, error) {
	if dsn == "" {
		dsn = os.Getenv("POLICYHUB_POSTGRES_DSN")
	}
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureRegistryTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Source{db: db}, nil
}

func ensureRegistryTable(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS policyhub_sheets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		payload TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("create registry table: %w", err)
	}
	return nil
}

// Driver returns the row source driver identifier.
func (s *Source) Driver() core.Driver { return core.DriverPostgres }

// Close releases the database handle.
func (s *Source) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Source) DB() *sql.DB { return s.db }

// OpenByID resolves a registry row by primary key.
func (s *Source) OpenByID(ctx context.Context, id string) (core.Sheet, error) {
	return s.lookup(ctx, `SELECT id FROM policyhub_sheets WHERE id = $1`, id)
}

// OpenByName resolves a registry row by display name. Duplicate names pick
// the lowest ID for determinism.
func (s *Source) OpenByName(ctx context.Context, name string) (core.Sheet, error) {
	return s.lookup(ctx, `SELECT id FROM policyhub_sheets WHERE name = $1 ORDER BY id LIMIT 1`, name)
}

func (s *Source) lookup(ctx context.Context, query, ref string) (core.Sheet, error) {
	var id string
	err := s.db.QueryRowContext(ctx, query, ref).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NotFoundError{Ref: ref}
	}
	if err != nil {
		return nil, fmt.Errorf("lookup sheet %s: %w", ref, err)
	}
	return &sheet{src: s, id: id}, nil
}

type sheet struct {
	src *Source
	id  string
}

func (s *sheet) ID() string { return s.id }

// Records loads and decodes the JSON payload for the sheet.
func (s *sheet) Records(ctx context.Context) ([]core.Row, error) {
	var payload []byte
	err := s.src.db.QueryRowContext(ctx, `SELECT payload FROM policyhub_sheets WHERE id = $1`, s.id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NotFoundError{Ref: s.id}
	}
	if err != nil {
		return nil, fmt.Errorf("load sheet %s: %w", s.id, err)
	}
	var rows []core.Row
	if err := json.Unmarshal(payload, &rows); err != nil {
		return nil, fmt.Errorf("decode sheet %s payload: %w", s.id, err)
	}
	return rows, nil
}

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
