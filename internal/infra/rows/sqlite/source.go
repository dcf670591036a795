// Package sqlite implements a row Source over a registry table in a local
// SQLite database file. It mirrors the postgres registry layout and is the
// zero-infrastructure option for local deployments.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"policyhub/internal/rows/core"
)

// Source implements core.Source backed by the policyhub_sheets table.
type Source struct {
	db   *sql.DB
	path string
}

// New opens (creating if needed) the database at path and ensures the
// registry table exists. An empty path defaults to policyhub.db.
func New(path string) (*Source, error) {
	if path == "" {
		path = "policyhub.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS policyhub_sheets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		payload TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create registry table: %w", err)
	}
	return &Source{db: db, path: path}, nil
}

// Driver returns the row source driver identifier.
func (s *Source) Driver() core.Driver { return core.DriverSQLite }

// Close releases the database handle.
func (s *Source) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for seeding in tests and tooling.
func (s *Source) DB() *sql.DB { return s.db }

// OpenByID resolves a registry row by primary key.
func (s *Source) OpenByID(ctx context.Context, id string) (core.Sheet, error) {
	return s.lookup(ctx, `SELECT id FROM policyhub_sheets WHERE id = ?`, id)
}

// OpenByName resolves a registry row by display name. Duplicate names pick
// the lowest ID for determinism.
func (s *Source) OpenByName(ctx context.Context, name string) (core.Sheet, error) {
	return s.lookup(ctx, `SELECT id FROM policyhub_sheets WHERE name = ? ORDER BY id LIMIT 1`, name)
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
	err := s.src.db.QueryRowContext(ctx, `SELECT payload FROM policyhub_sheets WHERE id = ?`, s.id).Scan(&payload)
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
