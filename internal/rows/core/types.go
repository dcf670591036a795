// Package core defines core abstractions for row source backends
// used internally by the load pipeline.
package core

import (
	"context"
	"fmt"
)

// Driver identifies a concrete row source backend implementation.
type Driver string

const (
	// DriverSheets represents the Google Sheets HTTP implementation.
	DriverSheets Driver = "sheets" // Google Sheets API (default, prod)
	// DriverCSVFile represents a local directory of CSV files.
	DriverCSVFile Driver = "csvfile" // local CSV directory
	// DriverPostgres represents a Postgres-backed sheet registry.
	DriverPostgres Driver = "postgres" // postgres registry
	// DriverSQLite represents a SQLite-backed sheet registry.
	DriverSQLite Driver = "sqlite" // sqlite registry
	// DriverMemory represents an in-memory implementation typically used in tests.
	DriverMemory Driver = "memory" // in-memory (tests)
)

// Row is one raw spreadsheet row keyed by column header. Cell values are
// whatever the backend produced (string, float64, bool, nil); normalization
// happens in higher layers, never here.
type Row = map[string]any

// Sheet is an open handle onto a single resolved spreadsheet.
type Sheet interface {
	// ID returns the backend's stable identifier for the sheet.
	ID() string
	// Records fetches all data rows keyed by the header row.
	Records(ctx context.Context) ([]Row, error)
}

// HeaderLister is an optional Sheet capability. Backends that parse a
// header row implement it so a sheet with headers but no data rows still
// reports its columns. Registry backends store rows as documents and have
// no header row to expose.
type HeaderLister interface {
	Headers(ctx context.Context) ([]string, error)
}

// Source resolves spreadsheet references and hands out sheet handles.
// Open methods validate that the reference resolves; fetching is deferred
// to Sheet.Records.
type Source interface {
	OpenByID(ctx context.Context, id string) (Sheet, error)
	OpenByName(ctx context.Context, name string) (Sheet, error)
	Driver() Driver
	Close() error
}

// NotFoundError reports a reference that no sheet could be resolved for.
type NotFoundError struct {
	Ref string
}

func (e NotFoundError) Error() string { return fmt.Sprintf("sheet %q not found", e.Ref) }
