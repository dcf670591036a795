// Package rows re-exports core row source abstractions for stable imports
// and hosts the driver factory and the identifier locator.
package rows

import (
	"policyhub/internal/rows/core"
)

type (
	// Driver identifies a row source backend driver.
	Driver = core.Driver
	// Row is one raw spreadsheet row keyed by column header.
	Row = core.Row
	// Sheet is an open handle onto a single resolved spreadsheet.
	Sheet = core.Sheet
	// HeaderLister is the optional header-row capability of a Sheet.
	HeaderLister = core.HeaderLister
	// Source is the interface for row source backends.
	Source = core.Source
	// NotFoundError reports an unresolvable sheet reference.
	NotFoundError = core.NotFoundError
)

const (
	// DriverSheets is the Google Sheets HTTP driver.
	DriverSheets = core.DriverSheets
	// DriverCSVFile is the local CSV directory driver.
	DriverCSVFile = core.DriverCSVFile
	// DriverPostgres is the Postgres registry driver.
	DriverPostgres = core.DriverPostgres
	// DriverSQLite is the SQLite registry driver.
	DriverSQLite = core.DriverSQLite
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)
