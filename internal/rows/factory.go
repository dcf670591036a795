package rows

import (
	"fmt"

	"go.uber.org/zap"

	"policyhub/internal/infra/rows/csvfile"
	"policyhub/internal/infra/rows/memory"
	"policyhub/internal/infra/rows/postgres"
	"policyhub/internal/infra/rows/sheets"
	"policyhub/internal/infra/rows/sqlite"
)

// Config selects and parameterizes a row source driver.
type Config struct {
	Driver      Driver
	Sheets      SheetsConfig
	CSVDir      string
	PostgresDSN string
	SQLitePath  string
}

// SheetsConfig carries Google Sheets driver parameters. Zero values fall
// back to the driver's defaults (public Google endpoints, range A1:ZZ).
type SheetsConfig struct {
	APIKey       string
	BaseURL      string
	DriveBaseURL string
	Range        string
}

// Open selects a row Source implementation from cfg. An empty driver
// defaults to sheets.
//
//	sheets:   Google Sheets API over HTTP (POLICYHUB_SHEETS_API_KEY)
//	csvfile:  directory of CSV files, one sheet per file
//	postgres: sheet registry table (POLICYHUB_POSTGRES_DSN)
//	sqlite:   sheet registry table in a local database file
//	memory:   in-memory fixtures (tests)
func Open(cfg Config, logger *zap.Logger) (Source, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	driver := cfg.Driver
	if driver == "" {
		driver = DriverSheets
	}
	switch driver {
	case DriverSheets:
		return sheets.New(sheets.Config{
			APIKey:       cfg.Sheets.APIKey,
			BaseURL:      cfg.Sheets.BaseURL,
			DriveBaseURL: cfg.Sheets.DriveBaseURL,
			Range:        cfg.Sheets.Range,
			Logger:       logger,
		})
	case DriverCSVFile:
		return csvfile.New(cfg.CSVDir)
	case DriverPostgres:
		return postgres.New(cfg.PostgresDSN)
	case DriverSQLite:
		return sqlite.New(cfg.SQLitePath)
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown rows driver %s", driver)
	}
}
