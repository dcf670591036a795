package rows

import (
	"path/filepath"
	"testing"
)

func TestOpenMemoryDriver(t *testing.T) {
	src, err := Open(Config{Driver: DriverMemory}, nil)
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	defer func() { _ = src.Close() }()
	if src.Driver() != DriverMemory {
		t.Fatalf("expected memory, got %s", src.Driver())
	}
}

func TestOpenCSVFileDriver(t *testing.T) {
	src, err := Open(Config{Driver: DriverCSVFile, CSVDir: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("open csvfile: %v", err)
	}
	defer func() { _ = src.Close() }()
	if src.Driver() != DriverCSVFile {
		t.Fatalf("expected csvfile, got %s", src.Driver())
	}
}

func TestOpenSQLiteDriver(t *testing.T) {
	src, err := Open(Config{Driver: DriverSQLite, SQLitePath: filepath.Join(t.TempDir(), "rows.db")}, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	defer func() { _ = src.Close() }()
	if src.Driver() != DriverSQLite {
		t.Fatalf("expected sqlite, got %s", src.Driver())
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	if _, err := Open(Config{Driver: "carrier-pigeon"}, nil); err == nil {
		t.Fatal("expected unknown driver error")
	}
}

func TestOpenDefaultsToSheets(t *testing.T) {
	t.Setenv("POLICYHUB_SHEETS_API_KEY", "k")
	src, err := Open(Config{}, nil)
	if err != nil {
		t.Fatalf("open default: %v", err)
	}
	defer func() { _ = src.Close() }()
	if src.Driver() != DriverSheets {
		t.Fatalf("expected sheets, got %s", src.Driver())
	}
}
