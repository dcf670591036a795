// Package csvfile implements a row Source over a local directory of CSV
// files, one sheet per file. The first CSV row is the header row.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"policyhub/internal/rows/core"
)

// Source implements core.Source over a directory of CSV files.
type Source struct {
	dir string
}

// New returns a CSV-backed row source rooted at dir (default ./data).
func New(dir string) (*Source, error) {
	if dir == "" {
		dir = "./data"
	}
	st, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("csv dir %s: %w", dir, err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("csv dir %s: not a directory", dir)
	}
	return &Source{dir: dir}, nil
}

// Driver returns the row source driver identifier.
func (s *Source) Driver() core.Driver { return core.DriverCSVFile }

// Close is a no-op for the csvfile driver.
func (s *Source) Close() error { return nil }

// OpenByID resolves a sheet by file name, with or without the .csv suffix.
func (s *Source) OpenByID(_ context.Context, id string) (core.Sheet, error) {
	return s.open(id)
}

// OpenByName resolves a sheet by base name; the .csv suffix is appended.
func (s *Source) OpenByName(_ context.Context, name string) (core.Sheet, error) {
	return s.open(name)
}

func (s *Source) open(ref string) (core.Sheet, error) {
	rel, err := sanitizeRef(ref)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(rel, ".csv") {
		rel += ".csv"
	}
	path := filepath.Join(s.dir, filepath.FromSlash(rel))
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, core.NotFoundError{Ref: ref}
	} else if err != nil {
		return nil, err
	}
	return &sheet{id: rel, path: path}, nil
}

// sanitizeRef keeps references inside the configured directory.
func sanitizeRef(ref string) (string, error) {
	trimmed := strings.TrimSpace(ref)
	if trimmed == "" {
		return "", fmt.Errorf("empty sheet reference")
	}
	if strings.Contains(trimmed, "..") {
		return "", fmt.Errorf("invalid sheet reference contains '..'")
	}
	if strings.HasPrefix(trimmed, "/") {
		return "", fmt.Errorf("invalid absolute sheet reference")
	}
	clean := filepath.ToSlash(filepath.Clean(trimmed))
	if strings.HasPrefix(clean, "..") {
		return "", fmt.Errorf("invalid sheet reference traversal")
	}
	return clean, nil
}

type sheet struct {
	id   string
	path string
}

func (s *sheet) ID() string { return s.id }

// Records reads the file and maps each data row onto the header row. Short
// rows leave trailing columns absent; cells beyond the header are dropped.
func (s *sheet) Records(_ context.Context) ([]core.Row, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	all, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(all) == 0 {
		return nil, nil
	}
	headers := headerRow(all[0])
	out := make([]core.Row, 0, len(all)-1)
	for _, rec := range all[1:] {
		row := make(core.Row, len(headers))
		for i, cell := range rec {
			if i >= len(headers) || headers[i] == "" {
				continue
			}
			row[headers[i]] = cell
		}
		out = append(out, row)
	}
	return out, nil
}

// Headers reads only the header row, so a file with headers but no data
// rows still reports its columns. An empty file reports none.
func (s *sheet) Headers(_ context.Context) ([]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	first, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	var out []string
	for _, h := range headerRow(first) {
		if h != "" {
			out = append(out, h)
		}
	}
	return out, nil
}

// headerRow strips the BOM and trims each header cell, keeping positions
// so data cells can be mapped by index.
func headerRow(raw []string) []string {
	headers := make([]string, len(raw))
	for i, h := range raw {
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		headers[i] = strings.TrimSpace(h)
	}
	return headers
}
