// Package memory implements an in-memory row Source for tests.
package memory

import (
	"context"
	"sync"

	"policyhub/internal/rows/core"
)

type sheetEntry struct {
	id   string
	name string
	rows []core.Row
}

// Source implements core.Source backed by process memory. Intended for tests.
type Source struct {
	mu     sync.RWMutex
	byID   map[string]*sheetEntry
	byName map[string]*sheetEntry
}

// New returns an empty in-memory row source.
func New() *Source {
	return &Source{byID: make(map[string]*sheetEntry), byName: make(map[string]*sheetEntry)}
}

// Driver returns the row source driver identifier.
func (s *Source) Driver() core.Driver { return core.DriverMemory }

// Close is a no-op for the memory driver.
func (s *Source) Close() error { return nil }

// Put registers a sheet fixture under both its ID and its name. Rows are
// copied defensively so later fixture mutation cannot leak into reads.
func (s *Source) Put(id, name string, rows []core.Row) {
	entry := &sheetEntry{id: id, name: name, rows: cloneRows(rows)}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[id] = entry
	if name != "" {
		s.byName[name] = entry
	}
}

// OpenByID resolves a fixture by its registered ID.
func (s *Source) OpenByID(_ context.Context, id string) (core.Sheet, error) {
	s.mu.RLock()
	entry, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return nil, core.NotFoundError{Ref: id}
	}
	return &sheet{entry: entry}, nil
}

// OpenByName resolves a fixture by its registered name.
func (s *Source) OpenByName(_ context.Context, name string) (core.Sheet, error) {
	s.mu.RLock()
	entry, ok := s.byName[name]
	s.mu.RUnlock()
	if !ok {
		return nil, core.NotFoundError{Ref: name}
	}
	return &sheet{entry: entry}, nil
}

type sheet struct {
	entry *sheetEntry
}

func (s *sheet) ID() string { return s.entry.id }

func (s *sheet) Records(_ context.Context) ([]core.Row, error) {
	return cloneRows(s.entry.rows), nil
}

func cloneRows(in []core.Row) []core.Row {
	if in == nil {
		return nil
	}
	out := make([]core.Row, len(in))
	for i, r := range in {
		cp := make(core.Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out[i] = cp
	}
	return out
}
