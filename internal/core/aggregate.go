package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"policyhub/internal/rows"

	"go.uber.org/zap"
)

// SourceSpec is one configured source after identifier extraction and name
// resolution.
type SourceSpec struct {
	Identifier string `json:"identifier"`
	ID         string `json:"id"`
	Name       string `json:"name"`
}

// SourceWarning describes a source that was skipped during a load.
type SourceWarning struct {
	SourceID string `json:"source_id"`
	Name     string `json:"name"`
	Reason   string `json:"reason"`
}

// SourceCount reports how many records a source contributed to a snapshot.
type SourceCount struct {
	SourceID string `json:"source_id"`
	Name     string `json:"name"`
	Records  int    `json:"records"`
}

// Snapshot is the result of one aggregated load across all configured
// sources. Records preserve source order, then row order within a source.
type Snapshot struct {
	Records     []Record        `json:"records"`
	Counts      []SourceCount   `json:"counts"`
	Warnings    []SourceWarning `json:"warnings"`
	Columns     []string        `json:"columns"`
	FetchedAt   time.Time       `json:"fetched_at"`
	MultiSource bool            `json:"multi_source"`
}

// Fetched reports how many sources contributed rows to the snapshot.
func (s *Snapshot) Fetched() int {
	return len(s.Counts)
}

// buildSourceSpecs resolves configured identifiers into source specs.
// Display names come from the configured map keyed by extracted ID, falling
// back to the ID itself, so an unmapped source displays as its ID rather
// than a full URL.
func buildSourceSpecs(identifiers []string, names map[string]string) []SourceSpec {
	specs := make([]SourceSpec, 0, len(identifiers))
	for _, identifier := range identifiers {
		id := rows.ExtractID(identifier)
		if id == "" {
			continue
		}
		name := names[id]
		if name == "" {
			name = id
		}
		specs = append(specs, SourceSpec{Identifier: identifier, ID: id, Name: name})
	}
	return specs
}

// aggregate fetches every configured source and merges the results into a
// single snapshot. A source that cannot be opened or fetched is skipped with
// a warning; remaining sources still load.
func (s *Service) aggregate(ctx context.Context) (*Snapshot, error) {
	snap := &Snapshot{
		FetchedAt:   s.now().UTC(),
		MultiSource: len(s.specs) > 1,
	}
	columns := map[string]struct{}{}
	for _, spec := range s.specs {
		raw, headers, err := s.fetchSource(ctx, spec)
		if err != nil {
			s.logger.Warn("source skipped",
				zap.String("source_id", spec.ID),
				zap.String("source_name", spec.Name),
				zap.Error(err))
			snap.Warnings = append(snap.Warnings, SourceWarning{
				SourceID: spec.ID,
				Name:     spec.Name,
				Reason:   err.Error(),
			})
			continue
		}
		for _, column := range headers {
			columns[column] = struct{}{}
		}
		count := 0
		for _, row := range raw {
			for column := range row {
				columns[column] = struct{}{}
			}
			record, ok := NormalizeRow(row)
			if !ok {
				continue
			}
			if snap.MultiSource {
				record.SourceID = spec.ID
				record.SourceName = spec.Name
			}
			snap.Records = append(snap.Records, record)
			count++
		}
		snap.Counts = append(snap.Counts, SourceCount{SourceID: spec.ID, Name: spec.Name, Records: count})
		s.logger.Info("source loaded",
			zap.String("source_id", spec.ID),
			zap.String("source_name", spec.Name),
			zap.Int("rows", len(raw)),
			zap.Int("records", count))
	}
	snap.Columns = sortedColumns(columns)
	if snap.Fetched() > 0 {
		if err := checkRequiredColumns(snap.Columns); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

// fetchSource opens one source by extracted ID and falls back to a lookup by
// the raw identifier when the ID is unknown, then fetches its rows. When a
// source has no data rows, the header row (if the driver exposes one) stands
// in for the column set, so an empty but well-formed sheet does not trip the
// required-column check.
func (s *Service) fetchSource(ctx context.Context, spec SourceSpec) (_ []rows.Row, _ []string, err error) {
	ctx, span := s.tracer.Start(ctx, "fetch_source")
	defer func() { span.End(err) }()
	start := s.now()
	defer func() { s.metrics.Observe(ctx, "fetch_source", err == nil, s.now().Sub(start)) }()

	sheet, err := s.source.OpenByID(ctx, spec.ID)
	if err != nil {
		byName, nameErr := s.source.OpenByName(ctx, spec.Identifier)
		if nameErr != nil {
			return nil, nil, fmt.Errorf("open %q: %w", spec.Identifier, err)
		}
		sheet = byName
	}
	raw, err := sheet.Records(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch %q: %w", spec.Identifier, err)
	}
	if len(raw) > 0 {
		return raw, nil, nil
	}
	lister, ok := sheet.(rows.HeaderLister)
	if !ok {
		return nil, nil, nil
	}
	headers, headersErr := lister.Headers(ctx)
	if headersErr != nil {
		s.logger.Warn("source headers unavailable",
			zap.String("source_id", spec.ID),
			zap.Error(headersErr))
		return nil, nil, nil
	}
	return nil, headers, nil
}

// checkRequiredColumns halts a load when the union of headers across all
// fetched sources contains none of the required columns. Individual rows may
// still omit them.
func checkRequiredColumns(columns []string) error {
	seen := map[string]struct{}{}
	for _, column := range columns {
		seen[column] = struct{}{}
	}
	var missing []string
	for _, required := range RequiredColumns {
		if _, ok := seen[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) == len(RequiredColumns) {
		return &MissingColumnsError{Missing: missing}
	}
	return nil
}

func sortedColumns(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for column := range set {
		out = append(out, column)
	}
	sort.Strings(out)
	return out
}
