// Package core implements the policyhub domain: normalization of raw
// spreadsheet rows into canonical records, aggregation across sources,
// filtering and sorting, and the snapshot cache behind the dashboard.
package core

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Canonical column names read from source rows. Header matching is exact;
// aliases are not guessed.
const (
	ColumnTitle     = "title"
	ColumnCategory  = "category"
	ColumnOwner     = "owner"
	ColumnNotes     = "notes"
	ColumnTags      = "tags"
	ColumnDriveLink = "drive_link"
	ColumnUpdatedAt = "updated_at"
)

// RequiredColumns are the headers at least one of which must appear
// somewhere in the aggregated source data for a load to be renderable.
var RequiredColumns = []string{ColumnTitle, ColumnDriveLink}

// Record is the canonical row shape every downstream consumer reads.
// Sparse fields degrade to empty values rather than errors.
type Record struct {
	Title     string     `json:"title"`
	Category  string     `json:"category"`
	Owner     string     `json:"owner"`
	Notes     string     `json:"notes"`
	Tags      []string   `json:"tags"`
	DriveLink string     `json:"drive_link"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	// SourceID and SourceName are stamped by the aggregator in
	// multi-source mode and stay empty otherwise.
	SourceID   string `json:"source_id,omitempty"`
	SourceName string `json:"source_name,omitempty"`
}

// TagString returns the canonical semicolon-joined form of the tag list.
// Normalizing the result yields the identical list.
func (r Record) TagString() string {
	return strings.Join(r.Tags, "; ")
}

// HasTimestamp reports whether the record carries a parsed updated_at.
func (r Record) HasTimestamp() bool { return r.UpdatedAt != nil }

// NormalizeRow converts one raw source row into a Record. The boolean is
// false when the row fails the keep rule: a row whose title, drive link,
// and notes are all empty carries nothing worth showing and is discarded.
func NormalizeRow(raw map[string]any) (Record, bool) {
	rec := Record{
		Title:     coerceString(raw[ColumnTitle]),
		Category:  coerceString(raw[ColumnCategory]),
		Owner:     coerceString(raw[ColumnOwner]),
		Notes:     coerceString(raw[ColumnNotes]),
		Tags:      NormalizeTags(coerceString(raw[ColumnTags])),
		DriveLink: ValidateLink(coerceString(raw[ColumnDriveLink])),
	}
	if ts, ok := ParseTimestamp(raw[ColumnUpdatedAt]); ok {
		rec.UpdatedAt = &ts
	}
	if rec.Title == "" && rec.DriveLink == "" && rec.Notes == "" {
		return Record{}, false
	}
	return rec, true
}

// NormalizeTags splits a raw tag cell on semicolons, trims each entry, and
// drops empties. nil is returned for a blank cell so empty and absent tag
// lists compare equal.
func NormalizeTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ValidateLink keeps only absolute http(s) URLs with a non-empty host;
// anything else becomes the empty string.
func ValidateLink(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	if u.Host == "" {
		return ""
	}
	return trimmed
}

// timestampLayouts are tried in order when parsing updated_at cells.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
	"1/2/2006 15:04:05",
	"1/2/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

// ParseTimestamp best-effort parses a raw updated_at cell. Unparsable or
// missing values report false; callers treat that as "no timestamp", never
// as an error. Parsed times are normalized to UTC.
func ParseTimestamp(raw any) (time.Time, bool) {
	switch v := raw.(type) {
	case nil:
		return time.Time{}, false
	case time.Time:
		if v.IsZero() {
			return time.Time{}, false
		}
		return v.UTC(), true
	}
	s := strings.TrimSpace(coerceString(raw))
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

// coerceString renders a raw cell as a trimmed string. Numbers avoid
// exponent notation, bools render true/false, nil renders empty. Missing
// value markers survive spreadsheet round trips as NaN floats or the
// literal string "nan"; both render empty like a null cell.
func coerceString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return dropMissingMarker(strings.TrimSpace(t))
	case float64:
		if math.IsNaN(t) {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		if math.IsNaN(float64(t)) {
			return ""
		}
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case fmt.Stringer:
		return dropMissingMarker(strings.TrimSpace(t.String()))
	default:
		return dropMissingMarker(strings.TrimSpace(fmt.Sprintf("%v", t)))
	}
}

// dropMissingMarker maps any casing of "nan" to the empty string.
func dropMissingMarker(s string) string {
	if strings.EqualFold(s, "nan") {
		return ""
	}
	return s
}
