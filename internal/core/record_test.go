package core

import (
	"math"
	"reflect"
	"testing"
	"time"
)

func TestNormalizeRowFullRow(t *testing.T) {
	rec, ok := NormalizeRow(map[string]any{
		"title":      "  Expense Policy ",
		"category":   "Finance",
		"owner":      "Dana",
		"notes":      "Updated quarterly",
		"tags":       "finance; travel ;; reimbursement",
		"drive_link": "https://drive.google.com/file/d/abc123",
		"updated_at": "2026-03-14T09:30:00Z",
	})
	if !ok {
		t.Fatalf("expected row to be kept")
	}
	if rec.Title != "Expense Policy" {
		t.Fatalf("expected trimmed title, got %q", rec.Title)
	}
	if got := rec.TagString(); got != "finance; travel; reimbursement" {
		t.Fatalf("unexpected tag string %q", got)
	}
	if rec.DriveLink != "https://drive.google.com/file/d/abc123" {
		t.Fatalf("unexpected drive link %q", rec.DriveLink)
	}
	if !rec.HasTimestamp() {
		t.Fatalf("expected parsed timestamp")
	}
	if want := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC); !rec.UpdatedAt.Equal(want) {
		t.Fatalf("expected %v, got %v", want, rec.UpdatedAt)
	}
}

func TestNormalizeRowSparseFieldsDegrade(t *testing.T) {
	rec, ok := NormalizeRow(map[string]any{
		"title":      "Onboarding Checklist",
		"tags":       "   ",
		"drive_link": "not a url",
		"updated_at": "sometime last week",
	})
	if !ok {
		t.Fatalf("expected row to be kept")
	}
	if rec.Category != "" || rec.Owner != "" || rec.Notes != "" {
		t.Fatalf("expected absent fields to be empty, got %+v", rec)
	}
	if rec.Tags != nil {
		t.Fatalf("expected nil tags, got %v", rec.Tags)
	}
	if rec.DriveLink != "" {
		t.Fatalf("expected invalid link to degrade to empty, got %q", rec.DriveLink)
	}
	if rec.HasTimestamp() {
		t.Fatalf("expected unparsable timestamp to degrade to absent")
	}
}

func TestNormalizeRowKeepRule(t *testing.T) {
	cases := []struct {
		name string
		row  map[string]any
		keep bool
	}{
		{"all empty", map[string]any{"category": "HR", "owner": "Sam"}, false},
		{"whitespace only", map[string]any{"title": "   ", "notes": "\t"}, false},
		{"title only", map[string]any{"title": "Budget"}, true},
		{"notes only", map[string]any{"notes": "orphan note"}, true},
		{"link only", map[string]any{"drive_link": "https://example.com/doc"}, true},
		{"invalid link only", map[string]any{"drive_link": "ftp://example.com/doc"}, false},
		{"markers only", map[string]any{"title": "nan", "drive_link": "nan", "notes": "NaN"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := NormalizeRow(tc.row); ok != tc.keep {
				t.Fatalf("expected keep=%v for %v", tc.keep, tc.row)
			}
		})
	}
}

func TestNormalizeRowCoercesNonStringCells(t *testing.T) {
	rec, ok := NormalizeRow(map[string]any{
		"title":    float64(2026),
		"category": true,
		"owner":    42,
	})
	if !ok {
		t.Fatalf("expected row to be kept")
	}
	if rec.Title != "2026" {
		t.Fatalf("expected numeric title without exponent, got %q", rec.Title)
	}
	if rec.Category != "true" || rec.Owner != "42" {
		t.Fatalf("unexpected coercion: %+v", rec)
	}
}

func TestNormalizeRowDropsMissingMarkers(t *testing.T) {
	rec, ok := NormalizeRow(map[string]any{
		"title":      "Masking Policy",
		"category":   "NaN",
		"owner":      "nan",
		"notes":      math.NaN(),
		"tags":       "nan",
		"drive_link": "NAN",
		"updated_at": "nan",
	})
	if !ok {
		t.Fatalf("expected row to be kept")
	}
	if rec.Category != "" || rec.Owner != "" || rec.Notes != "" || rec.DriveLink != "" {
		t.Fatalf("expected marker cells to read as empty, got %+v", rec)
	}
	if rec.Tags != nil {
		t.Fatalf("expected nil tags, got %v", rec.Tags)
	}
	if rec.HasTimestamp() {
		t.Fatalf("expected marker timestamp to degrade to absent")
	}
}

func TestNormalizeTags(t *testing.T) {
	cases := []struct {
		raw  string
		want []string
	}{
		{"", nil},
		{"   ", nil},
		{";;", nil},
		{"a", []string{"a"}},
		{" a ; b;c ", []string{"a", "b", "c"}},
		{"a;;b", []string{"a", "b"}},
	}
	for _, tc := range cases {
		if got := NormalizeTags(tc.raw); !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("NormalizeTags(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestTagStringRoundTrip(t *testing.T) {
	rec := Record{Tags: []string{"alpha", "beta", "gamma"}}
	if got := NormalizeTags(rec.TagString()); !reflect.DeepEqual(got, rec.Tags) {
		t.Fatalf("round trip changed tags: %v", got)
	}
}

func TestValidateLink(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"https://example.com/doc", "https://example.com/doc"},
		{"http://example.com", "http://example.com"},
		{" https://example.com ", "https://example.com"},
		{"", ""},
		{"ftp://example.com/doc", ""},
		{"example.com/doc", ""},
		{"https://", ""},
		{"not a url at all", ""},
	}
	for _, tc := range cases {
		if got := ValidateLink(tc.raw); got != tc.want {
			t.Fatalf("ValidateLink(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestParseTimestampLayouts(t *testing.T) {
	cases := []struct {
		raw  string
		want time.Time
	}{
		{"2026-03-14T09:30:00Z", time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)},
		{"2026-03-14 09:30:00", time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)},
		{"2026-03-14", time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"2026/03/14", time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"03/14/2026", time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"3/4/2026", time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)},
		{"Mar 14, 2026", time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)},
		{"14 Mar 2026", time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, ok := ParseTimestamp(tc.raw)
		if !ok {
			t.Fatalf("expected %q to parse", tc.raw)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("ParseTimestamp(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestParseTimestampRejects(t *testing.T) {
	for _, raw := range []any{nil, "", "  ", "next tuesday", "2026-13-40", time.Time{}} {
		if _, ok := ParseTimestamp(raw); ok {
			t.Fatalf("expected %v to be rejected", raw)
		}
	}
}

func TestParseTimestampPassesThroughTime(t *testing.T) {
	loc := time.FixedZone("PST", -8*3600)
	in := time.Date(2026, 1, 2, 3, 4, 5, 0, loc)
	got, ok := ParseTimestamp(in)
	if !ok {
		t.Fatalf("expected time value to parse")
	}
	if got.Location() != time.UTC {
		t.Fatalf("expected UTC normalization, got %v", got.Location())
	}
	if !got.Equal(in) {
		t.Fatalf("expected same instant, got %v", got)
	}
}
