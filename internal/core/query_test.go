package core

import (
	"reflect"
	"testing"
	"time"
)

func timePtr(t time.Time) *time.Time { return &t }

func queryFixture() []Record {
	return []Record{
		{
			Title:     "Travel Policy",
			Category:  "Finance",
			Owner:     "Dana",
			Tags:      []string{"travel", "reimbursement"},
			UpdatedAt: timePtr(time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)),
			SourceID:  "sheet-a", SourceName: "Finance Docs",
		},
		{
			Title:     "Onboarding Guide",
			Category:  "HR",
			Owner:     "Riley",
			Notes:     "Welcome packet for new hires",
			Tags:      []string{"onboarding"},
			UpdatedAt: timePtr(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)),
			SourceID:  "sheet-b", SourceName: "People Ops",
		},
		{
			Title:    "Security Baseline",
			Category: "Engineering",
			Owner:    "Sam",
			Tags:     []string{"security", "compliance"},
			SourceID: "sheet-a", SourceName: "Finance Docs",
		},
		{
			Title:     "Expense Policy",
			Category:  "Finance",
			Owner:     "Dana",
			Tags:      []string{"finance"},
			UpdatedAt: timePtr(time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)),
			SourceID:  "sheet-b", SourceName: "People Ops",
		},
	}
}

func titlesOf(records []Record) []string {
	out := make([]string, len(records))
	for i, rec := range records {
		out[i] = rec.Title
	}
	return out
}

func TestApplyEmptyQuerySortsUpdatedDesc(t *testing.T) {
	got := Apply(queryFixture(), Query{})
	want := []string{"Onboarding Guide", "Expense Policy", "Travel Policy", "Security Baseline"}
	if !reflect.DeepEqual(titlesOf(got), want) {
		t.Fatalf("unexpected order %v", titlesOf(got))
	}
}

func TestApplyKeywordSearchesAllTextFields(t *testing.T) {
	cases := []struct {
		keyword string
		want    []string
	}{
		{"TRAVEL", []string{"Travel Policy"}},
		{"welcome packet", []string{"Onboarding Guide"}},
		{"dana", []string{"Expense Policy", "Travel Policy"}},
		{"engineering", []string{"Security Baseline"}},
		{"compliance", []string{"Security Baseline"}},
		{"no such word", nil},
	}
	for _, tc := range cases {
		got := titlesOf(Apply(queryFixture(), Query{Keyword: tc.keyword}))
		if len(got) == 0 {
			got = nil
		}
		if !reflect.DeepEqual(got, tc.want) {
			t.Fatalf("keyword %q: got %v, want %v", tc.keyword, got, tc.want)
		}
	}
}

func TestApplyFiltersCombineAsAND(t *testing.T) {
	q := Query{
		Keyword:    "policy",
		Categories: []string{"Finance"},
		Tags:       []string{"travel"},
	}
	got := titlesOf(Apply(queryFixture(), q))
	if !reflect.DeepEqual(got, []string{"Travel Policy"}) {
		t.Fatalf("expected single AND match, got %v", got)
	}

	q.Tags = []string{"onboarding"}
	if got := Apply(queryFixture(), q); len(got) != 0 {
		t.Fatalf("expected conflicting filters to match nothing, got %v", titlesOf(got))
	}
}

func TestApplyCategoryMembership(t *testing.T) {
	got := titlesOf(Apply(queryFixture(), Query{Categories: []string{"Finance", "HR"}}))
	want := []string{"Onboarding Guide", "Expense Policy", "Travel Policy"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected matches %v", got)
	}
}

func TestApplyTagIntersection(t *testing.T) {
	got := titlesOf(Apply(queryFixture(), Query{Tags: []string{"security", "finance"}}))
	want := []string{"Expense Policy", "Security Baseline"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected matches %v", got)
	}
}

func TestApplySourceFilter(t *testing.T) {
	got := titlesOf(Apply(queryFixture(), Query{Sources: []string{"Finance Docs"}}))
	want := []string{"Travel Policy", "Security Baseline"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected matches %v", got)
	}
	if got := Apply(queryFixture(), Query{Sources: []string{"sheet-a"}}); len(got) != 0 {
		t.Fatalf("expected source filter to match display names, not IDs, got %v", titlesOf(got))
	}
}

func TestApplySortTitleAscEmptyTitlesLast(t *testing.T) {
	records := append(queryFixture(), Record{Notes: "untitled row", SourceID: "sheet-a"})
	got := titlesOf(Apply(records, Query{Sort: SortTitleAsc}))
	want := []string{"Expense Policy", "Onboarding Guide", "Security Baseline", "Travel Policy", ""}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected order %v", got)
	}
}

func TestApplySortUpdatedDescMissingTimestampsLast(t *testing.T) {
	got := Apply(queryFixture(), Query{Sort: SortUpdatedDesc})
	if got[len(got)-1].Title != "Security Baseline" {
		t.Fatalf("expected record without timestamp last, got %v", titlesOf(got))
	}
}

func TestApplySortStableForEqualKeys(t *testing.T) {
	ts := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	records := []Record{
		{Title: "B", UpdatedAt: timePtr(ts)},
		{Title: "A", UpdatedAt: timePtr(ts)},
		{Title: "C", UpdatedAt: timePtr(ts)},
	}
	got := titlesOf(Apply(records, Query{}))
	if !reflect.DeepEqual(got, []string{"B", "A", "C"}) {
		t.Fatalf("expected input order preserved for ties, got %v", got)
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	records := queryFixture()
	before := titlesOf(records)
	_ = Apply(records, Query{Sort: SortTitleAsc, Keyword: "policy"})
	if !reflect.DeepEqual(titlesOf(records), before) {
		t.Fatalf("input slice was reordered: %v", titlesOf(records))
	}
}

func TestParseSortOrder(t *testing.T) {
	cases := map[string]SortOrder{
		"":             SortUpdatedDesc,
		"updated_desc": SortUpdatedDesc,
		"title_asc":    SortTitleAsc,
		"bogus":        SortUpdatedDesc,
	}
	for raw, want := range cases {
		if got := ParseSortOrder(raw); got != want {
			t.Fatalf("ParseSortOrder(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestCollectFacets(t *testing.T) {
	records := append(queryFixture(), Record{Title: "Uncategorized", SourceID: "sheet-a", SourceName: "Finance Docs"})
	facets := CollectFacets(records)

	wantCats := []string{"Engineering", "Finance", "HR"}
	if !reflect.DeepEqual(facets.Categories, wantCats) {
		t.Fatalf("unexpected categories %v", facets.Categories)
	}
	wantTags := []string{"compliance", "finance", "onboarding", "reimbursement", "security", "travel"}
	if !reflect.DeepEqual(facets.Tags, wantTags) {
		t.Fatalf("unexpected tags %v", facets.Tags)
	}
	wantSources := []SourceOption{
		{ID: "sheet-a", Name: "Finance Docs"},
		{ID: "sheet-b", Name: "People Ops"},
	}
	if !reflect.DeepEqual(facets.Sources, wantSources) {
		t.Fatalf("unexpected sources %v", facets.Sources)
	}
}
