package dashboard

import (
	"strings"
	"testing"
	"time"

	"policyhub/internal/core"
)

func TestBuildPageMarksSelectedFacets(t *testing.T) {
	updated := time.Date(2026, 2, 15, 8, 30, 0, 0, time.UTC)
	view := &core.View{
		Records: []core.Record{{
			Title:      "Travel Policy",
			Category:   "Finance",
			Tags:       []string{"travel"},
			UpdatedAt:  &updated,
			SourceID:   "sheet-a",
			SourceName: "Alpha",
		}},
		Facets: core.Facets{
			Categories: []string{"Finance", "HR"},
			Tags:       []string{"onboarding", "travel"},
			Sources: []core.SourceOption{
				{ID: "sheet-a", Name: "Alpha"},
				{ID: "sheet-b"},
			},
		},
		Query: core.Query{
			Keyword:    "travel",
			Categories: []string{"Finance"},
			Sources:    []string{"Alpha"},
			Sort:       core.SortTitleAsc,
		},
		Total:       4,
		Filtered:    1,
		MultiSource: true,
		FetchedAt:   time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
	}

	model := buildPage(view, "q=travel&category=Finance&source=Alpha&sort=title_asc")

	if model.Keyword != "travel" || model.Sort != "title_asc" {
		t.Fatalf("unexpected query echo: %+v", model)
	}
	if !model.Categories[0].Selected || model.Categories[1].Selected {
		t.Fatalf("unexpected category selection: %+v", model.Categories)
	}
	if model.Tags[0].Selected || model.Tags[1].Selected {
		t.Fatalf("expected no tag selected: %+v", model.Tags)
	}
	if !model.Sources[0].Selected || model.Sources[1].Selected {
		t.Fatalf("unexpected source selection: %+v", model.Sources)
	}
	if model.Sources[0].Value != "Alpha" {
		t.Fatalf("expected source options to submit display names, got %q", model.Sources[0].Value)
	}
	if model.Sources[1].Value != "sheet-b" || model.Sources[1].Label != "sheet-b" {
		t.Fatalf("expected unnamed source to fall back to its id, got %+v", model.Sources[1])
	}
	if model.QueryString != "q=travel&category=Finance&source=Alpha&sort=title_asc" {
		t.Fatalf("unexpected query string %q", model.QueryString)
	}
	if model.Records[0].Updated != "Feb 15, 2026" || model.Records[0].UpdatedRaw != "2026-02-15T08:30:00Z" {
		t.Fatalf("unexpected date formatting: %+v", model.Records[0])
	}
	if model.FetchedAt != "2026-04-01 12:00 UTC" {
		t.Fatalf("unexpected fetched-at stamp %q", model.FetchedAt)
	}
}

func TestBuildPageMissingTimestamp(t *testing.T) {
	view := &core.View{
		Records: []core.Record{{Title: "Security Baseline"}},
	}
	model := buildPage(view, "")
	if model.Records[0].Updated != "" || model.Records[0].UpdatedRaw != "" {
		t.Fatalf("expected blank dates, got %+v", model.Records[0])
	}
}

func TestRenderNotesMarkdownLink(t *testing.T) {
	html := string(renderNotes("See [the wiki](https://example.com/wiki) first."))
	if !strings.Contains(html, `<a href="https://example.com/wiki"`) {
		t.Fatalf("expected rendered link, got %s", html)
	}
	if !strings.Contains(html, `target="_blank"`) || !strings.Contains(html, `rel="noopener noreferrer"`) {
		t.Fatalf("expected external link attributes, got %s", html)
	}
}

func TestRenderNotesLinkifiesBareURL(t *testing.T) {
	html := string(renderNotes("Draft lives at https://example.com/draft for now."))
	if !strings.Contains(html, `<a href="https://example.com/draft"`) {
		t.Fatalf("expected bare URL to become a link, got %s", html)
	}
	if !strings.Contains(html, `target="_blank"`) {
		t.Fatalf("expected autolink to open in a new tab, got %s", html)
	}
}

func TestRenderNotesRelativeLinkUntouched(t *testing.T) {
	html := string(renderNotes("See [the handbook](/handbook) too."))
	if !strings.Contains(html, `<a href="/handbook"`) {
		t.Fatalf("expected relative link, got %s", html)
	}
	if strings.Contains(html, `target="_blank"`) {
		t.Fatalf("relative links must not open in a new tab, got %s", html)
	}
}

func TestRenderNotesBlank(t *testing.T) {
	if got := renderNotes("   "); got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
}

func TestRenderNotesDropsRawHTML(t *testing.T) {
	html := string(renderNotes("before <script>alert(1)</script> after"))
	if strings.Contains(html, "<script>") {
		t.Fatalf("raw HTML must not pass through, got %s", html)
	}
	if !strings.Contains(html, "before") || !strings.Contains(html, "after") {
		t.Fatalf("surrounding text should survive, got %s", html)
	}
}

func TestIsExternalLink(t *testing.T) {
	cases := []struct {
		dest string
		want bool
	}{
		{"https://example.com", true},
		{"http://example.com", true},
		{"//cdn.example.com/x", true},
		{"/handbook", false},
		{"mailto:team@example.com", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := isExternalLink([]byte(tc.dest)); got != tc.want {
			t.Fatalf("isExternalLink(%q) = %v, want %v", tc.dest, got, tc.want)
		}
	}
}
