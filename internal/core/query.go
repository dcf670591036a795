package core

import (
	"sort"
	"strings"
)

// SortOrder selects how a filtered view is ordered.
type SortOrder string

const (
	// SortUpdatedDesc orders newest first; records without a timestamp
	// sort after all records with one. This is the default.
	SortUpdatedDesc SortOrder = "updated_desc"
	// SortTitleAsc orders by title ascending; empty titles sort last.
	SortTitleAsc SortOrder = "title_asc"
)

// ParseSortOrder maps a raw sort parameter onto a SortOrder, defaulting to
// updated_desc for anything unrecognized.
func ParseSortOrder(raw string) SortOrder {
	if SortOrder(strings.TrimSpace(raw)) == SortTitleAsc {
		return SortTitleAsc
	}
	return SortUpdatedDesc
}

// Query is one set of filter and sort choices. Empty filter slices are
// no-ops; active filters combine with AND. Sources holds source display
// names, not IDs.
type Query struct {
	Keyword    string    `json:"keyword,omitempty"`
	Categories []string  `json:"categories,omitempty"`
	Tags       []string  `json:"tags,omitempty"`
	Sources    []string  `json:"sources,omitempty"`
	Sort       SortOrder `json:"sort,omitempty"`
}

// SourceOption is one entry for the source filter control.
type SourceOption struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Facets are the distinct values present in a collection, used to populate
// the filter controls.
type Facets struct {
	Categories []string       `json:"categories"`
	Tags       []string       `json:"tags"`
	Sources    []SourceOption `json:"sources"`
}

// CollectFacets scans records for distinct non-empty categories, tags, and
// sources. Value lists sort case-insensitively; sources keep configured
// aggregation order.
func CollectFacets(records []Record) Facets {
	catSet := make(map[string]struct{})
	tagSet := make(map[string]struct{})
	srcSeen := make(map[string]struct{})
	var sources []SourceOption
	for _, r := range records {
		if r.Category != "" {
			catSet[r.Category] = struct{}{}
		}
		for _, t := range r.Tags {
			tagSet[t] = struct{}{}
		}
		if r.SourceID != "" {
			if _, ok := srcSeen[r.SourceID]; !ok {
				srcSeen[r.SourceID] = struct{}{}
				sources = append(sources, SourceOption{ID: r.SourceID, Name: r.SourceName})
			}
		}
	}
	return Facets{
		Categories: sortedValues(catSet),
		Tags:       sortedValues(tagSet),
		Sources:    sources,
	}
}

func sortedValues(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		li, lj := strings.ToLower(out[i]), strings.ToLower(out[j])
		if li == lj {
			return out[i] < out[j]
		}
		return li < lj
	})
	return out
}

// Apply filters and sorts a copy of records according to q. The input slice
// is never mutated.
func Apply(records []Record, q Query) []Record {
	out := make([]Record, 0, len(records))
	keyword := strings.ToLower(strings.TrimSpace(q.Keyword))
	categories := toSet(q.Categories)
	tags := toSet(q.Tags)
	sources := toSet(q.Sources)
	for _, r := range records {
		if keyword != "" && !matchesKeyword(r, keyword) {
			continue
		}
		if len(categories) > 0 {
			if _, ok := categories[r.Category]; !ok {
				continue
			}
		}
		if len(tags) > 0 && !intersects(r.Tags, tags) {
			continue
		}
		if len(sources) > 0 {
			if _, ok := sources[r.SourceName]; !ok {
				continue
			}
		}
		out = append(out, r)
	}
	sortRecords(out, q.Sort)
	return out
}

// matchesKeyword reports whether any searchable field contains the
// lowercased keyword. Searchable fields: title, tags, notes, owner,
// category.
func matchesKeyword(r Record, keyword string) bool {
	for _, field := range []string{r.Title, r.TagString(), r.Notes, r.Owner, r.Category} {
		if strings.Contains(strings.ToLower(field), keyword) {
			return true
		}
	}
	return false
}

func toSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}

func intersects(values []string, set map[string]struct{}) bool {
	for _, v := range values {
		if _, ok := set[v]; ok {
			return true
		}
	}
	return false
}

// sortRecords orders in place. Sorting is stable so ties keep aggregation
// order.
func sortRecords(records []Record, order SortOrder) {
	switch order {
	case SortTitleAsc:
		sort.SliceStable(records, func(i, j int) bool {
			a, b := records[i].Title, records[j].Title
			if (a == "") != (b == "") {
				return a != ""
			}
			return a < b
		})
	default:
		sort.SliceStable(records, func(i, j int) bool {
			a, b := records[i].UpdatedAt, records[j].UpdatedAt
			if (a == nil) != (b == nil) {
				return a != nil
			}
			if a == nil {
				return false
			}
			return a.After(*b)
		})
	}
}
