package rows

import (
	"regexp"
	"strings"
)

// spreadsheetURLPattern matches the document ID segment of a Google Sheets
// URL, e.g. https://docs.google.com/spreadsheets/d/<ID>/edit#gid=0.
var spreadsheetURLPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)

// ExtractID resolves a configured source identifier to a source ID. URL-style
// identifiers have the embedded document ID extracted; anything else is
// returned unchanged and treated as the ID itself.
func ExtractID(identifier string) string {
	trimmed := strings.TrimSpace(identifier)
	if m := spreadsheetURLPattern.FindStringSubmatch(trimmed); m != nil {
		return m[1]
	}
	return trimmed
}
