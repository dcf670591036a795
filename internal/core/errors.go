package core

import (
	"fmt"
	"strings"
)

// MissingColumnsError halts a load whose aggregated source data carries
// none of the required columns. It is user-visible: the dashboard shows
// its message instead of rendering records.
type MissingColumnsError struct {
	Missing []string
}

func (e MissingColumnsError) Error() string {
	return fmt.Sprintf("source data is missing required columns: %s", strings.Join(e.Missing, ", "))
}
