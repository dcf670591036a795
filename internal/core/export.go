package core

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// Columns appended to exports of multi-source views. They never appear in
// source data.
const (
	ColumnSourceID   = "source_id"
	ColumnSourceName = "source_name"
)

// utf8BOM leads every CSV export so spreadsheet applications detect UTF-8.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// exportColumns is the canonical CSV column order.
var exportColumns = []string{
	ColumnTitle,
	ColumnCategory,
	ColumnOwner,
	ColumnNotes,
	ColumnTags,
	ColumnDriveLink,
	ColumnUpdatedAt,
}

// WriteCSV renders the view's records as UTF-8 CSV with a leading BOM.
// Multi-source views carry two trailing columns naming each record's source.
func WriteCSV(w io.Writer, view *View) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}
	cw := csv.NewWriter(w)
	header := append([]string(nil), exportColumns...)
	if view.MultiSource {
		header = append(header, ColumnSourceID, ColumnSourceName)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, rec := range view.Records {
		row := []string{
			rec.Title,
			rec.Category,
			rec.Owner,
			rec.Notes,
			rec.TagString(),
			rec.DriveLink,
			FormatTimestamp(rec.UpdatedAt),
		}
		if view.MultiSource {
			row = append(row, rec.SourceID, rec.SourceName)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteJSON renders the full view as indented JSON.
func WriteJSON(w io.Writer, view *View) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(view); err != nil {
		return fmt.Errorf("encode view: %w", err)
	}
	return nil
}

// FormatTimestamp renders updated_at for export, empty when absent.
func FormatTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// ExportFilename names a CSV download generated at t.
func ExportFilename(t time.Time) string {
	return "policyhub-" + t.UTC().Format("20060102T150405Z") + ".csv"
}
