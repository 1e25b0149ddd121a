package output

import (
	"encoding/csv"
	"io"

	"github.com/use-agent/taxsale/models"
)

// NormalizedHeaders is the CSV column order for normalized records.
var NormalizedHeaders = []string{"entity_title", "file_label", "file_url", "file_type"}

// WriteNormalizedCSV writes normalized records as CSV with a header row.
// Null fields become empty cells.
func WriteNormalizedCSV(w io.Writer, records []models.NormalizedRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(NormalizedHeaders); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			deref(r.EntityTitle),
			deref(r.FileLabel),
			deref(r.FileURL),
			deref(r.FileType),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
