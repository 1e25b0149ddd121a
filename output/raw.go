// Package output renders scrape results for the command line: raw TSV,
// normalized CSV and NDJSON streams, progress lines, and a summary table.
package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/use-agent/taxsale/models"
)

// RawHeaders is the TSV column order, matching the raw field names.
var RawHeaders = []string{"tax-list-entity-title", "tax-list-file", "tax-list-file href"}

// WriteRawTSV streams raw records as tab-separated values with a header
// row. Tabs and newlines inside values are flattened to spaces so the
// output stays one row per record.
func WriteRawTSV(w io.Writer, records []models.RawRecord) error {
	if _, err := fmt.Fprintln(w, strings.Join(RawHeaders, "\t")); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			sanitizeCell(r.EntityTitle),
			sanitizeCell(r.FileLabel),
			sanitizeCell(r.FileHref),
		}
		if _, err := fmt.Fprintln(w, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return nil
}

func sanitizeCell(s *string) string {
	if s == nil {
		return ""
	}
	v := strings.ReplaceAll(*s, "\t", " ")
	v = strings.ReplaceAll(v, "\n", " ")
	return strings.TrimSpace(v)
}
