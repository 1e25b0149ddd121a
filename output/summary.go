package output

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/use-agent/taxsale/models"
)

// WriteSummary renders a one-row table describing the scrape: record
// count, file type breakdown, and elapsed time.
func WriteSummary(w io.Writer, res *models.ScrapeResult, elapsed time.Duration) {
	var pdf, doc, xls, other, noLink int
	for _, r := range res.Normalized {
		switch {
		case r.FileURL == nil:
			noLink++
		case r.FileType == nil:
			other++
		case *r.FileType == "pdf":
			pdf++
		case *r.FileType == "doc":
			doc++
		case *r.FileType == "xls":
			xls++
		default:
			other++
		}
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Records", "PDF", "DOC", "XLS", "Other", "No Link", "Elapsed"})
	tw.AppendRow(table.Row{res.Count, pdf, doc, xls, other, noLink, elapsed.Round(time.Millisecond)})
	tw.Render()
}
