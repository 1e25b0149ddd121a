package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/use-agent/taxsale/models"
)

const shortenWidth = 100

// PrintProgress writes one numbered line per record. PDF rows render
// bold white, everything else faint, unless colored is false.
func PrintProgress(w io.Writer, records []models.NormalizedRecord, colored bool) {
	for i, r := range records {
		line := fmt.Sprintf("[%03d] %s  —  %s", i+1, Shorten(r.EntityTitle, shortenWidth), Shorten(r.FileLabel, shortenWidth))
		if colored {
			if r.FileType != nil && *r.FileType == "pdf" {
				line = text.Colors{text.Bold, text.FgWhite}.Sprint(line)
			} else {
				line = text.Colors{text.Faint}.Sprint(line)
			}
		}
		fmt.Fprintln(w, line)
	}
}

// Shorten collapses runs of whitespace to single spaces and truncates
// to n runes, ending with an ellipsis when the value was cut.
func Shorten(s *string, n int) string {
	if s == nil {
		return ""
	}
	collapsed := strings.Join(strings.Fields(*s), " ")
	runes := []rune(collapsed)
	if len(runes) <= n {
		return collapsed
	}
	return string(runes[:n-1]) + "…"
}
