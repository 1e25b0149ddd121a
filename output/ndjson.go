package output

import (
	"encoding/json"
	"io"

	"github.com/use-agent/taxsale/models"
)

// WriteNDJSON writes one JSON object per line for each normalized
// record. HTML characters are left unescaped so URLs stay readable.
func WriteNDJSON(w io.Writer, records []models.NormalizedRecord) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, r := range records {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
