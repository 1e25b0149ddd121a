package listing

import (
	"net/url"
	"strings"

	"github.com/use-agent/taxsale/models"
)

// Normalize maps one canonicalized raw record to its stable projection.
// Titles and labels are trimmed and collapse to nil when empty; an empty or
// missing href yields a nil URL and nil type.
func Normalize(r models.RawRecord) models.NormalizedRecord {
	n := models.NormalizedRecord{
		EntityTitle: trimmedOrNil(r.EntityTitle),
		FileLabel:   trimmedOrNil(r.FileLabel),
	}
	if r.FileHref != nil && *r.FileHref != "" {
		n.FileURL = strptr(*r.FileHref)
		n.FileType = FileType(*r.FileHref)
	}
	return n
}

// NormalizeAll normalizes a raw sequence, index-aligned with its input.
func NormalizeAll(records []models.RawRecord) []models.NormalizedRecord {
	out := make([]models.NormalizedRecord, len(records))
	for i, r := range records {
		out[i] = Normalize(r)
	}
	return out
}

// FileType classifies a URL by the suffix of its path component, ignoring
// query and fragment. Returns "pdf", "doc" or "xls", or nil for anything
// else (unknown suffix, no suffix, unparseable URL).
func FileType(rawURL string) *string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	path := strings.ToLower(u.Path)
	switch {
	case strings.HasSuffix(path, ".pdf"):
		return strptr("pdf")
	case strings.HasSuffix(path, ".doc"), strings.HasSuffix(path, ".docx"):
		return strptr("doc")
	case strings.HasSuffix(path, ".xls"), strings.HasSuffix(path, ".xlsx"):
		return strptr("xls")
	}
	return nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	if t := strings.TrimSpace(*s); t != "" {
		return strptr(t)
	}
	return nil
}
