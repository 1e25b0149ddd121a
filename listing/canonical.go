package listing

import (
	"net/url"

	"github.com/use-agent/taxsale/models"
)

// Canonicalize resolves every href against the source page URL, strips
// fragment components, and deduplicates the records by exact field triple.
// Resolution is best-effort: a value that cannot be parsed is kept verbatim
// so downstream normalization can still degrade gracefully.
func Canonicalize(records []models.RawRecord, base *url.URL) []models.RawRecord {
	for i := range records {
		records[i].FileHref = canonicalHref(records[i].FileHref, base)
	}
	return Dedupe(records)
}

func canonicalHref(href *string, base *url.URL) *string {
	if href == nil || *href == "" || base == nil {
		return href
	}
	ref, err := url.Parse(*href)
	if err != nil {
		return href
	}
	abs := base.ResolveReference(ref)
	abs.Fragment = ""
	abs.RawFragment = ""
	return strptr(abs.String())
}

type recordKey struct {
	title, label, href string
}

// Dedupe drops records whose (entity_title, file_label, href) triple was
// already seen, treating nil fields as empty strings for key purposes.
// First-seen order is preserved.
func Dedupe(records []models.RawRecord) []models.RawRecord {
	seen := make(map[recordKey]struct{}, len(records))
	out := make([]models.RawRecord, 0, len(records))
	for _, r := range records {
		k := recordKey{orEmpty(r.EntityTitle), orEmpty(r.FileLabel), orEmpty(r.FileHref)}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}
	return out
}

func orEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
