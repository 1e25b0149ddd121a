package models

// RawRecord is one extracted listing row using the exact field names the
// source markup uses. Any field may be nil when the underlying element or
// attribute was missing.
type RawRecord struct {
	// EntityTitle is the grouping label, e.g. a county or taxing-unit name.
	EntityTitle *string `json:"tax-list-entity-title"`

	// FileLabel is the visible text of the associated file link.
	FileLabel *string `json:"tax-list-file"`

	// FileHref is the link target. Relative until canonicalization runs.
	FileHref *string `json:"tax-list-file href"`
}

// NormalizedRecord is the stable, consumer-friendly projection of a RawRecord.
type NormalizedRecord struct {
	// EntityTitle is the trimmed grouping label, nil when empty.
	EntityTitle *string `json:"entity_title"`

	// FileLabel is the trimmed link text, nil when empty.
	FileLabel *string `json:"file_label"`

	// FileURL is the canonical absolute URL, nil when the record has no link.
	FileURL *string `json:"file_url"`

	// FileType is "pdf", "doc" or "xls" classified from the URL path suffix,
	// nil for anything else.
	FileType *string `json:"file_type"`
}

// ScrapeResult is the aggregate output of one scrape operation. Raw and
// Normalized are index-aligned and always the same length as Count.
type ScrapeResult struct {
	SourceURL  string             `json:"source_url"`
	Count      int                `json:"count"`
	Raw        []RawRecord        `json:"raw"`
	Normalized []NormalizedRecord `json:"normalized"`
}
