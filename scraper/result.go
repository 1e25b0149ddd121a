package scraper

import (
	"net/url"

	"github.com/use-agent/taxsale/listing"
	"github.com/use-agent/taxsale/models"
)

// Fetch methods recorded on FetchResult.
const (
	FetchMethodBrowser = "browser"
	FetchMethodHTTP    = "http"
)

// FetchResult is the outcome of one page fetch, independent of transport.
type FetchResult struct {
	// HTML is the rendered (browser) or served (http) page HTML.
	HTML string

	// Title is the page title.
	Title string

	// Method records how the page was fetched: "browser" or "http".
	Method string
}

// BuildResult runs the listing pipeline over fetched HTML: extract raw
// records, canonicalize hrefs against the source URL, deduplicate, and
// derive the normalized projection. Raw and normalized stay index-aligned
// and are never nil, so an empty page still serializes as empty arrays.
func BuildResult(rawHTML, sourceURL string) (*models.ScrapeResult, error) {
	records, err := listing.ExtractHTML(rawHTML)
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeInternal,
			"failed to parse fetched HTML",
			err,
		)
	}

	var base *url.URL
	if u, perr := url.Parse(sourceURL); perr == nil {
		base = u
	}
	records = listing.Canonicalize(records, base)

	return &models.ScrapeResult{
		SourceURL:  sourceURL,
		Count:      len(records),
		Raw:        records,
		Normalized: listing.NormalizeAll(records),
	}, nil
}
