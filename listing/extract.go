package listing

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/use-agent/taxsale/models"
)

// The source page has carried two markup shapes over time: an explicit one
// with tax-list-* classes, and a plain one where entities are only headings
// or list items followed by links. The selectors for both are compiled once
// here; Extract picks the strategy per document, never per element.
var (
	entityTitleMatcher = cascadia.MustCompile(".tax-list-entity-title")
	entityMatcher      = cascadia.MustCompile(".tax-list-entity")
	fileMatcher        = cascadia.MustCompile(".tax-list-file, .tax-list-file a")

	// looseLinkMatcher is the within-entity fallback when a title has no
	// tagged file elements: documents, anything mentioning a sale, and
	// plain absolute or root-relative links.
	looseLinkMatcher = cascadia.MustCompile("a[href$='.pdf'], a[href*='sale'], a[href^='http'], a[href^='/']")

	headingMatcher    = cascadia.MustCompile("h1, h2, h3, strong, b, li")
	sectionMatcher    = cascadia.MustCompile("li, section, div, ul, ol")
	anchorHrefMatcher = cascadia.MustCompile("a[href]")
	anchorMatcher     = cascadia.MustCompile("a")
)

var (
	letterPattern  = regexp.MustCompile(`[A-Za-z]`)
	keywordPattern = regexp.MustCompile(`(?i)county|pct|sale|isd|sheriff`)
)

// Extract runs the two-tier extraction strategy over a rendered document and
// returns the raw records in document order. No URL resolution and no
// deduplication happens here; Canonicalize does both.
//
// The tier decision is made once for the whole document: when at least one
// explicit entity-title element exists, only the explicit path runs, even for
// titles that end up yielding zero files.
func Extract(doc *goquery.Document) []models.RawRecord {
	titles := doc.FindMatcher(entityTitleMatcher)
	if titles.Length() > 0 {
		return extractExplicit(doc, titles)
	}
	return extractHeuristic(doc)
}

// ExtractHTML parses rawHTML and extracts from the resulting document.
func ExtractHTML(rawHTML string) ([]models.RawRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return nil, err
	}
	return Extract(doc), nil
}

// extractExplicit is the precise path: one record per (entity title, file
// element) pair. The enclosing entity container is the nearest
// .tax-list-entity ancestor, else the title's parent, else the document.
// A title with no resolvable file elements emits nothing.
func extractExplicit(doc *goquery.Document, titles *goquery.Selection) []models.RawRecord {
	records := []models.RawRecord{}

	titles.Each(func(_ int, titleEl *goquery.Selection) {
		title := strings.TrimSpace(titleEl.Text())

		root := titleEl.ClosestMatcher(entityMatcher)
		if root.Length() == 0 {
			root = titleEl.Parent()
		}
		if root.Length() == 0 {
			root = doc.Selection
		}

		files := root.FindMatcher(fileMatcher)
		if files.Length() == 0 {
			files = root.FindMatcher(looseLinkMatcher)
		}
		files.Each(func(_ int, el *goquery.Selection) {
			records = append(records, fileRecord(title, el))
		})
	})

	return records
}

// fileRecord builds one raw record for a (title, file element) pair.
//
// An inner anchor wins over the element itself for both the label text and
// the href; an element that is not and does not contain an anchor yields a
// nil href. Label text keeps the source's null-vs-empty distinction: no text
// at all resolves to nil, whitespace-only text resolves to an empty string.
func fileRecord(title string, el *goquery.Selection) models.RawRecord {
	var rec models.RawRecord
	if title != "" {
		rec.EntityTitle = strptr(title)
	}

	var anchor *goquery.Selection
	if el.IsMatcher(anchorMatcher) {
		anchor = el
	} else if inner := el.FindMatcher(anchorMatcher).First(); inner.Length() > 0 {
		anchor = inner
	}

	textSrc := el
	if anchor != nil {
		textSrc = anchor
	}
	if raw := textSrc.Text(); raw != "" {
		rec.FileLabel = strptr(strings.TrimSpace(raw))
	}

	if anchor != nil {
		if href, ok := anchor.Attr("href"); ok {
			rec.FileHref = strptr(href)
		}
	}

	return rec
}

// extractHeuristic is the fallback path for documents without explicit
// markers. Heading-like and list-item-like elements whose text contains a
// letter and one of the listing keywords become entity titles; every
// non-fragment link inside their enclosing container becomes a record.
func extractHeuristic(doc *goquery.Document) []models.RawRecord {
	records := []models.RawRecord{}

	doc.FindMatcher(headingMatcher).Each(func(_ int, s *goquery.Selection) {
		txt := strings.TrimSpace(s.Text())
		if txt == "" || !letterPattern.MatchString(txt) || !keywordPattern.MatchString(txt) {
			return
		}

		container := s.ClosestMatcher(sectionMatcher)
		if container.Length() == 0 {
			container = s.Parent()
		}
		if container.Length() == 0 {
			container = doc.Selection
		}

		container.FindMatcher(anchorHrefMatcher).Each(func(_ int, a *goquery.Selection) {
			href, ok := a.Attr("href")
			if !ok || href == "" {
				return
			}
			// Same-page anchors are navigation, not files.
			if strings.HasPrefix(href, "#") {
				return
			}

			rec := models.RawRecord{
				EntityTitle: strptr(txt),
				FileHref:    strptr(href),
			}
			if label := strings.TrimSpace(a.Text()); label != "" {
				rec.FileLabel = strptr(label)
			}
			records = append(records, rec)
		})
	})

	return records
}

func strptr(s string) *string {
	return &s
}
