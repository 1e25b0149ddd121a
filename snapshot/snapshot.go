// Package snapshot renders a fetched page into a markdown audit view, so an
// operator (or a downstream LLM) can inspect what the scraper actually saw
// without replaying the fetch.
package snapshot

import (
	"net/url"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/use-agent/taxsale/models"
)

// Renderer converts fetched page HTML into markdown. The zero value is not
// usable; create one with NewRenderer. Safe for concurrent use.
type Renderer struct {
	conv *converter.Converter
}

// NewRenderer builds a Renderer with the shared markdown converter.
func NewRenderer() *Renderer {
	return &Renderer{conv: newMarkdownConverter()}
}

// Render produces the audit view for one fetched page. fetchedTitle is the
// title reported by the fetch layer and is used when readability cannot
// find one of its own.
func (r *Renderer) Render(rawHTML, sourceURL, fetchedTitle string) (*models.PageResponse, error) {
	article, _ := extractContent(rawHTML, sourceURL)

	md, err := toMarkdown(r.conv, article.Content, domainOf(sourceURL))
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeInternal,
			"markdown conversion failed",
			err,
		)
	}

	title := article.Title
	if title == "" {
		title = fetchedTitle
	}

	return &models.PageResponse{
		SourceURL: sourceURL,
		Title:     title,
		Markdown:  md,
		Tokens:    EstimateTokens(md),
	}, nil
}

// domainOf reduces a URL to scheme://host for relative link resolution.
func domainOf(sourceURL string) string {
	u, err := url.Parse(sourceURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
