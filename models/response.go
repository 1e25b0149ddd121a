package models

// HealthResponse is the body for GET /health.
type HealthResponse struct {
	OK bool `json:"ok"`
}

// ErrorResponse is the envelope for any failed API request. Successful
// responses return their payload directly without an envelope.
type ErrorResponse struct {
	Error *ErrorDetail `json:"error"`
}

// PageResponse is the body for GET /page: a markdown rendition of the
// source page for operators auditing what the scraper saw.
type PageResponse struct {
	SourceURL string `json:"source_url"`
	Title     string `json:"title"`
	Markdown  string `json:"markdown"`

	// Tokens is a rough token-count estimate of the markdown, handy when
	// the audit view is fed to an LLM downstream.
	Tokens int `json:"tokens"`
}
