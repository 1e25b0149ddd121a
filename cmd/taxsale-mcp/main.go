// Command taxsale-mcp exposes the taxsale HTTP API as MCP tools over
// stdio, so agent hosts can pull the listing without speaking HTTP
// themselves. It is a thin client: all scraping happens in taxsaled.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// rawRecord mirrors the API's raw record model.
type rawRecord struct {
	EntityTitle *string `json:"tax-list-entity-title"`
	FileLabel   *string `json:"tax-list-file"`
	FileHref    *string `json:"tax-list-file href"`
}

// normalizedRecord mirrors the API's normalized record model.
type normalizedRecord struct {
	EntityTitle *string `json:"entity_title"`
	FileLabel   *string `json:"file_label"`
	FileURL     *string `json:"file_url"`
	FileType    *string `json:"file_type"`
}

// scrapeResult mirrors the GET /scrape response body.
type scrapeResult struct {
	SourceURL  string             `json:"source_url"`
	Count      int                `json:"count"`
	Raw        []rawRecord        `json:"raw"`
	Normalized []normalizedRecord `json:"normalized"`
}

// pageResult mirrors the GET /page response body.
type pageResult struct {
	SourceURL string `json:"source_url"`
	Title     string `json:"title"`
	Markdown  string `json:"markdown"`
	Tokens    int    `json:"tokens"`
}

// apiError mirrors the error envelope every failed request returns.
type apiError struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func main() {
	apiURL := os.Getenv("TAXSALE_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	// Optional: the server runs open when no keys are configured.
	apiKey := os.Getenv("TAXSALE_API_KEY")

	s := server.NewMCPServer(
		"taxsale",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	scrapeListingsTool := mcp.NewTool("scrape_listings",
		mcp.WithDescription("Scrape the PBFCM tax-sale listing page and return every entity with its sale-notice files. Each record has an entity title (county or taxing unit), a file label, and a canonical file URL."),
		mcp.WithNumber("max_age_ms",
			mcp.Description("Accept a cached result no older than this many milliseconds. Omit or 0 to force a fresh scrape."),
		),
	)
	s.AddTool(scrapeListingsTool, handleScrapeListings(apiURL, apiKey))

	fetchPageTool := mcp.NewTool("fetch_page",
		mcp.WithDescription("Fetch the tax-sale listing page and return it as markdown, for auditing what the scraper sees or for reading surrounding context on the page."),
	)
	s.AddTool(fetchPageTool, handleFetchPage(apiURL, apiKey))

	checkHealthTool := mcp.NewTool("check_health",
		mcp.WithDescription("Check whether the taxsale API is up and answering."),
	)
	s.AddTool(checkHealthTool, handleCheckHealth(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiGet sends a GET request to the taxsale API and returns the response
// body plus status code. Failed requests still return their body so the
// caller can surface the error envelope.
func apiGet(ctx context.Context, client *http.Client, apiURL, apiKey, path string, query url.Values) ([]byte, int, error) {
	target := apiURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}
	return body, resp.StatusCode, nil
}

// envelopeMessage extracts "[CODE] message" from an error envelope, or
// falls back to the HTTP status.
func envelopeMessage(body []byte, status int) string {
	var e apiError
	if err := json.Unmarshal(body, &e); err == nil && e.Error != nil {
		return fmt.Sprintf("[%s] %s", e.Error.Code, e.Error.Message)
	}
	return fmt.Sprintf("request failed with status %d", status)
}

func handleScrapeListings(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query := url.Values{}
		if maxAge := request.GetInt("max_age_ms", 0); maxAge > 0 {
			query.Set("max_age_ms", strconv.Itoa(maxAge))
		}

		body, status, err := apiGet(ctx, client, apiURL, apiKey, "/scrape", query)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if status != http.StatusOK {
			return mcp.NewToolResultError(envelopeMessage(body, status)), nil
		}

		var res scrapeResult
		if err := json.Unmarshal(body, &res); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("%d records from %s\n\n", res.Count, res.SourceURL))
		for i, r := range res.Normalized {
			sb.WriteString(fmt.Sprintf("[%03d] %s — %s\n", i+1, deref(r.EntityTitle), deref(r.FileLabel)))
			if r.FileURL != nil {
				if r.FileType != nil {
					sb.WriteString(fmt.Sprintf("      %s (%s)\n", *r.FileURL, *r.FileType))
				} else {
					sb.WriteString(fmt.Sprintf("      %s\n", *r.FileURL))
				}
			}
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleFetchPage(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 120 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		body, status, err := apiGet(ctx, client, apiURL, apiKey, "/page", nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if status != http.StatusOK {
			return mcp.NewToolResultError(envelopeMessage(body, status)), nil
		}

		var page pageResult
		if err := json.Unmarshal(body, &page); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		result := fmt.Sprintf("Title: %s\nSource: %s\n\n%s", page.Title, page.SourceURL, page.Markdown)
		result += fmt.Sprintf("\n\n---\nTokens: %d", page.Tokens)

		return mcp.NewToolResultText(result), nil
	}
}

func handleCheckHealth(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 10 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		body, status, err := apiGet(ctx, client, apiURL, apiKey, "/health", nil)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if status != http.StatusOK {
			return mcp.NewToolResultError(envelopeMessage(body, status)), nil
		}

		var health struct {
			OK bool `json:"ok"`
		}
		if err := json.Unmarshal(body, &health); err != nil || !health.OK {
			return mcp.NewToolResultError("API responded but reported not ok"), nil
		}

		return mcp.NewToolResultText("ok"), nil
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
