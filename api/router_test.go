package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/use-agent/taxsale/cache"
	"github.com/use-agent/taxsale/config"
	"github.com/use-agent/taxsale/models"
	"github.com/use-agent/taxsale/scraper"
	"github.com/use-agent/taxsale/snapshot"
)

const listingPage = `<html><head><title>PBFCM Tax Sales</title></head><body>
	<div class="tax-list-entity">
		<div class="tax-list-entity-title">Smith County</div>
		<a class="tax-list-file" href="/docs/notice.pdf">Notice</a>
	</div>
</body></html>`

// newTestRouter wires a full router against a local source page served over
// plain HTTP, so handler behavior is exercised without a browser.
func newTestRouter(t *testing.T, sourceHTML string, mutate func(*config.Config)) (http.Handler, *atomic.Int64) {
	t.Helper()

	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(sourceHTML))
	}))
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		Server: config.ServerConfig{Mode: "test"},
		Scrape: config.ScrapeConfig{
			SourceURL: srv.URL + "/taxsale.html",
			FetchMode: config.FetchModeHTTP,
			Timeout:   5 * time.Second,
			UserAgent: "test-agent",
			Locale:    "en-US",
		},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100},
		Cache:     config.CacheConfig{MaxEntries: 4},
	}
	if mutate != nil {
		mutate(cfg)
	}

	sess, err := scraper.NewSession(config.BrowserConfig{}, cfg.Scrape)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}

	return NewRouter(sess, snapshot.NewRenderer(), cfg, cache.New(cfg.Cache.MaxEntries)), &hits
}

func doRequest(t *testing.T, router http.Handler, method, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthRoute(t *testing.T) {
	router, _ := newTestRouter(t, listingPage, nil)

	w := doRequest(t, router, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if body := strings.TrimSpace(w.Body.String()); body != `{"ok":true}` {
		t.Errorf("body = %s, want {\"ok\":true}", body)
	}
}

func TestScrapeRoute(t *testing.T) {
	router, _ := newTestRouter(t, listingPage, nil)

	w := doRequest(t, router, http.MethodGet, "/scrape", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var res models.ScrapeResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if res.Count != 1 {
		t.Fatalf("count = %d, want 1", res.Count)
	}
	href := res.Raw[0].FileHref
	if href == nil || !strings.HasSuffix(*href, "/docs/notice.pdf") || !strings.HasPrefix(*href, "http") {
		t.Errorf("href = %v, want absolutized /docs/notice.pdf", href)
	}
	if ft := res.Normalized[0].FileType; ft == nil || *ft != "pdf" {
		t.Errorf("file_type = %v, want pdf", ft)
	}
}

func TestScrapeRoute_CacheRoundTrip(t *testing.T) {
	router, hits := newTestRouter(t, listingPage, nil)

	first := doRequest(t, router, http.MethodGet, "/scrape?max_age_ms=60000", nil)
	if first.Code != http.StatusOK {
		t.Fatalf("first status = %d: %s", first.Code, first.Body.String())
	}
	if got := first.Header().Get("X-Cache"); got != "miss" {
		t.Errorf("first X-Cache = %q, want miss", got)
	}

	second := doRequest(t, router, http.MethodGet, "/scrape?max_age_ms=60000", nil)
	if second.Code != http.StatusOK {
		t.Fatalf("second status = %d", second.Code)
	}
	if got := second.Header().Get("X-Cache"); got != "hit" {
		t.Errorf("second X-Cache = %q, want hit", got)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("source fetched %d times, want 1", got)
	}
	if first.Body.String() != second.Body.String() {
		t.Error("cached response should match the original byte for byte")
	}
}

func TestScrapeRoute_NoMaxAgeBypassesCache(t *testing.T) {
	router, hits := newTestRouter(t, listingPage, nil)

	doRequest(t, router, http.MethodGet, "/scrape", nil)
	doRequest(t, router, http.MethodGet, "/scrape", nil)
	if got := hits.Load(); got != 2 {
		t.Errorf("source fetched %d times, want 2 without a freshness window", got)
	}
}

func TestScrapeRoute_InvalidMaxAge(t *testing.T) {
	router, _ := newTestRouter(t, listingPage, nil)

	w := doRequest(t, router, http.MethodGet, "/scrape?max_age_ms=soon", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	var resp models.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error response: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != models.ErrCodeInvalidInput {
		t.Errorf("error = %+v, want %s", resp.Error, models.ErrCodeInvalidInput)
	}
}

func TestScrapeRoute_AuthRequired(t *testing.T) {
	router, _ := newTestRouter(t, listingPage, func(cfg *config.Config) {
		cfg.Auth.APIKeys = []string{"k1"}
	})

	w := doRequest(t, router, http.MethodGet, "/scrape", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status without key = %d, want 401", w.Code)
	}

	w = doRequest(t, router, http.MethodGet, "/scrape", map[string]string{"X-API-Key": "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status with wrong key = %d, want 401", w.Code)
	}

	w = doRequest(t, router, http.MethodGet, "/scrape", map[string]string{"X-API-Key": "k1"})
	if w.Code != http.StatusOK {
		t.Fatalf("status with key = %d, want 200: %s", w.Code, w.Body.String())
	}

	w = doRequest(t, router, http.MethodGet, "/scrape", map[string]string{"Authorization": "Bearer k1"})
	if w.Code != http.StatusOK {
		t.Fatalf("status with bearer = %d, want 200", w.Code)
	}

	// Health stays open even with auth enabled.
	w = doRequest(t, router, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", w.Code)
	}
}

func TestScrapeRoute_RateLimited(t *testing.T) {
	router, _ := newTestRouter(t, listingPage, func(cfg *config.Config) {
		cfg.RateLimit = config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}
	})

	if w := doRequest(t, router, http.MethodGet, "/scrape", nil); w.Code != http.StatusOK {
		t.Fatalf("first status = %d, want 200", w.Code)
	}

	w := doRequest(t, router, http.MethodGet, "/scrape", nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", w.Code)
	}
	var resp models.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error response: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != models.ErrCodeRateLimited {
		t.Errorf("error = %+v, want %s", resp.Error, models.ErrCodeRateLimited)
	}
}

func TestPageRoute(t *testing.T) {
	router, _ := newTestRouter(t, listingPage, nil)

	w := doRequest(t, router, http.MethodGet, "/page", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp models.PageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal page response: %v", err)
	}
	if !strings.Contains(resp.Markdown, "Smith County") {
		t.Errorf("markdown missing listing content: %q", resp.Markdown)
	}
	if resp.Title != "PBFCM Tax Sales" {
		t.Errorf("title = %q, want PBFCM Tax Sales", resp.Title)
	}
}

func TestScrapeRoute_UpstreamFailure(t *testing.T) {
	router, _ := newTestRouter(t, listingPage, func(cfg *config.Config) {
		cfg.Scrape.SourceURL = "http://127.0.0.1:1/taxsale.html" // nothing listens here
	})

	w := doRequest(t, router, http.MethodGet, "/scrape", nil)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502: %s", w.Code, w.Body.String())
	}
	var resp models.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal error response: %v", err)
	}
	if resp.Error == nil || resp.Error.Code != models.ErrCodeNavigation {
		t.Errorf("error = %+v, want %s", resp.Error, models.ErrCodeNavigation)
	}
}
