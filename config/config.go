package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultSourceURL is the single page this scraper targets.
const DefaultSourceURL = "https://www.pbfcm.com/taxsale.html"

// defaultUserAgent matches a desktop Chrome so the page renders the same
// markup it serves to regular visitors.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/124 Safari/537.36"

// Fetch modes accepted by ScrapeConfig.FetchMode.
const (
	FetchModeBrowser = "browser"
	FetchModeHTTP    = "http"
	FetchModeAuto    = "auto"
)

// ValidFetchMode reports whether mode is one of the accepted fetch modes.
func ValidFetchMode(mode string) bool {
	switch mode {
	case FetchModeBrowser, FetchModeHTTP, FetchModeAuto:
		return true
	}
	return false
}

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scrape    ScrapeConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Webhook   WebhookConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// Proxy is the proxy URL for all page loads, empty for none.
	Proxy string

	// Stealth injects anti-bot-detection JS before navigation.
	Stealth bool // default: false
}

// ScrapeConfig controls the scrape operation against the source page.
type ScrapeConfig struct {
	// SourceURL is the page to scrape. Fixed to the PBFCM tax-sale list
	// by default; overridable mainly for mirrors and test servers.
	SourceURL string

	// Timeout is the deadline for one full scrape (navigation + settle +
	// extraction).
	Timeout time.Duration // default: 30s

	// SettleDelay is the fixed pause after the DOM stabilizes, giving the
	// page a moment to finish layout.
	SettleDelay time.Duration // default: 400ms

	// FetchMode selects how the page is retrieved.
	// "browser": headless Chromium (default).
	// "http": plain HTTP with a Chrome TLS fingerprint, no JS.
	// "auto": HTTP first, browser fallback.
	FetchMode string

	// BlockedResourceTypes lists resource types the browser refuses to load.
	// default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string

	// UserAgent, Locale, Timezone and the viewport are applied to the
	// browsing context before navigation.
	UserAgent      string
	Locale         string // default: "en-US"
	Timezone       string // default: "America/Chicago"
	ViewportWidth  int    // default: 1400
	ViewportHeight int    // default: 900

	// RespectRobots checks the site's robots.txt before navigating and
	// refuses to scrape a disallowed path.
	RespectRobots bool // default: false
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// APIKeys is the list of valid API keys. Empty means open access.
	APIKeys []string
}

// RateLimitConfig controls per-identity rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key or client IP.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per identity.
	Burst int // default: 10
}

// CacheConfig controls the scrape result cache on the HTTP surface.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached results.
	MaxEntries int // default: 16

	// DefaultMaxAge is the freshness window applied when a request does
	// not pass max_age_ms. Zero disables caching unless the client opts in.
	DefaultMaxAge time.Duration // default: 0
}

// WebhookConfig controls push delivery of completed scrape results.
type WebhookConfig struct {
	// URL receives a POST per completed scrape. Empty disables delivery.
	URL string

	// Secret, when set, signs the payload with HMAC-SHA256.
	Secret string
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("TAXSALE_HOST", "0.0.0.0"),
			Port: envIntOr("TAXSALE_PORT", 8080),
			Mode: envOr("TAXSALE_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:   envBoolOr("TAXSALE_HEADLESS", true),
			NoSandbox:  envBoolOr("TAXSALE_NO_SANDBOX", false),
			BrowserBin: os.Getenv("TAXSALE_BROWSER_BIN"),
			Proxy:      os.Getenv("TAXSALE_PROXY"),
			Stealth:    envBoolOr("TAXSALE_STEALTH", false),
		},
		Scrape: ScrapeConfig{
			SourceURL:   envOr("TAXSALE_SOURCE_URL", DefaultSourceURL),
			Timeout:     envDurationOr("TAXSALE_TIMEOUT", 30*time.Second),
			SettleDelay: envDurationOr("TAXSALE_SETTLE_DELAY", 400*time.Millisecond),
			FetchMode:   envOr("TAXSALE_FETCH_MODE", FetchModeBrowser),
			BlockedResourceTypes: envSliceOr("TAXSALE_BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media",
			}),
			UserAgent:      envOr("TAXSALE_USER_AGENT", defaultUserAgent),
			Locale:         envOr("TAXSALE_LOCALE", "en-US"),
			Timezone:       envOr("TAXSALE_TIMEZONE", "America/Chicago"),
			ViewportWidth:  envIntOr("TAXSALE_VIEWPORT_WIDTH", 1400),
			ViewportHeight: envIntOr("TAXSALE_VIEWPORT_HEIGHT", 900),
			RespectRobots:  envBoolOr("TAXSALE_RESPECT_ROBOTS", false),
		},
		Auth: AuthConfig{
			APIKeys: envSliceOr("TAXSALE_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("TAXSALE_RATE_RPS", 5.0),
			Burst:             envIntOr("TAXSALE_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			MaxEntries:    envIntOr("TAXSALE_CACHE_MAX_ENTRIES", 16),
			DefaultMaxAge: envDurationOr("TAXSALE_CACHE_MAX_AGE", 0),
		},
		Webhook: WebhookConfig{
			URL:    os.Getenv("TAXSALE_WEBHOOK_URL"),
			Secret: os.Getenv("TAXSALE_WEBHOOK_SECRET"),
		},
		Log: LogConfig{
			Level:  envOr("TAXSALE_LOG_LEVEL", "info"),
			Format: envOr("TAXSALE_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
