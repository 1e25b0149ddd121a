package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/use-agent/taxsale/config"
	"github.com/use-agent/taxsale/models"
)

// Session owns the headless browser serving a single fixed source page.
// The browser launches once (eagerly via Start or lazily on the first
// browser-mode fetch) and is reused until Stop kills it. Every scrape runs
// in its own incognito browsing context, so concurrent calls share the
// process but nothing else: no cookies, no cache, no page state.
type Session struct {
	browserCfg config.BrowserConfig
	scrapeCfg  config.ScrapeConfig
	sourceURL  *url.URL

	mu      sync.Mutex
	browser *rod.Browser

	fetcher *httpFetcher
	robots  robotsGate
}

// NewSession validates the configured source URL and prepares a session.
// No browser process is launched here.
func NewSession(browserCfg config.BrowserConfig, scrapeCfg config.ScrapeConfig) (*Session, error) {
	src, err := url.Parse(scrapeCfg.SourceURL)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "invalid source URL", err)
	}
	if (src.Scheme != "http" && src.Scheme != "https") || src.Host == "" {
		return nil, models.NewScrapeError(
			models.ErrCodeInvalidInput,
			fmt.Sprintf("source URL must be absolute http(s), got %q", scrapeCfg.SourceURL),
			nil,
		)
	}

	return &Session{
		browserCfg: browserCfg,
		scrapeCfg:  scrapeCfg,
		sourceURL:  src,
		fetcher:    newHTTPFetcher(browserCfg.Proxy, scrapeCfg.UserAgent, scrapeCfg.Locale),
	}, nil
}

// SourceURL returns the page this session scrapes.
func (s *Session) SourceURL() string {
	return s.sourceURL.String()
}

// FetchMode returns the configured fetch mode.
func (s *Session) FetchMode() string {
	return s.scrapeCfg.FetchMode
}

// Start launches the headless browser and connects to it. Calling Start on
// a running session is a no-op, so callers may treat it as "ensure started".
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browser != nil {
		return nil
	}

	l := launcher.New().
		Headless(s.browserCfg.Headless).
		NoSandbox(s.browserCfg.NoSandbox)

	if s.browserCfg.BrowserBin != "" {
		l = l.Bin(s.browserCfg.BrowserBin)
	}
	if s.browserCfg.Proxy != "" {
		l = l.Proxy(s.browserCfg.Proxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-ipc-flooding-protection"))
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-prompt-on-repost"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}
	slog.Info("browser session started", "controlURL", controlURL)

	s.browser = browser
	return nil
}

// Stop kills the browser process. Idempotent; a stopped session can be
// started again.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browser == nil {
		return
	}
	slog.Info("browser session stopping")
	s.browser.MustClose()
	s.browser = nil
	slog.Info("browser session stopped")
}

func (s *Session) activeBrowser() *rod.Browser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.browser
}

// Scrape fetches the source page and runs the extraction pipeline over the
// rendered document.
func (s *Session) Scrape(ctx context.Context) (*models.ScrapeResult, error) {
	fetched, err := s.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return BuildResult(fetched.HTML, s.sourceURL.String())
}

// Fetch retrieves the source page using the configured fetch mode and
// returns the rendered (or served) HTML. The whole operation runs under the
// scrape timeout.
func (s *Session) Fetch(ctx context.Context) (*FetchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.scrapeCfg.Timeout)
	defer cancel()

	if s.scrapeCfg.RespectRobots {
		if err := s.robots.check(ctx, s.sourceURL); err != nil {
			return nil, err
		}
	}

	switch s.scrapeCfg.FetchMode {
	case config.FetchModeHTTP:
		return s.fetchHTTP(ctx)
	case config.FetchModeAuto:
		res, err := s.fetchHTTP(ctx)
		if err == nil && !needsBrowser([]byte(res.HTML)) {
			return res, nil
		}
		if err != nil {
			slog.Warn("http fetch failed, falling back to browser", "error", err)
		} else {
			slog.Debug("http fetch looks script-dependent, falling back to browser")
		}
		return s.fetchBrowser(ctx)
	default:
		return s.fetchBrowser(ctx)
	}
}
