package scraper

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/taxsale/models"
	"github.com/ysmood/gson"
)

// fetchBrowser renders the source page in a fresh incognito browsing
// context and snapshots its DOM.
//
// Lifecycle (numbered steps match the inline comments):
//
//  1. Ensure browser     – lazy launch on first use
//  2. Incognito context  – isolation between concurrent calls
//  3. DEFER: dispose     – the context and every page in it die together
//  4. Fresh page
//  5. Stealth injection  – mask navigator.webdriver etc. (before navigation!)
//  6. Identity           – UA, viewport, locale, timezone, Accept-Language
//  7. Hijack mount       – block images/CSS/fonts/media (before navigation!)
//  8. Context binding    – propagate the deadline to all Rod operations
//  9. Navigate
//  10. Wait              – DOM stable, then a short settle delay
//  11. Extract           – page.HTML() + document.title
//
// Steps 5-7 MUST happen before step 9: stealth JS, identity overrides and
// resource blocking only take effect for navigations that happen after they
// are installed. Step 3 disposes through the parent browser's connection, so
// cleanup succeeds even after the request context has expired.
func (s *Session) fetchBrowser(ctx context.Context) (*FetchResult, error) {
	// ── 1. Ensure the shared browser is up ───────────────────────────
	if err := s.Start(); err != nil {
		return nil, err
	}
	browser := s.activeBrowser()
	if browser == nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"browser session was stopped mid-flight",
			nil,
		)
	}

	// ── 2. Isolated browsing context per call ────────────────────────
	incognito, err := browser.Incognito()
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to create browsing context",
			err,
		)
	}

	// ── 3. CRITICAL DEFER: dispose the context and all its pages ─────
	defer func() {
		if disposeErr := (proto.TargetDisposeBrowserContext{
			BrowserContextID: incognito.BrowserContextID,
		}.Call(browser)); disposeErr != nil {
			slog.Warn("cleanup: failed to dispose browsing context",
				"error", disposeErr,
			)
		}
	}()

	// ── 4. Fresh page ────────────────────────────────────────────────
	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewScrapeError(
			models.ErrCodeBrowserCrash,
			"failed to open page",
			err,
		)
	}

	// ── 5. Stealth injection ─────────────────────────────────────────
	if s.browserCfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	// ── 6. Browsing identity ─────────────────────────────────────────
	s.applyIdentity(page)

	// ── 7. Mount hijack router ───────────────────────────────────────
	if router := setupHijack(page, s.scrapeCfg.BlockedResourceTypes); router != nil {
		defer func() { _ = router.Stop() }()
	}

	// ── 8. Bind request context to page ──────────────────────────────
	p := page.Context(ctx)

	// ── 9. Navigate ──────────────────────────────────────────────────
	if navErr := p.Navigate(s.sourceURL.String()); navErr != nil {
		return nil, categorizeError(navErr, "navigation to source page failed")
	}

	// ── 10. Wait for the DOM to stop mutating, then settle ───────────
	if stableErr := p.WaitDOMStable(300*time.Millisecond, 0.1); stableErr != nil {
		slog.Debug("DOM did not stabilize, proceeding with current state",
			"error", stableErr,
		)
	}
	settle(ctx, s.scrapeCfg.SettleDelay)

	// ── 11. Snapshot the rendered document ───────────────────────────
	rawHTML, htmlErr := p.HTML()
	if htmlErr != nil {
		return nil, categorizeError(htmlErr, "failed to extract page HTML")
	}
	title := evalStringOrEmpty(p, `() => document.title`)

	return &FetchResult{
		HTML:   rawHTML,
		Title:  title,
		Method: FetchMethodBrowser,
	}, nil
}

// applyIdentity makes every visit look like the same desktop visitor:
// stable user agent, viewport, locale and timezone. Best-effort; a page
// fetched with a default identity is still a usable page.
func (s *Session) applyIdentity(page *rod.Page) {
	cfg := s.scrapeCfg

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent: cfg.UserAgent,
	}); err != nil {
		slog.Warn("user agent override failed", "error", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             cfg.ViewportWidth,
		Height:            cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		slog.Warn("viewport override failed", "error", err)
	}
	if err := (proto.EmulationSetLocaleOverride{Locale: cfg.Locale}.Call(page)); err != nil {
		slog.Warn("locale override failed", "locale", cfg.Locale, "error", err)
	}
	if err := (proto.EmulationSetTimezoneOverride{TimezoneID: cfg.Timezone}.Call(page)); err != nil {
		slog.Warn("timezone override failed", "timezone", cfg.Timezone, "error", err)
	}

	// The locale override changes Intl and navigator.language but not
	// request headers; the matching Accept-Language must be set explicitly.
	_ = proto.NetworkSetExtraHTTPHeaders{
		Headers: toHeadersMap(map[string]string{
			"Accept-Language": acceptLanguage(cfg.Locale),
		}),
	}.Call(page)
}

// settle pauses after DOM stability so late layout work can finish. The
// pause never outlives the request deadline.
func settle(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// acceptLanguage derives an Accept-Language header value from a BCP 47
// locale the way Chrome sends it: "en-US" becomes "en-US,en;q=0.9".
func acceptLanguage(locale string) string {
	if i := strings.IndexByte(locale, '-'); i > 0 {
		return locale + "," + locale[:i] + ";q=0.9"
	}
	return locale
}

// evalStringOrEmpty evaluates a JS expression and returns the string result,
// swallowing any errors (useful for optional metadata extraction).
func evalStringOrEmpty(page *rod.Page, js string) string {
	res, err := page.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}

// categorizeError wraps raw errors into typed ScrapeErrors so the API layer
// can map them to appropriate HTTP status codes.
func categorizeError(err error, msg string) *models.ScrapeError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeNavigation, msg, err)
	}
}
