package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	tls "github.com/refraction-networking/utls"
	"golang.org/x/net/html"
	xproxy "golang.org/x/net/proxy"
)

// maxFetchBytes caps how much of the source page the HTTP path will read.
const maxFetchBytes = 10 << 20

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to http/1.1
// only. Computed once at init time and reused for every connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	// Replace h2 with http/1.1 only in the ALPN extension so the server
	// never negotiates HTTP/2 (which Go's http.Transport cannot handle
	// over a utls connection).
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// httpFetcher retrieves the source page over plain HTTP with a Chrome TLS
// fingerprint. It cannot run JavaScript; callers decide whether the served
// markup is usable or the browser path is needed.
type httpFetcher struct {
	userAgent string
	locale    string
	proxy     string
	client    *http.Client
}

func newHTTPFetcher(proxy, userAgent, locale string) *httpFetcher {
	f := &httpFetcher{
		userAgent: userAgent,
		locale:    locale,
		proxy:     proxy,
	}

	transport := &http.Transport{
		DialContext:       f.dialRaw,
		DialTLSContext:    f.dialTLS,
		ForceAttemptHTTP2: false,
	}
	if u, err := url.Parse(proxy); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		transport.Proxy = http.ProxyURL(u)
	}

	f.client = &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}
	return f
}

// fetchHTTP is the browserless fetch path.
func (s *Session) fetchHTTP(ctx context.Context) (*FetchResult, error) {
	body, err := s.fetcher.fetch(ctx, s.sourceURL.String())
	if err != nil {
		return nil, categorizeError(err, "http fetch of source page failed")
	}
	return &FetchResult{
		HTML:   string(body),
		Title:  extractTitle(body),
		Method: FetchMethodHTTP,
	}, nil
}

// fetch retrieves the URL with browser-shaped headers over the
// fingerprinted transport.
func (f *httpFetcher) fetch(ctx context.Context, targetURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("httpfetch: build request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", acceptLanguage(f.locale))
	req.Header.Set("Accept-Encoding", "identity") // no compression
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpfetch: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if err != nil {
		return nil, fmt.Errorf("httpfetch: read body: %w", err)
	}

	// A non-HTML or error response is a failure here so auto mode can
	// escalate to the browser.
	ct := resp.Header.Get("Content-Type")
	if resp.StatusCode >= 400 || !isHTMLContentType(ct) {
		return nil, fmt.Errorf("httpfetch: non-html or error status %d (content-type: %q)", resp.StatusCode, ct)
	}

	return body, nil
}

// dialRaw opens the TCP connection, through the SOCKS5 proxy when one is
// configured. HTTP proxies are handled by the transport itself.
func (f *httpFetcher) dialRaw(ctx context.Context, network, addr string) (net.Conn, error) {
	d := &net.Dialer{Timeout: 10 * time.Second}

	if u, err := url.Parse(f.proxy); err == nil && (u.Scheme == "socks5" || u.Scheme == "socks5h") {
		var auth *xproxy.Auth
		if u.User != nil {
			pw, _ := u.User.Password()
			auth = &xproxy.Auth{User: u.User.Username(), Password: pw}
		}
		sd, err := xproxy.SOCKS5("tcp", u.Host, auth, d)
		if err != nil {
			return nil, fmt.Errorf("httpfetch: socks5 proxy: %w", err)
		}
		if cd, ok := sd.(xproxy.ContextDialer); ok {
			return cd.DialContext(ctx, network, addr)
		}
		return sd.Dial(network, addr)
	}

	return d.DialContext(ctx, network, addr)
}

// dialTLS establishes a TLS connection presenting the Chrome ClientHello.
func (f *httpFetcher) dialTLS(ctx context.Context, network, addr string) (net.Conn, error) {
	conn, err := f.dialRaw(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	host, _, _ := net.SplitHostPort(addr)
	tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
	if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
		conn.Close()
		return nil, fmt.Errorf("httpfetch: apply tls spec: %w", err)
	}
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return tlsConn, nil
}

// isHTMLContentType returns true if the content-type header looks like HTML.
func isHTMLContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}

// needsBrowser reports whether HTTP-fetched HTML likely depends on
// JavaScript to render its content: SPA shells, noscript warnings, or
// script-heavy pages with almost no visible text.
func needsBrowser(body []byte) bool {
	bodyText := extractVisibleText(body)

	// Very little visible text in <body> usually means an app shell.
	if len(bodyText) < 200 {
		return true
	}

	lower := strings.ToLower(string(body))

	for _, shell := range []string{
		`<div id="root"></div>`,
		`<div id="app"></div>`,
		`<div id="__next"></div>`,
	} {
		if strings.Contains(lower, shell) {
			return true
		}
	}

	if reNoscript.MatchString(lower) {
		return true
	}

	if strings.Count(lower, "<script") > 10 && len(bodyText) < 500 {
		return true
	}

	return false
}

var reNoscript = regexp.MustCompile(`<noscript[^>]*>[^<]*(enable|activate|turn on|requires?)\s+javascript`)

// extractTitle extracts the <title> content from raw HTML bytes.
func extractTitle(body []byte) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(body))
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return ""
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			if string(tn) == "title" {
				if tokenizer.Next() == html.TextToken {
					return strings.TrimSpace(string(tokenizer.Text()))
				}
				return ""
			}
		}
	}
}

// extractVisibleText extracts the visible text from within <body>, stripping
// all tags and <script>/<style> content. Used for heuristic analysis only.
func extractVisibleText(body []byte) string {
	tokenizer := html.NewTokenizer(bytes.NewReader(body))
	var buf strings.Builder
	inBody := false
	skipDepth := 0

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return buf.String()
		case html.StartTagToken:
			tn, _ := tokenizer.TagName()
			tag := string(tn)
			if tag == "body" {
				inBody = true
			}
			if tag == "script" || tag == "style" || tag == "noscript" {
				skipDepth++
			}
		case html.EndTagToken:
			tn, _ := tokenizer.TagName()
			tag := string(tn)
			if tag == "script" || tag == "style" || tag == "noscript" {
				if skipDepth > 0 {
					skipDepth--
				}
			}
		case html.TextToken:
			if inBody && skipDepth == 0 {
				text := strings.TrimSpace(string(tokenizer.Text()))
				if text != "" {
					buf.WriteString(text)
					buf.WriteByte(' ')
				}
			}
		}
	}
}
