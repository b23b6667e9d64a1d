package shopengine

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"golang.org/x/net/html/charset"

	"github.com/cardwatch/cardwatch/pkg/selector"
	domain "github.com/cardwatch/cardwatch/pkg/types"
)

// staticEngine fetches pages over plain HTTP and parses them with goquery.
// It cannot execute JavaScript; shops requiring client-side rendering must
// use domain.EngineHeadlessBrowser instead.
type staticEngine struct {
	client     *http.Client
	userAgent  string
	currentURL string
	doc        *selector.Document
}

func newStaticEngine(opts ...Option) *staticEngine {
	cfg := newEngineConfig(opts...)

	transport := http.DefaultTransport
	if cfg.proxyURL != "" {
		if proxyURL, err := url.Parse(cfg.proxyURL); err == nil {
			transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	return &staticEngine{
		client:    &http.Client{Timeout: NavigationTimeout, Transport: transport},
		userAgent: cfg.userAgent,
	}
}

func (e *staticEngine) Goto(ctx context.Context, target string) error {
	ctx, cancel := context.WithTimeout(ctx, NavigationTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return fmt.Errorf("shopengine: building request for %q: %w", target, err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("shopengine: fetching %q: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("shopengine: %q returned status %d", target, resp.StatusCode)
	}

	doc, err := parseHTMLWithCharset(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return fmt.Errorf("shopengine: parsing %q: %w", target, err)
	}

	e.doc = doc
	if resp.Request != nil && resp.Request.URL != nil {
		e.currentURL = resp.Request.URL.String()
	} else {
		e.currentURL = target
	}
	return nil
}

func (e *staticEngine) Extract(_ context.Context, sel domain.Selector) (string, bool) {
	if e.doc == nil {
		return "", false
	}
	return e.doc.Resolve(sel)
}

func (e *staticEngine) ExtractAll(_ context.Context, sel domain.Selector) []selector.Element {
	if e.doc == nil {
		return nil
	}
	return e.doc.FindAll(sel)
}

func (e *staticEngine) Exists(ctx context.Context, sel domain.Selector) bool {
	_, ok := e.Extract(ctx, sel)
	return ok
}

func (e *staticEngine) CurrentURL() string {
	return e.currentURL
}

func (e *staticEngine) Close() error {
	return nil
}

// parseHTMLWithCharset decodes body to UTF-8 using the detected encoding
// (BOM, Content-Type charset, or <meta> tag, in that priority order) before
// handing it to selector.ParseHTML, which requires UTF-8 input.
func parseHTMLWithCharset(body io.Reader, contentType string) (*selector.Document, error) {
	br := bufio.NewReader(body)
	peek, _ := br.Peek(1024)

	enc, name, _ := charset.DetermineEncoding(peek, contentType)

	var utf8Reader io.Reader = br
	if enc != nil && name != "utf-8" {
		utf8Reader = enc.NewDecoder().Reader(br)
	}

	return selector.ParseHTML(utf8Reader)
}
