package search

import (
	"fmt"
	"io"
	"iter"
	"net/url"
	"strings"
	"sync/atomic"

	"github.com/PuerkitoBio/goquery"
)

// ParserConfig holds every markup-dependent assumption about the results page.
// The provider's HTML is not a stable contract, so all of it is overridable.
type ParserConfig struct {
	BaseURL         string
	ResultSelector  string
	TitleSelector   string
	SnippetSelector string
	// AdClasses are class names that mark a block (or one of its children) as sponsored.
	AdClasses []string
	// AdURLMarkers are substrings of a raw result href that identify ad click-through links.
	AdURLMarkers []string
	// RedirectParam is the query parameter carrying the real destination in wrapped links.
	RedirectParam string
	// RedirectHost restricts unwrapping to links on this host or its subdomains.
	RedirectHost string
}

func DefaultParserConfig() ParserConfig {
	return ParserConfig{
		BaseURL:         "https://html.duckduckgo.com/html/",
		ResultSelector:  ".result, .web-result, [data-testid='result'], article[data-nrn='result']",
		TitleSelector:   ".result__title a, a.result__a, [data-testid='result-title-a'], h2 a",
		SnippetSelector: ".result__snippet, .result-snippet, [data-result='snippet']",
		AdClasses:       []string{"result--ad", "result--ad--small", "badge--ad"},
		AdURLMarkers:    []string{"/y.js", "ad_provider=", "ad_domain="},
		RedirectParam:   "uddg",
		RedirectHost:    "duckduckgo.com",
	}
}

// ResultParser turns a results page into SearchResult records.
type ResultParser struct {
	cfg  ParserConfig
	base *url.URL
}

func NewResultParser(cfg ParserConfig) (*ResultParser, error) {
	defaults := DefaultParserConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.ResultSelector == "" {
		cfg.ResultSelector = defaults.ResultSelector
	}
	if cfg.TitleSelector == "" {
		cfg.TitleSelector = defaults.TitleSelector
	}
	if cfg.SnippetSelector == "" {
		cfg.SnippetSelector = defaults.SnippetSelector
	}

	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid parser base url: %w", err)
	}
	return &ResultParser{cfg: cfg, base: base}, nil
}

// Parse reads a results document and returns its records in document order.
// The returned sequence is lazy and can be ranged over only once.
func (p *ResultParser) Parse(r io.Reader) (iter.Seq[SearchResult], error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse results page: %w", err)
	}
	return p.ParseDocument(doc), nil
}

func (p *ResultParser) ParseDocument(doc *goquery.Document) iter.Seq[SearchResult] {
	var consumed atomic.Bool
	return func(yield func(SearchResult) bool) {
		if !consumed.CompareAndSwap(false, true) {
			return
		}

		blocks := doc.Find(p.cfg.ResultSelector)
		for i := range blocks.Length() {
			block := blocks.Eq(i)
			// nested matches are handled through their outermost block
			if block.ParentsFiltered(p.cfg.ResultSelector).Length() > 0 {
				continue
			}
			result, ok := p.parseBlock(block)
			if !ok {
				continue
			}
			if !yield(result) {
				return
			}
		}
	}
}

// Collect parses r and keeps at most limit records. A non-positive limit keeps all.
func (p *ResultParser) Collect(r io.Reader, limit int) ([]SearchResult, error) {
	seq, err := p.Parse(r)
	if err != nil {
		return nil, err
	}

	var results []SearchResult
	for result := range seq {
		results = append(results, result)
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results, nil
}

func (p *ResultParser) parseBlock(block *goquery.Selection) (SearchResult, bool) {
	if p.IsAd(block) {
		return SearchResult{}, false
	}

	link := block.Find(p.cfg.TitleSelector).First()
	if link.Length() == 0 {
		return SearchResult{}, false
	}
	href, ok := link.Attr("href")
	if !ok || p.isAdURL(href) {
		return SearchResult{}, false
	}

	target, ok := p.resolve(href)
	if !ok {
		return SearchResult{}, false
	}

	title := cleanText(link.Text())
	snippet := cleanText(block.Find(p.cfg.SnippetSelector).First().Text())
	if title == "" || snippet == "" {
		return SearchResult{}, false
	}

	return SearchResult{Title: title, URL: target, Snippet: snippet}, true
}

// IsAd reports whether a result block carries one of the sponsored markers.
func (p *ResultParser) IsAd(block *goquery.Selection) bool {
	for _, class := range p.cfg.AdClasses {
		if block.HasClass(class) || block.Find("."+class).Length() > 0 {
			return true
		}
	}
	if nrn, ok := block.Attr("data-nrn"); ok && nrn == "ad" {
		return true
	}
	return false
}

func (p *ResultParser) isAdURL(href string) bool {
	for _, marker := range p.cfg.AdURLMarkers {
		if marker != "" && strings.Contains(href, marker) {
			return true
		}
	}
	return false
}

// UnwrapRedirect returns the destination embedded in a provider redirect link.
// ok is false when href is not a redirect wrapper.
func (p *ResultParser) UnwrapRedirect(href string) (string, bool) {
	u, err := p.base.Parse(normalizeHref(href))
	if err != nil {
		return "", false
	}
	target, ok := p.unwrap(u)
	if !ok {
		return "", false
	}
	return target.String(), true
}

func (p *ResultParser) unwrap(u *url.URL) (*url.URL, bool) {
	if p.cfg.RedirectParam == "" || !p.isRedirectHost(u.Hostname()) {
		return nil, false
	}
	raw := u.Query().Get(p.cfg.RedirectParam)
	if raw == "" {
		return nil, false
	}
	target, err := url.Parse(raw)
	if err != nil || !isWebURL(target) {
		return nil, false
	}
	return target, true
}

func (p *ResultParser) isRedirectHost(host string) bool {
	want := p.cfg.RedirectHost
	if want == "" {
		return true
	}
	host = strings.ToLower(host)
	return host == want || strings.HasSuffix(host, "."+want)
}

// resolve turns a result href into an absolute http(s) URL with any
// redirect wrapping removed.
func (p *ResultParser) resolve(href string) (string, bool) {
	href = normalizeHref(href)
	if href == "" {
		return "", false
	}
	u, err := p.base.Parse(href)
	if err != nil {
		return "", false
	}
	if target, ok := p.unwrap(u); ok {
		if p.isAdURL(target.String()) {
			return "", false
		}
		u = target
	}
	if !isWebURL(u) {
		return "", false
	}
	return u.String(), true
}

func normalizeHref(href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "//") {
		return "https:" + href
	}
	return href
}

func isWebURL(u *url.URL) bool {
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
