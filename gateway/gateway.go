package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"searchgate/crawler"
	"searchgate/metrics"
	"searchgate/ratelimit"
	"searchgate/search"

	"go.uber.org/zap"
)

const (
	opSearch = "search"
	opFetch  = "fetch_content"
)

const DefaultSearchURL = "https://html.duckduckgo.com/html"

// Limiter admits outbound requests per operation class.
type Limiter interface {
	Acquire(ctx context.Context, class ratelimit.Class) (time.Duration, error)
}

type Config struct {
	SearchURL            string
	Region               string
	AllowPrivateNetworks bool
}

// Gateway runs both operations: it throttles, performs the outbound call,
// parses the response and classifies every failure.
type Gateway struct {
	cfg           Config
	limiter       Limiter
	searchFetcher crawler.Fetcher
	pageFetcher   crawler.Fetcher
	parser        *search.ResultParser
	extractor     *crawler.ContentExtractor
	validator     *crawler.URLValidator
	logger        *zap.Logger
}

type Option func(*Gateway)

// WithPageFetcher uses f for page fetches instead of the search fetcher.
func WithPageFetcher(f crawler.Fetcher) Option {
	return func(g *Gateway) { g.pageFetcher = f }
}

func New(
	cfg Config,
	limiter Limiter,
	fetcher crawler.Fetcher,
	parser *search.ResultParser,
	extractor *crawler.ContentExtractor,
	logger *zap.Logger,
	opts ...Option,
) (*Gateway, error) {
	if limiter == nil || fetcher == nil || parser == nil || extractor == nil {
		return nil, errors.New("gateway: limiter, fetcher, parser and extractor are required")
	}
	if cfg.SearchURL == "" {
		cfg.SearchURL = DefaultSearchURL
	}
	if _, err := url.Parse(cfg.SearchURL); err != nil {
		return nil, fmt.Errorf("gateway: invalid search url: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	g := &Gateway{
		cfg:           cfg,
		limiter:       limiter,
		searchFetcher: fetcher,
		pageFetcher:   fetcher,
		parser:        parser,
		extractor:     extractor,
		validator:     crawler.NewURLValidator(cfg.AllowPrivateNetworks),
		logger:        logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Search queries the provider and returns the formatted result listing.
// Zero parsed results is not an error; the listing then carries the
// no-results message. maxResults of zero selects the default.
func (g *Gateway) Search(ctx context.Context, query string, maxResults int) (text string, err error) {
	ctx = crawler.WithRequest(ctx, opSearch)
	logger := crawler.ContextLogger(ctx, g.logger)
	start := time.Now()
	defer func() { g.observe(opSearch, start, err) }()

	req := search.SearchRequest{Query: query, MaxResults: maxResults, Region: g.cfg.Region}
	if err := req.Normalize(); err != nil {
		return "", invalidInput(opSearch, err)
	}

	if err := g.acquire(ctx, opSearch, ratelimit.ClassSearch); err != nil {
		return "", err
	}

	out := g.searchFetcher.Do(ctx, crawler.Request{
		Method: http.MethodPost,
		URL:    g.cfg.SearchURL,
		Form:   req.Form(),
	})
	metrics.OutboundResponses.WithLabelValues(opSearch, out.Kind.String()).Inc()
	if gwErr := outcomeError(opSearch, out); gwErr != nil {
		logger.Warn("search_failed",
			zap.String("code", string(gwErr.Code)),
			zap.String("detail", out.Detail()))
		return "", gwErr
	}

	results, err := g.parser.Collect(bytes.NewReader(out.Body), req.MaxResults)
	if err != nil {
		return "", &Error{
			Code:    CodeSearchFailed,
			Op:      opSearch,
			Message: "the results page could not be parsed",
			Cause:   CauseParse,
			Err:     err,
		}
	}

	metrics.ResultsReturned.Observe(float64(len(results)))
	if len(results) == 0 {
		logger.Info("search_degraded",
			zap.String("query", req.Query),
			zap.Int("status", out.Status),
			zap.Int("body_bytes", len(out.Body)))
	}
	logger.Info("search_completed",
		zap.String("query", req.Query),
		zap.Int("results", len(results)),
		zap.Duration("duration", time.Since(start)))

	return search.FormatResults(results), nil
}

// Fetch retrieves a page and returns its cleaned, truncated text. Invalid
// URLs are rejected before any rate limit slot or network call is used.
func (g *Gateway) Fetch(ctx context.Context, rawURL string) (text string, err error) {
	ctx = crawler.WithRequest(ctx, opFetch)
	logger := crawler.ContextLogger(ctx, g.logger)
	start := time.Now()
	defer func() { g.observe(opFetch, start, err) }()

	if strings.TrimSpace(rawURL) == "" {
		return "", invalidInput(opFetch, errors.New("url must not be empty"))
	}
	target, err := g.validator.Validate(rawURL)
	if err != nil {
		return "", invalidInput(opFetch, err)
	}

	if err := g.acquire(ctx, opFetch, ratelimit.ClassFetch); err != nil {
		return "", err
	}

	out := g.pageFetcher.Do(ctx, crawler.Request{
		Method: http.MethodGet,
		URL:    target.String(),
		Accept: crawler.IsTextContent,
	})
	metrics.OutboundResponses.WithLabelValues(opFetch, out.Kind.String()).Inc()
	if gwErr := outcomeError(opFetch, out); gwErr != nil {
		logger.Warn("fetch_failed",
			zap.String("url", target.String()),
			zap.String("code", string(gwErr.Code)),
			zap.String("detail", out.Detail()))
		return "", gwErr
	}
	contentType := crawler.ResolveContentType(out.ContentType, out.Body)
	if !crawler.IsTextContent(contentType) {
		return "", unsupportedContent(opFetch, contentType)
	}

	pageURL := target
	if out.FinalURL != "" {
		if final, err := url.Parse(out.FinalURL); err == nil {
			pageURL = final
		}
	}

	extraction, err := g.extractor.Extract(out.Body, contentType, pageURL)
	if err != nil {
		return "", &Error{
			Code:    CodeFetchFailed,
			Op:      opFetch,
			Message: "the page could not be parsed",
			Cause:   CauseParse,
			Err:     err,
		}
	}

	logger.Info("fetch_completed",
		zap.String("url", pageURL.String()),
		zap.Int("status", out.Status),
		zap.String("mode", string(extraction.Mode)),
		zap.Int("chars", extraction.Length),
		zap.Bool("truncated", extraction.Truncated),
		zap.Duration("duration", time.Since(start)))

	if extraction.Text == "" {
		return NoContentMessage(pageURL.String()), nil
	}
	return extraction.Text, nil
}

// NoContentMessage is returned when a page was fetched but yielded no text.
func NoContentMessage(pageURL string) string {
	return fmt.Sprintf("No readable text content was found at %s.", pageURL)
}

// SearchText is the boundary form of Search: it always returns a string,
// encoding failures with Render. code is empty on success and otherwise
// names the failure the text describes.
func (g *Gateway) SearchText(ctx context.Context, query string, maxResults int) (text string, code Code) {
	defer g.recoverInto(opSearch, &text, &code)
	text, err := g.Search(ctx, query, maxResults)
	if err != nil {
		return Render(err), CodeOf(err)
	}
	return text, ""
}

// FetchText is the boundary form of Fetch.
func (g *Gateway) FetchText(ctx context.Context, rawURL string) (text string, code Code) {
	defer g.recoverInto(opFetch, &text, &code)
	text, err := g.Fetch(ctx, rawURL)
	if err != nil {
		return Render(err), CodeOf(err)
	}
	return text, ""
}

func (g *Gateway) recoverInto(op string, text *string, code *Code) {
	if r := recover(); r != nil {
		g.logger.Error("operation_panicked", zap.String("op", op), zap.Any("panic", r), zap.Stack("stack"))
		*code = failedCode(op)
		*text = Render(&Error{Code: *code, Op: op, Message: fmt.Sprintf("internal error: %v", r)})
	}
}

func (g *Gateway) acquire(ctx context.Context, op string, class ratelimit.Class) error {
	waited, err := g.limiter.Acquire(ctx, class)
	if waited > 0 {
		crawler.ContextLogger(ctx, g.logger).Info("rate_limit_wait",
			zap.String("class", string(class)),
			zap.Duration("waited", waited))
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return canceled(op, err)
		}
		return &Error{Code: CodeInternal, Op: op, Message: "rate limiter rejected the request", Err: err}
	}
	return nil
}

func (g *Gateway) observe(op string, start time.Time, err error) {
	code := "OK"
	if err != nil {
		code = string(CodeOf(err))
	}
	metrics.RequestsTotal.WithLabelValues(op, code).Inc()
	metrics.RequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
