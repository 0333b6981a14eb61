package crawler

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// CollyFetcher performs outbound calls through a colly collector. Each call
// runs on a clone so callbacks never leak between concurrent requests.
type CollyFetcher struct {
	collector *colly.Collector
	headers   map[string]string
	logger    *zap.Logger
}

func NewCollyFetcher(config *FetcherConfig, logger *zap.Logger) (*CollyFetcher, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	transport, err := NewTransport(config.ProxyURL, config.DenyPrivateNetworks)
	if err != nil {
		return nil, err
	}

	c := colly.NewCollector(
		colly.UserAgent(config.UserAgent),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
		colly.ParseHTTPErrorResponse(),
		colly.MaxBodySize(config.MaxBodyBytes),
	)
	c.WithTransport(transport)
	c.SetRequestTimeout(config.RequestTimeout)
	if config.DenyPrivateNetworks {
		c.SetRedirectHandler(redirectGuard(NewURLValidator(false)))
	}

	return &CollyFetcher{
		collector: c,
		headers:   config.Headers,
		logger:    logger,
	}, nil
}

func (f *CollyFetcher) Do(ctx context.Context, req Request) Outcome {
	logger := ContextLogger(ctx, f.logger)

	c := f.collector.Clone()
	c.Context = ctx

	var (
		out      Outcome
		rejected bool
	)

	c.OnRequest(func(r *colly.Request) {
		for k, v := range f.headers {
			r.Headers.Set(k, v)
		}
		logger.Debug("outbound_request",
			zap.String("method", r.Method),
			zap.String("url", r.URL.String()))
	})

	c.OnResponseHeaders(func(r *colly.Response) {
		out.Status = r.StatusCode
		out.ContentType = r.Headers.Get("Content-Type")
		if out.ContentType != "" && req.Accept != nil && r.StatusCode < http.StatusMultipleChoices && !req.Accept(out.ContentType) {
			rejected = true
			r.Request.Abort()
		}
	})

	c.OnResponse(func(r *colly.Response) {
		out.Status = r.StatusCode
		out.Body = r.Body
		out.FinalURL = r.Request.URL.String()
		out.ContentType = ResolveContentType(r.Headers.Get("Content-Type"), r.Body)
		if req.Accept != nil && r.StatusCode < http.StatusMultipleChoices && !req.Accept(out.ContentType) {
			rejected = true
		}
	})

	var err error
	switch strings.ToUpper(req.Method) {
	case http.MethodPost:
		err = c.Post(req.URL, req.Form)
	case "", http.MethodGet:
		err = c.Visit(req.URL)
	default:
		return Outcome{Kind: OutcomeNetworkError, Err: fmt.Errorf("unsupported method %q", req.Method)}
	}

	switch {
	case rejected:
		out.Kind = OutcomeUnsupportedContent
		out.Body = nil
	case err != nil:
		out.Kind, out.Err = classifyError(ctx, err)
		logger.Warn("outbound_failed",
			zap.String("url", req.URL),
			zap.Stringer("kind", out.Kind),
			zap.Error(err))
	case out.Status >= http.StatusBadRequest:
		out.Kind = OutcomeHTTPError
	default:
		out.Kind = OutcomeSuccess
	}

	return out
}

// redirectGuard validates every redirect hop the way the first URL was validated.
func redirectGuard(v *URLValidator) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= 10 {
			return errors.New("stopped after 10 redirects")
		}
		if _, err := v.Validate(req.URL.String()); err != nil {
			return fmt.Errorf("refusing redirect to %s: %w", req.URL.Redacted(), err)
		}
		return nil
	}
}

func classifyError(ctx context.Context, err error) (OutcomeKind, error) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return OutcomeTimeout, err
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return OutcomeTimeout, err
	}
	return OutcomeNetworkError, err
}
