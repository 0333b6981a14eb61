package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// BrowserFetcher renders pages in headless Chrome, for targets that only
// produce their content through scripts. It supports GET requests only.
type BrowserFetcher struct {
	logger          *zap.Logger
	timeout         time.Duration
	headers         map[string]string
	ChromedpOptions []chromedp.ExecAllocatorOption
}

func NewBrowserFetcher(config *FetcherConfig, logger *zap.Logger) *BrowserFetcher {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.DisableGPU,
		chromedp.NoSandbox,
		chromedp.Headless,
		chromedp.UserAgent(config.UserAgent),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("exclude-switches", "enable-automation"),
		chromedp.Flag("disable-extensions", ""),
	)
	if config.ProxyURL != "" {
		opts = append(opts, chromedp.ProxyServer(config.ProxyURL))
	}

	return &BrowserFetcher{
		logger:          logger,
		timeout:         config.RequestTimeout,
		headers:         config.Headers,
		ChromedpOptions: opts,
	}
}

func (b *BrowserFetcher) Do(ctx context.Context, req Request) Outcome {
	if req.Method != "" && !strings.EqualFold(req.Method, http.MethodGet) {
		return Outcome{Kind: OutcomeNetworkError, Err: fmt.Errorf("browser fetcher does not support %s", req.Method)}
	}
	logger := ContextLogger(ctx, b.logger)

	// ================
	// Browser Context
	// ================
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, b.ChromedpOptions...)
	defer allocCancel()
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)
	defer taskCancel()
	if b.timeout > 0 {
		var timeoutCancel context.CancelFunc
		taskCtx, timeoutCancel = context.WithTimeout(taskCtx, b.timeout)
		defer timeoutCancel()
	}

	headers := make(network.Headers, len(b.headers))
	for k, v := range b.headers {
		headers[k] = v
	}

	// ================
	// Navigate
	// ================
	resp, err := chromedp.RunResponse(taskCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
		chromedp.Navigate(req.URL),
	)
	if err != nil {
		kind := OutcomeNetworkError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(taskCtx.Err(), context.DeadlineExceeded) {
			kind = OutcomeTimeout
		}
		logger.Warn("browser_navigation_failed", zap.String("url", req.URL), zap.Error(err))
		return Outcome{Kind: kind, Err: err}
	}

	out := Outcome{Status: int(resp.Status), ContentType: resp.MimeType, FinalURL: resp.URL}
	if out.Status >= http.StatusBadRequest {
		out.Kind = OutcomeHTTPError
		return out
	}
	if req.Accept != nil && !req.Accept(out.ContentType) {
		out.Kind = OutcomeUnsupportedContent
		return out
	}

	// ================
	// Rendered DOM
	// ================
	var domHTML string
	if err := chromedp.Run(taskCtx,
		chromedp.WaitReady("body"),
		chromedp.OuterHTML("html", &domHTML),
	); err != nil {
		logger.Warn("browser_render_failed", zap.String("url", req.URL), zap.Error(err))
		return Outcome{Kind: OutcomeNetworkError, Err: fmt.Errorf("failed to read rendered page: %w", err)}
	}

	logger.Debug("browser_page_rendered",
		zap.String("url", out.FinalURL),
		zap.Int("status", out.Status),
		zap.Int("dom_length", len(domHTML)))

	out.Kind = OutcomeSuccess
	out.Body = []byte(domHTML)
	// the rendered DOM is always HTML regardless of the original MIME type
	out.ContentType = "text/html; charset=utf-8"
	return out
}
