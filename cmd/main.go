package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"searchgate/api"
	"searchgate/config"
	"searchgate/crawler"
	"searchgate/gateway"
	"searchgate/metrics"
	"searchgate/ratelimit"
	"searchgate/search"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const version = "0.1.0"

func main() {
	// =========
	// Flags
	// =========
	configPath := flag.String("config", "", "path to a YAML config file")
	host := flag.String("host", "", "host to bind to (overrides config)")
	port := flag.Int("port", 0, "port to listen on (overrides config)")
	flag.Parse()

	// =========
	// Config
	// =========
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// =========
	// Logging
	// =========
	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	// =========
	// Rate limiting
	// =========
	limiter, err := ratelimit.New(map[ratelimit.Class]ratelimit.Rule{
		ratelimit.ClassSearch: {Limit: cfg.RateLimit.SearchPerWindow, Window: cfg.RateLimit.Window},
		ratelimit.ClassFetch:  {Limit: cfg.RateLimit.FetchPerWindow, Window: cfg.RateLimit.Window},
	}, ratelimit.WithAdmitHook(func(class ratelimit.Class, _ time.Time, waited time.Duration) {
		metrics.RateLimitWait.WithLabelValues(string(class)).Observe(waited.Seconds())
	}))
	if err != nil {
		logger.Fatal("failed to create rate limiter", zap.Error(err))
	}

	// =========
	// HTTP
	// =========
	searchFetcher, err := crawler.NewCollyFetcher(fetcherConfig(cfg, cfg.Search.Timeout), logger)
	if err != nil {
		logger.Fatal("failed to create search fetcher", zap.Error(err))
	}

	var opts []gateway.Option
	switch cfg.Fetch.Backend {
	case "browser":
		opts = append(opts, gateway.WithPageFetcher(
			crawler.NewBrowserFetcher(fetcherConfig(cfg, cfg.Fetch.Timeout), logger)))
	default:
		pageCfg := fetcherConfig(cfg, cfg.Fetch.Timeout)
		pageCfg.DenyPrivateNetworks = !cfg.Fetch.AllowPrivateNetworks
		pageFetcher, err := crawler.NewCollyFetcher(pageCfg, logger)
		if err != nil {
			logger.Fatal("failed to create page fetcher", zap.Error(err))
		}
		opts = append(opts, gateway.WithPageFetcher(pageFetcher))
	}

	// =========
	// Parsing
	// =========
	parser, err := search.NewResultParser(parserConfig(cfg.Search))
	if err != nil {
		logger.Fatal("failed to create result parser", zap.Error(err))
	}

	mode, err := crawler.ParseMode(cfg.Fetch.ExtractMode)
	if err != nil {
		logger.Fatal("invalid extract mode", zap.Error(err))
	}
	extractor := crawler.NewContentExtractor(crawler.ExtractorConfig{
		Mode:             mode,
		MaxChars:         cfg.Fetch.MaxChars,
		TruncationMarker: cfg.Fetch.TruncationMarker,
	}, logger)

	// =========
	// Gateway
	// =========
	gw, err := gateway.New(gateway.Config{
		SearchURL:            cfg.Search.URL,
		Region:               cfg.Search.Region,
		AllowPrivateNetworks: cfg.Fetch.AllowPrivateNetworks,
	}, limiter, searchFetcher, parser, extractor, logger, opts...)
	if err != nil {
		logger.Fatal("failed to create gateway", zap.Error(err))
	}

	// =========
	// Server
	// =========
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(cfg.Addr(), gw, version, logger)
	logger.Info("starting searchgate",
		zap.String("addr", cfg.Addr()),
		zap.String("fetch_backend", cfg.Fetch.Backend),
		zap.String("extract_mode", string(mode)))
	if err := server.Start(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
	logger.Info("server stopped")
}

func fetcherConfig(cfg *config.Config, timeout time.Duration) *crawler.FetcherConfig {
	fc := crawler.DefaultConfig()
	fc.UserAgent = cfg.HTTP.UserAgent
	fc.ProxyURL = cfg.HTTP.ProxyURL
	fc.RequestTimeout = timeout
	fc.MaxBodyBytes = cfg.Fetch.MaxBodyBytes
	return fc
}

// parserConfig resolves relative result links against the configured
// provider URL rather than the built-in one.
func parserConfig(sc config.SearchConfig) search.ParserConfig {
	pc := search.DefaultParserConfig()
	if sc.URL != "" {
		pc.BaseURL = sc.URL
	}
	pc.AdClasses = sc.AdClasses
	pc.AdURLMarkers = sc.AdURLMarkers
	pc.RedirectParam = sc.RedirectParam
	return pc
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	zc := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
