package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "SEARCHGATE_"

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Search    SearchConfig    `yaml:"search"`
	Fetch     FetchConfig     `yaml:"fetch"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	HTTP      HTTPConfig      `yaml:"http"`
	Log       LogConfig       `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type SearchConfig struct {
	URL           string        `yaml:"url"`
	Region        string        `yaml:"region"`
	Timeout       time.Duration `yaml:"timeout"`
	AdClasses     []string      `yaml:"ad_classes"`
	AdURLMarkers  []string      `yaml:"ad_url_markers"`
	RedirectParam string        `yaml:"redirect_param"`
}

type FetchConfig struct {
	Timeout              time.Duration `yaml:"timeout"`
	MaxChars             int           `yaml:"max_chars"`
	TruncationMarker     string        `yaml:"truncation_marker"`
	MaxBodyBytes         int           `yaml:"max_body_bytes"`
	ExtractMode          string        `yaml:"extract_mode"` // text, readability, trafilatura, markdown
	Backend              string        `yaml:"backend"`      // http or browser
	AllowPrivateNetworks bool          `yaml:"allow_private_networks"`
}

type RateLimitConfig struct {
	SearchPerWindow int           `yaml:"search_per_window"`
	FetchPerWindow  int           `yaml:"fetch_per_window"`
	Window          time.Duration `yaml:"window"`
}

type HTTPConfig struct {
	UserAgent string `yaml:"user_agent"`
	ProxyURL  string `yaml:"proxy_url"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Search: SearchConfig{
			URL:           "https://html.duckduckgo.com/html",
			Timeout:       30 * time.Second,
			AdClasses:     []string{"result--ad", "result--ad--small", "badge--ad"},
			AdURLMarkers:  []string{"/y.js", "ad_provider=", "ad_domain="},
			RedirectParam: "uddg",
		},
		Fetch: FetchConfig{
			Timeout:          30 * time.Second,
			MaxChars:         8000,
			TruncationMarker: "... [content truncated]",
			MaxBodyBytes:     10 * 1024 * 1024,
			ExtractMode:      "text",
			Backend:          "http",
		},
		RateLimit: RateLimitConfig{
			SearchPerWindow: 30,
			FetchPerWindow:  20,
			Window:          time.Minute,
		},
		HTTP: HTTPConfig{
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, a
// .env file and SEARCHGATE_* environment variables, in that order.
// An empty path falls back to SEARCHGATE_CONFIG.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv(envPrefix + "CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the gateway cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port))
	}
	if c.Search.URL == "" {
		errs = append(errs, errors.New("search.url must not be empty"))
	}
	if c.Search.Timeout <= 0 || c.Fetch.Timeout <= 0 {
		errs = append(errs, errors.New("search.timeout and fetch.timeout must be positive"))
	}
	if c.Fetch.MaxChars <= 0 {
		errs = append(errs, fmt.Errorf("fetch.max_chars must be positive, got %d", c.Fetch.MaxChars))
	}
	if !slices.Contains([]string{"text", "readability", "trafilatura", "markdown"}, c.Fetch.ExtractMode) {
		errs = append(errs, fmt.Errorf("unknown fetch.extract_mode %q", c.Fetch.ExtractMode))
	}
	if c.Fetch.Backend != "http" && c.Fetch.Backend != "browser" {
		errs = append(errs, fmt.Errorf("unknown fetch.backend %q", c.Fetch.Backend))
	}
	if c.RateLimit.SearchPerWindow <= 0 || c.RateLimit.FetchPerWindow <= 0 || c.RateLimit.Window <= 0 {
		errs = append(errs, errors.New("rate_limit ceilings and window must be positive"))
	}
	return errors.Join(errs...)
}

// Addr returns the listen address for the server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func applyEnv(cfg *Config) error {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	envString("HOST", &cfg.Server.Host)
	collect(envInt("PORT", &cfg.Server.Port))

	envString("SEARCH_URL", &cfg.Search.URL)
	envString("SEARCH_REGION", &cfg.Search.Region)
	collect(envDuration("SEARCH_TIMEOUT", &cfg.Search.Timeout))
	envList("AD_CLASSES", &cfg.Search.AdClasses)
	envList("AD_URL_MARKERS", &cfg.Search.AdURLMarkers)
	envString("REDIRECT_PARAM", &cfg.Search.RedirectParam)

	collect(envDuration("FETCH_TIMEOUT", &cfg.Fetch.Timeout))
	collect(envInt("MAX_CHARS", &cfg.Fetch.MaxChars))
	envString("TRUNCATION_MARKER", &cfg.Fetch.TruncationMarker)
	collect(envInt("MAX_BODY_BYTES", &cfg.Fetch.MaxBodyBytes))
	envString("EXTRACT_MODE", &cfg.Fetch.ExtractMode)
	envString("FETCH_BACKEND", &cfg.Fetch.Backend)
	collect(envBool("ALLOW_PRIVATE_NETWORKS", &cfg.Fetch.AllowPrivateNetworks))

	collect(envInt("SEARCH_RATE_LIMIT", &cfg.RateLimit.SearchPerWindow))
	collect(envInt("FETCH_RATE_LIMIT", &cfg.RateLimit.FetchPerWindow))
	collect(envDuration("RATE_WINDOW", &cfg.RateLimit.Window))

	envString("USER_AGENT", &cfg.HTTP.UserAgent)
	envString("PROXY_URL", &cfg.HTTP.ProxyURL)

	envString("LOG_LEVEL", &cfg.Log.Level)
	envString("LOG_FORMAT", &cfg.Log.Format)

	return errors.Join(errs...)
}

func getEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func envString(key string, dst *string) {
	if v, ok := getEnv(key); ok {
		*dst = v
	}
}

func envList(key string, dst *[]string) {
	v, ok := getEnv(key)
	if !ok {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}

func envInt(key string, dst *int) error {
	v, ok := getEnv(key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*dst = n
	return nil
}

func envBool(key string, dst *bool) error {
	v, ok := getEnv(key)
	if !ok {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*dst = b
	return nil
}

func envDuration(key string, dst *time.Duration) error {
	v, ok := getEnv(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	*dst = d
	return nil
}
