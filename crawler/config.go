package crawler

import (
	"time"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type FetcherConfig struct {
	UserAgent      string
	RequestTimeout time.Duration
	MaxBodyBytes   int
	// ProxyURL accepts http(s):// or socks5:// addresses. Empty means direct.
	ProxyURL string
	Headers  map[string]string
	// DenyPrivateNetworks refuses redirects to internal hosts and, for direct
	// connections, any dial to a loopback, private or link-local IP.
	DenyPrivateNetworks bool
}

// DefaultConfig returns a fetcher configuration with a realistic browser
// header set and a 30 second timeout.
func DefaultConfig() *FetcherConfig {
	return &FetcherConfig{
		UserAgent:      DefaultUserAgent,
		RequestTimeout: 30 * time.Second,
		MaxBodyBytes:   10 * 1024 * 1024,
		Headers:        BrowserHeaders(),
	}
}

// BrowserHeaders is sent with every outbound request in addition to the user agent.
func BrowserHeaders() map[string]string {
	return map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.9",
		"DNT":                       "1",
		"Upgrade-Insecure-Requests": "1",
	}
}
