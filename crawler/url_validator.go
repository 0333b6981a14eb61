package crawler

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/netip"
	"net/url"
	"slices"
	"strconv"
	"strings"
)

var (
	ErrUnsupportedScheme = errors.New("only http and https URLs are supported")
	ErrMissingHost       = errors.New("URL has no host")
	ErrPrivateAddress    = errors.New("URL points to a private or loopback address")
)

type URLValidator struct {
	allowedSchemes []string
	allowPrivate   bool
}

func NewURLValidator(allowPrivate bool) *URLValidator {
	return &URLValidator{
		allowedSchemes: []string{"http", "https"},
		allowPrivate:   allowPrivate,
	}
}

// Validate parses rawURL and checks it is an absolute web address the
// fetcher may contact. It never performs network I/O.
func (v *URLValidator) Validate(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("malformed URL: %w", err)
	}
	if !slices.Contains(v.allowedSchemes, strings.ToLower(u.Scheme)) {
		return nil, fmt.Errorf("%w: got scheme %q", ErrUnsupportedScheme, u.Scheme)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return nil, ErrMissingHost
	}
	if !v.allowPrivate && isPrivateHost(host) {
		return nil, fmt.Errorf("%w: %s", ErrPrivateAddress, host)
	}
	return u, nil
}

// isPrivateHost only inspects literal addresses and localhost names; names
// that resolve to private ranges are caught by the transport's dial guard.
func isPrivateHost(host string) bool {
	host = strings.TrimSuffix(host, ".")
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		var ok bool
		if addr, ok = parseIPv4Shorthand(host); !ok {
			return false
		}
	}
	return IsPrivateAddr(addr)
}

// IsPrivateAddr reports whether addr is loopback, private, link-local or
// unspecified.
func IsPrivateAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() || addr.IsUnspecified()
}

// parseIPv4Shorthand accepts the inet_aton forms resolvers still honour:
// "127.1", "2130706433", "0x7f.1", "0177.0.0.1".
func parseIPv4Shorthand(host string) (netip.Addr, bool) {
	parts := strings.Split(host, ".")
	if len(parts) > 4 {
		return netip.Addr{}, false
	}

	var v uint64
	for i, p := range parts {
		n, ok := parseIPv4Part(p)
		if !ok {
			return netip.Addr{}, false
		}
		if i < len(parts)-1 {
			if n > 0xff {
				return netip.Addr{}, false
			}
			v = v<<8 | n
			continue
		}
		rest := uint(8 * (4 - i))
		if n >= 1<<rest {
			return netip.Addr{}, false
		}
		v = v<<rest | n
	}
	return netip.AddrFrom4([4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}), true
}

func parseIPv4Part(p string) (uint64, bool) {
	base, digits := 10, p
	switch {
	case len(p) > 2 && (p[:2] == "0x" || p[:2] == "0X"):
		base, digits = 16, p[2:]
	case len(p) > 1 && p[0] == '0':
		base, digits = 8, p[1:]
	}
	if digits == "" || strings.ContainsAny(digits, "+-_") {
		return 0, false
	}
	n, err := strconv.ParseUint(digits, base, 32)
	return n, err == nil
}

// MediaType returns the lower-cased media type without parameters.
func MediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// ResolveContentType returns contentType, or the type sniffed from body when
// the server sent none.
func ResolveContentType(contentType string, body []byte) string {
	if strings.TrimSpace(contentType) != "" {
		return contentType
	}
	return http.DetectContentType(body)
}

// IsTextContent reports whether a response body of this type can be turned
// into text. A missing content type is accepted here; callers holding the body
// resolve it with ResolveContentType first.
func IsTextContent(contentType string) bool {
	mt := MediaType(contentType)
	switch {
	case mt == "":
		return true
	case strings.HasPrefix(mt, "text/"):
		return true
	case strings.HasSuffix(mt, "+xml"), strings.HasSuffix(mt, "+json"):
		return true
	}
	switch mt {
	case "application/xhtml+xml", "application/xml", "application/json",
		"application/javascript", "application/x-javascript", "application/ld+json":
		return true
	}
	return false
}

// IsHTMLContent reports whether the body should go through HTML extraction.
func IsHTMLContent(contentType string) bool {
	switch MediaType(contentType) {
	case "", "text/html", "application/xhtml+xml":
		return true
	}
	return false
}
