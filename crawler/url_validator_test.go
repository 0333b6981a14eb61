package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestURLValidator_Validate(t *testing.T) {
	testCases := []struct {
		name         string
		url          string
		allowPrivate bool
		wantErr      error
	}{
		{name: "https", url: "https://example.com/page"},
		{name: "http with port", url: "http://example.com:8080/a?b=c"},
		{name: "upper case scheme", url: "HTTPS://example.com"},
		{name: "ftp", url: "ftp://example.com", wantErr: ErrUnsupportedScheme},
		{name: "file", url: "file:///etc/passwd", wantErr: ErrUnsupportedScheme},
		{name: "relative", url: "/just/a/path", wantErr: ErrUnsupportedScheme},
		{name: "missing host", url: "https:///path", wantErr: ErrMissingHost},
		{name: "loopback", url: "http://127.0.0.1:8080/", wantErr: ErrPrivateAddress},
		{name: "localhost", url: "http://localhost/", wantErr: ErrPrivateAddress},
		{name: "private range", url: "http://10.1.2.3/", wantErr: ErrPrivateAddress},
		{name: "link local", url: "http://169.254.169.254/latest/meta-data", wantErr: ErrPrivateAddress},
		{name: "ipv6 loopback", url: "http://[::1]/", wantErr: ErrPrivateAddress},
		{name: "loopback allowed", url: "http://127.0.0.1:8080/", allowPrivate: true},
		{name: "short loopback", url: "http://127.1:8080/", wantErr: ErrPrivateAddress},
		{name: "decimal loopback", url: "http://2130706433/", wantErr: ErrPrivateAddress},
		{name: "hex loopback", url: "http://0x7f.1/", wantErr: ErrPrivateAddress},
		{name: "octal loopback", url: "http://0177.0.0.1/", wantErr: ErrPrivateAddress},
		{name: "short private", url: "http://10.1/", wantErr: ErrPrivateAddress},
		{name: "trailing dot", url: "http://127.0.0.1./", wantErr: ErrPrivateAddress},
		{name: "zero address", url: "http://0/", wantErr: ErrPrivateAddress},
		{name: "numeric public", url: "http://134744072/"},
		{name: "numeric-looking name", url: "http://1.example/"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			u, err := NewURLValidator(tc.allowPrivate).Validate(tc.url)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				assert.Nil(t, u)
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, u)
		})
	}
}

func TestParseIPv4Shorthand(t *testing.T) {
	testCases := []struct {
		host string
		want string
		ok   bool
	}{
		{host: "127.1", want: "127.0.0.1", ok: true},
		{host: "2130706433", want: "127.0.0.1", ok: true},
		{host: "0x7f.0x0.0x0.0x1", want: "127.0.0.1", ok: true},
		{host: "10.0.258", want: "10.0.1.2", ok: true},
		{host: "256.1", ok: false},
		{host: "1.2.3.4.5", ok: false},
		{host: "08.1", ok: false},
		{host: "example", ok: false},
		{host: "1_0.1", ok: false},
		{host: "", ok: false},
	}

	for _, tc := range testCases {
		t.Run(tc.host, func(t *testing.T) {
			addr, ok := parseIPv4Shorthand(tc.host)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.want, addr.String())
			}
		})
	}
}

func TestResolveContentType(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\xff\xfe")

	assert.Equal(t, "text/csv", ResolveContentType("text/csv", png))
	assert.Equal(t, "image/png", ResolveContentType("", png))
	assert.Equal(t, "text/html; charset=utf-8", ResolveContentType("", []byte("<!DOCTYPE html><html><body>hi</body></html>")))
	assert.Equal(t, "text/plain; charset=utf-8", ResolveContentType(" ", []byte("plain words")))
	assert.False(t, IsTextContent(ResolveContentType("", png)))
}

func TestIsTextContent(t *testing.T) {
	testCases := []struct {
		contentType string
		want        bool
	}{
		{contentType: "text/html; charset=utf-8", want: true},
		{contentType: "TEXT/PLAIN", want: true},
		{contentType: "application/xhtml+xml", want: true},
		{contentType: "application/json", want: true},
		{contentType: "application/rss+xml", want: true},
		{contentType: "", want: true},
		{contentType: "application/pdf", want: false},
		{contentType: "image/png", want: false},
		{contentType: "application/octet-stream", want: false},
		{contentType: "video/mp4", want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.contentType, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTextContent(tc.contentType))
		})
	}
}

func TestIsHTMLContent(t *testing.T) {
	assert.True(t, IsHTMLContent("text/html; charset=ISO-8859-1"))
	assert.True(t, IsHTMLContent(""))
	assert.True(t, IsHTMLContent("application/xhtml+xml"))
	assert.False(t, IsHTMLContent("text/plain"))
	assert.False(t, IsHTMLContent("application/json"))
}
