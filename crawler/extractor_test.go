package crawler

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const articlePage = `<!DOCTYPE html>
<html>
<head><title>Article</title><style>body { color: red; }</style><script>var tracking = 1;</script></head>
<body>
  <header><a href="/">Home</a> <a href="/about">About</a></header>
  <nav><ul><li>Menu item</li></ul></nav>
  <main>
    <h1>  Rate   limiting
      explained </h1>
    <p>A limiter keeps a <em>rolling</em> window
       of timestamps.</p>
    <div class="ad">Buy our product</div>
    <div id="ad-top">Another ad</div>
    <ul><li>First point</li><li>Second point</li></ul>
    <table><tr><td>cell a</td><td>cell b</td></tr></table>
    <form><input name="q"><button>Search</button></form>
    <noscript>Enable JavaScript</noscript>
  </main>
  <aside>Related links</aside>
  <footer>Copyright</footer>
</body>
</html>`

func TestExtractText_RemovesNoiseAndJoinsBlocks(t *testing.T) {
	ce := NewContentExtractor(ExtractorConfig{}, zaptest.NewLogger(t))

	text, err := ce.ExtractText([]byte(articlePage))
	require.NoError(t, err)

	want := strings.Join([]string{
		"Rate limiting explained",
		"A limiter keeps a rolling window of timestamps.",
		"First point",
		"Second point",
		"cell a cell b",
	}, "\n\n")
	assert.Equal(t, want, text)

	for _, noise := range []string{"tracking", "color: red", "Home", "Menu item", "Buy our product",
		"Another ad", "Search", "Enable JavaScript", "Related links", "Copyright"} {
		assert.NotContains(t, text, noise)
	}
}

func TestExtractText_NoContent(t *testing.T) {
	ce := NewContentExtractor(ExtractorConfig{}, nil)

	text, err := ce.ExtractText([]byte(`<html><body><script>x()</script><nav>menu</nav></body></html>`))
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestExtract_TruncatesToPrefix(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 200; i++ {
		b.WriteString("<p>Grüße aus dem Rate-Limiter, Absatz mit etwas Text.</p>")
	}
	b.WriteString("</body></html>")

	full := NewContentExtractor(ExtractorConfig{MaxChars: 1 << 20}, nil)
	untruncated, err := full.Extract([]byte(b.String()), "text/html; charset=utf-8", nil)
	require.NoError(t, err)
	require.False(t, untruncated.Truncated)

	const budget = 500
	ce := NewContentExtractor(ExtractorConfig{MaxChars: budget}, nil)
	got, err := ce.Extract([]byte(b.String()), "text/html; charset=utf-8", nil)
	require.NoError(t, err)

	assert.True(t, got.Truncated)
	assert.Equal(t, ModeText, got.Mode)
	assert.Equal(t, untruncated.Length, got.Length)
	require.True(t, strings.HasSuffix(got.Text, DefaultTruncationMarker))

	kept := strings.TrimSuffix(got.Text, DefaultTruncationMarker)
	assert.Equal(t, budget, utf8.RuneCountInString(kept))
	assert.True(t, strings.HasPrefix(untruncated.Text, kept))
	assert.LessOrEqual(t, utf8.RuneCountInString(got.Text), budget+utf8.RuneCountInString(DefaultTruncationMarker))
}

func TestExtract_PlainText(t *testing.T) {
	ce := NewContentExtractor(ExtractorConfig{}, nil)

	got, err := ce.Extract([]byte("line one   with  spaces\n\n\n  line two\n"), "text/plain; charset=utf-8", nil)
	require.NoError(t, err)
	assert.Equal(t, ModePlain, got.Mode)
	assert.Equal(t, "line one with spaces\n\nline two", got.Text)
	assert.False(t, got.Truncated)
}

func TestExtract_MarkdownMode(t *testing.T) {
	ce := NewContentExtractor(ExtractorConfig{Mode: ModeMarkdown}, zaptest.NewLogger(t))

	got, err := ce.Extract([]byte(`<html><body><nav>menu</nav><h1>Title</h1><p>Body text</p></body></html>`), "text/html", nil)
	require.NoError(t, err)
	assert.Equal(t, ModeMarkdown, got.Mode)
	assert.Contains(t, got.Text, "# Title")
	assert.Contains(t, got.Text, "Body text")
	assert.NotContains(t, got.Text, "menu")
}

func TestTruncate(t *testing.T) {
	testCases := []struct {
		name          string
		text          string
		max           int
		want          string
		wantTruncated bool
	}{
		{name: "under budget", text: "hello", max: 10, want: "hello"},
		{name: "exactly budget", text: "hello", max: 5, want: "hello"},
		{name: "over budget", text: "hello world", max: 5, want: "hello[cut]", wantTruncated: true},
		{name: "multibyte runes", text: "日本語のテキスト", max: 3, want: "日本語[cut]", wantTruncated: true},
		{name: "no budget", text: "hello", max: 0, want: "hello"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, truncated := Truncate(tc.text, tc.max, "[cut]")
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.wantTruncated, truncated)
		})
	}
}

func TestParseMode(t *testing.T) {
	testCases := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "", want: ModeText},
		{in: "text", want: ModeText},
		{in: "Readability", want: ModeReadability},
		{in: " trafilatura ", want: ModeTrafilatura},
		{in: "markdown", want: ModeMarkdown},
		{in: "pdf", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseMode(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
