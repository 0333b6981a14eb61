package crawler

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

type Mode string

const (
	ModeText        Mode = "text"
	ModeReadability Mode = "readability"
	ModeTrafilatura Mode = "trafilatura"
	ModeMarkdown    Mode = "markdown"
	// ModePlain is reported for bodies that were not HTML.
	ModePlain Mode = "plain"
)

const (
	DefaultMaxChars         = 8000
	DefaultTruncationMarker = "... [content truncated]"
)

func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeText, nil
	case ModeText, ModeReadability, ModeTrafilatura, ModeMarkdown:
		return m, nil
	default:
		return "", fmt.Errorf("unknown extract mode %q", s)
	}
}

// noiseSelector matches elements that never carry page content.
const noiseSelector = "script, style, noscript, template, iframe, object, embed, svg, canvas, " +
	"nav, header, footer, aside, form, button, select, textarea, dialog, " +
	"[role='navigation'], [role='banner'], [role='contentinfo'], [role='complementary'], " +
	"[aria-hidden='true'], [hidden], " +
	".ad, .ads, .advert, .advertisement, .ad-container, .ad-slot, .ad-banner, .adsbygoogle, " +
	".sponsored, .sponsor, [id^='ad-'], [id^='google_ads'], [data-ad], [data-ad-slot], " +
	".cookie-banner, .cookie-consent"

type ExtractorConfig struct {
	Mode             Mode
	MaxChars         int
	TruncationMarker string
}

type Extraction struct {
	Text      string
	Truncated bool
	// Length is the rune count before truncation.
	Length int
	Mode   Mode
}

// ContentExtractor turns a fetched page into cleaned, truncated plain text.
type ContentExtractor struct {
	mode     Mode
	maxChars int
	marker   string
	logger   *zap.Logger
}

func NewContentExtractor(cfg ExtractorConfig, logger *zap.Logger) *ContentExtractor {
	if cfg.Mode == "" {
		cfg.Mode = ModeText
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultMaxChars
	}
	if cfg.TruncationMarker == "" {
		cfg.TruncationMarker = DefaultTruncationMarker
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContentExtractor{
		mode:     cfg.Mode,
		maxChars: cfg.MaxChars,
		marker:   cfg.TruncationMarker,
		logger:   logger,
	}
}

// Extract cleans body according to its content type and the configured
// mode, then applies the character budget. Non-default modes fall back to
// the block walk when they fail or produce nothing.
func (ce *ContentExtractor) Extract(body []byte, contentType string, pageURL *url.URL) (*Extraction, error) {
	var (
		text string
		mode = ce.mode
		err  error
	)

	if !IsHTMLContent(contentType) {
		mode = ModePlain
		text = normalizeBlocks(string(body))
	} else {
		switch ce.mode {
		case ModeReadability:
			text, err = ce.extractReadability(body, pageURL)
		case ModeTrafilatura:
			text, err = ce.extractTrafilatura(body, pageURL)
		case ModeMarkdown:
			text, err = ce.extractMarkdown(body)
		}
		if ce.mode != ModeText && (err != nil || text == "") {
			ce.logger.Debug("extract_mode_fallback",
				zap.String("mode", string(ce.mode)),
				zap.Error(err))
			mode = ModeText
		}
		if mode == ModeText {
			text, err = ce.ExtractText(body)
			if err != nil {
				return nil, err
			}
		}
	}

	length := utf8.RuneCountInString(text)
	text, truncated := Truncate(text, ce.maxChars, ce.marker)

	return &Extraction{
		Text:      text,
		Truncated: truncated,
		Length:    length,
		Mode:      mode,
	}, nil
}

// ExtractText removes non-content elements and returns the remaining text
// as whitespace-collapsed blocks separated by single blank lines.
func (ce *ContentExtractor) ExtractText(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}

	doc.Find(noiseSelector).Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	var bw blockWriter
	for _, n := range root.Nodes {
		bw.walk(n)
	}
	bw.flush()

	return strings.Join(bw.blocks, "\n\n"), nil
}

type blockWriter struct {
	blocks []string
	cur    strings.Builder
}

func (bw *blockWriter) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		bw.cur.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Br, atom.Td, atom.Th:
			bw.cur.WriteByte(' ')
		}
	}

	block := n.Type == html.ElementNode && isBlockElement(n.DataAtom)
	if block {
		bw.flush()
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		bw.walk(c)
	}
	if block {
		bw.flush()
	}
}

func (bw *blockWriter) flush() {
	text := strings.Join(strings.Fields(bw.cur.String()), " ")
	bw.cur.Reset()
	if text != "" {
		bw.blocks = append(bw.blocks, text)
	}
}

func isBlockElement(a atom.Atom) bool {
	switch a {
	case atom.Address, atom.Article, atom.Blockquote, atom.Body, atom.Caption,
		atom.Dd, atom.Details, atom.Div, atom.Dl, atom.Dt, atom.Fieldset,
		atom.Figcaption, atom.Figure, atom.H1, atom.H2, atom.H3, atom.H4,
		atom.H5, atom.H6, atom.Hr, atom.Li, atom.Main, atom.Ol, atom.P,
		atom.Pre, atom.Section, atom.Summary, atom.Table, atom.Tr, atom.Ul:
		return true
	}
	return false
}

// normalizeBlocks collapses whitespace in each line and joins non-empty
// lines with single blank lines.
func normalizeBlocks(text string) string {
	var blocks []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			blocks = append(blocks, line)
		}
	}
	return strings.Join(blocks, "\n\n")
}

// Truncate cuts text to at most maxChars runes and appends marker when it
// had to cut. The kept part is always a prefix of text.
func Truncate(text string, maxChars int, marker string) (string, bool) {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return text, false
	}
	n := 0
	for i := range text {
		if n == maxChars {
			return text[:i] + marker, true
		}
		n++
	}
	return text, false
}
