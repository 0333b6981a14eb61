package crawler

import (
	"bytes"
	"net/url"

	"github.com/go-shiori/go-readability"
	"go.uber.org/zap"
)

func (ce *ContentExtractor) extractReadability(body []byte, pageURL *url.URL) (string, error) {
	parser := readability.NewParser()
	article, err := parser.Parse(bytes.NewReader(body), pageURL)
	if err != nil {
		ce.logger.Debug("readability: extraction failed", zap.Error(err))
		return "", err
	}

	text := normalizeBlocks(article.TextContent)
	ce.logger.Debug("readability_extraction_result",
		zap.String("title", article.Title),
		zap.String("byline", article.Byline),
		zap.Int("text_length", len(text)))

	return text, nil
}
