package crawler

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/markusmobius/go-trafilatura"
	"go.uber.org/zap"
)

var blankLines = regexp.MustCompile(`\n{3,}`)

func (ce *ContentExtractor) extractTrafilatura(body []byte, pageURL *url.URL) (string, error) {
	result, err := trafilatura.Extract(bytes.NewReader(body), trafilatura.Options{
		OriginalURL: pageURL,
	})
	if err != nil {
		ce.logger.Debug("trafilatura: extraction failed", zap.Error(err))
		return "", err
	}

	var text string
	if result.ContentNode != nil {
		var bw blockWriter
		bw.walk(result.ContentNode)
		bw.flush()
		text = strings.Join(bw.blocks, "\n\n")
	} else {
		text = normalizeBlocks(result.ContentText)
	}

	ce.logger.Debug("trafilatura_extraction_result",
		zap.String("title", result.Metadata.Title),
		zap.String("language", result.Metadata.Language),
		zap.Int("text_length", len(text)))

	return text, nil
}

// extractMarkdown converts the cleaned page to Markdown, keeping headings,
// lists and links readable for text consumers.
func (ce *ContentExtractor) extractMarkdown(body []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to parse page: %w", err)
	}
	doc.Find(noiseSelector).Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	cleaned, err := root.Html()
	if err != nil {
		return "", fmt.Errorf("failed to render cleaned page: %w", err)
	}

	md, err := htmltomarkdown.ConvertString(cleaned)
	if err != nil {
		ce.logger.Debug("markdown: conversion failed", zap.Error(err))
		return "", err
	}

	lines := strings.Split(md, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	md = blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(md), nil
}
