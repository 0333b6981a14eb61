package search

import (
	"fmt"
	"strings"
)

const NoResultsMessage = "No results were found for your search query. This could be due to bot detection " +
	"on the provider side or the query returned no matches. Please try rephrasing your search or try again in a few minutes."

// FormatResults renders results as a 1-indexed listing in the given order.
func FormatResults(results []SearchResult) string {
	if len(results) == 0 {
		return NoResultsMessage
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d search results:\n\n", len(results))
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d. %s\n   URL: %s\n   %s\n", i+1, r.Title, r.URL, r.Snippet)
	}
	return b.String()
}
