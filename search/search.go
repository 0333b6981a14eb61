package search

import (
	"errors"
	"strings"
)

var (
	ErrEmptyQuery        = errors.New("search query must not be empty")
	ErrInvalidMaxResults = errors.New("max_results must be a positive integer")
)

// DefaultMaxResults applies when a caller leaves max_results unset.
const DefaultMaxResults = 10

type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

type SearchRequest struct {
	Query      string `json:"query"`
	MaxResults int    `json:"max_results,omitempty"`
	Region     string `json:"region,omitempty"`
}

// Normalize trims the query and fills in the default result count. A zero
// MaxResults means "unset"; negative values are rejected.
func (r *SearchRequest) Normalize() error {
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return ErrEmptyQuery
	}
	if r.MaxResults < 0 {
		return ErrInvalidMaxResults
	}
	if r.MaxResults == 0 {
		r.MaxResults = DefaultMaxResults
	}
	return nil
}

// Form returns the fields posted to the HTML results endpoint.
func (r *SearchRequest) Form() map[string]string {
	return map[string]string{
		"q":  r.Query,
		"b":  "",
		"kl": r.Region,
	}
}
