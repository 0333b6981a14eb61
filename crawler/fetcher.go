package crawler

import (
	"context"
	"fmt"
	"net/http"
)

type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeTimeout
	OutcomeNetworkError
	OutcomeHTTPError
	// OutcomeUnsupportedContent means the response headers announced a body
	// the request's Accept filter refused; the body was not downloaded.
	OutcomeUnsupportedContent
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeNetworkError:
		return "network_error"
	case OutcomeHTTPError:
		return "http_error"
	case OutcomeUnsupportedContent:
		return "unsupported_content"
	default:
		return fmt.Sprintf("outcome(%d)", int(k))
	}
}

type Request struct {
	Method string
	URL    string
	// Form is posted as application/x-www-form-urlencoded when Method is POST.
	Form map[string]string
	// Accept filters responses by content type before the body is read. Nil accepts all.
	Accept func(contentType string) bool
}

// Outcome is the tagged result of one outbound call. Only the fields
// relevant to Kind are set.
type Outcome struct {
	Kind        OutcomeKind
	Status      int
	Body        []byte
	ContentType string
	FinalURL    string
	Err         error
}

func (o Outcome) OK() bool { return o.Kind == OutcomeSuccess }

// Detail describes a failed outcome for logs and error messages.
func (o Outcome) Detail() string {
	switch o.Kind {
	case OutcomeSuccess:
		return fmt.Sprintf("status %d", o.Status)
	case OutcomeHTTPError:
		return fmt.Sprintf("HTTP %d %s", o.Status, http.StatusText(o.Status))
	case OutcomeUnsupportedContent:
		return fmt.Sprintf("content type %q", o.ContentType)
	case OutcomeTimeout:
		if o.Err != nil {
			return "request timed out: " + o.Err.Error()
		}
		return "request timed out"
	default:
		if o.Err != nil {
			return o.Err.Error()
		}
		return o.Kind.String()
	}
}

// Fetcher performs a single outbound call. Implementations never retry.
type Fetcher interface {
	Do(ctx context.Context, req Request) Outcome
}
