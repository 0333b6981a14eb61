package gateway

import (
	"errors"
	"fmt"
	"net/http"

	"searchgate/crawler"
)

// Code is the machine-recognizable kind of a gateway failure.
type Code string

const (
	CodeInvalidInput           Code = "INVALID_INPUT"
	CodeRateLimited            Code = "RATE_LIMITED"
	CodeSearchFailed           Code = "SEARCH_FAILED"
	CodeFetchFailed            Code = "FETCH_FAILED"
	CodeUnsupportedContentType Code = "UNSUPPORTED_CONTENT_TYPE"
	CodeInternal               Code = "INTERNAL"
)

// Cause narrows down why a SEARCH_FAILED or FETCH_FAILED happened.
type Cause string

const (
	CauseNone     Cause = ""
	CauseTimeout  Cause = "timeout"
	CauseNetwork  Cause = "network"
	CauseHTTP     Cause = "http"
	CauseParse    Cause = "parse"
	CauseCanceled Cause = "canceled"
)

type Error struct {
	Code      Code
	Op        string
	Message   string
	Cause     Cause
	Status    int
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s [%s]: %s: %v", e.Op, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Op, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf returns the Code carried by err, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Code
	}
	return CodeInternal
}

func IsCode(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// ErrorPrefix starts every rendered failure.
const ErrorPrefix = "Error ["

// Render encodes err as the single-line text returned to tool callers:
// "Error [CODE]: message".
func Render(err error) string {
	var gwErr *Error
	if !errors.As(err, &gwErr) {
		return fmt.Sprintf("%s%s]: an unexpected error occurred (%v)", ErrorPrefix, CodeInternal, err)
	}

	msg := gwErr.Message
	if gwErr.Err != nil && gwErr.Code != CodeRateLimited {
		msg = fmt.Sprintf("%s (%v)", msg, gwErr.Err)
	}
	if gwErr.Retryable {
		msg += ". This is a transient failure; retrying later may succeed"
	}
	return fmt.Sprintf("%s%s]: %s", ErrorPrefix, gwErr.Code, msg)
}

func invalidInput(op string, err error) *Error {
	return &Error{
		Code:    CodeInvalidInput,
		Op:      op,
		Message: "invalid input",
		Err:     err,
	}
}

func failedCode(op string) Code {
	if op == opFetch {
		return CodeFetchFailed
	}
	return CodeSearchFailed
}

func canceled(op string, err error) *Error {
	return &Error{
		Code:      failedCode(op),
		Op:        op,
		Message:   "request was canceled while waiting for rate limit admission",
		Cause:     CauseCanceled,
		Retryable: true,
		Err:       err,
	}
}

// outcomeError converts a non-successful outbound outcome into a gateway
// error. It returns nil for successful outcomes.
func outcomeError(op string, out crawler.Outcome) *Error {
	switch out.Kind {
	case crawler.OutcomeSuccess:
		return nil
	case crawler.OutcomeHTTPError:
		if out.Status == http.StatusTooManyRequests {
			target := "the search provider"
			if op == opFetch {
				target = "the target site"
			}
			return &Error{
				Code:      CodeRateLimited,
				Op:        op,
				Message:   fmt.Sprintf("%s is throttling requests (HTTP %d); wait before retrying", target, out.Status),
				Status:    out.Status,
				Retryable: true,
			}
		}
		return &Error{
			Code:      failedCode(op),
			Op:        op,
			Message:   fmt.Sprintf("remote server answered %s", out.Detail()),
			Cause:     CauseHTTP,
			Status:    out.Status,
			Retryable: out.Status >= http.StatusInternalServerError,
		}
	case crawler.OutcomeTimeout:
		return &Error{
			Code:      failedCode(op),
			Op:        op,
			Message:   "the request timed out",
			Cause:     CauseTimeout,
			Retryable: true,
			Err:       out.Err,
		}
	case crawler.OutcomeUnsupportedContent:
		return unsupportedContent(op, out.ContentType)
	default:
		return &Error{
			Code:      failedCode(op),
			Op:        op,
			Message:   "a network error occurred",
			Cause:     CauseNetwork,
			Retryable: true,
			Err:       out.Err,
		}
	}
}

func unsupportedContent(op, contentType string) *Error {
	return &Error{
		Code:    CodeUnsupportedContentType,
		Op:      op,
		Message: fmt.Sprintf("content type %q is not text and cannot be extracted", crawler.MediaType(contentType)),
	}
}
