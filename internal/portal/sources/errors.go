package sources

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"dataportal/internal/portal/models"
)

// ErrorCategory classifies adapter failures so callers can react without
// parsing messages.
type ErrorCategory string

const (
	// ErrorConfiguration means a required setting is absent; raised before any
	// network or database call.
	ErrorConfiguration ErrorCategory = "configuration"

	// ErrorAuth means the token exchange returned no access token.
	ErrorAuth ErrorCategory = "auth"

	// ErrorSource means the backend answered with a non-success status, an
	// unreadable payload, or the transport or driver failed.
	ErrorSource ErrorCategory = "source"

	// ErrorTimeout is a source failure caused by the request deadline.
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorExtraction marks a value that could not be read from a response.
	// Adapters degrade these to defaults instead of returning them.
	ErrorExtraction ErrorCategory = "extraction"
)

// MaxBodyExcerpt bounds the response body carried in a status error.
const MaxBodyExcerpt = 500

// Error is the structured failure returned by every source adapter.
type Error struct {
	Category   ErrorCategory
	Source     models.SourceName
	Message    string
	StatusCode int
	Underlying error
}

// Error renders the message shown to users; the source name is prefixed by
// the aggregator.
func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Underlying)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Underlying
}

// Configuration reports a missing setting.
func Configuration(source models.SourceName, message string) *Error {
	return &Error{Category: ErrorConfiguration, Source: source, Message: message}
}

// Auth reports a failed token exchange.
func Auth(source models.SourceName, message string) *Error {
	return &Error{Category: ErrorAuth, Source: source, Message: message}
}

// Status reports a non-success HTTP response. prefix names the failing call,
// e.g. "DataHub search failed".
func Status(source models.SourceName, prefix string, status int, body []byte) *Error {
	return &Error{
		Category:   ErrorSource,
		Source:     source,
		Message:    fmt.Sprintf("%s: %d %s", prefix, status, Truncate(string(body), MaxBodyExcerpt)),
		StatusCode: status,
	}
}

// Transport classifies a failed request or query, separating deadline
// expiry from other failures.
func Transport(ctx context.Context, source models.SourceName, message string, err error) *Error {
	category := ErrorSource
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		category = ErrorTimeout
		message += " (timeout)"
	}
	return &Error{Category: category, Source: source, Message: message, Underlying: err}
}

// Malformed reports a payload that could not be decoded.
func Malformed(source models.SourceName, message string, err error) *Error {
	return &Error{Category: ErrorSource, Source: source, Message: message, Underlying: err}
}

// Extraction reports a single unreadable value.
func Extraction(source models.SourceName, message string) *Error {
	return &Error{Category: ErrorExtraction, Source: source, Message: message}
}

// CategoryOf extracts the category of err, or "" when err is not an *Error.
func CategoryOf(err error) ErrorCategory {
	var se *Error
	if errors.As(err, &se) {
		return se.Category
	}
	return ""
}

func IsConfiguration(err error) bool { return CategoryOf(err) == ErrorConfiguration }

func IsAuth(err error) bool { return CategoryOf(err) == ErrorAuth }

// IsSource reports backend failures, timeouts included.
func IsSource(err error) bool {
	c := CategoryOf(err)
	return c == ErrorSource || c == ErrorTimeout
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// HTTPDoer is the minimal interface needed from an HTTP client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}
