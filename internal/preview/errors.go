package preview

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorType categorizes preview failures so callers can react without
// parsing messages.
type ErrorType string

const (
	ErrorTypeInvalidURL      ErrorType = "invalid_url"
	ErrorTypeTimeout         ErrorType = "timeout"
	ErrorTypeNetwork         ErrorType = "network"
	ErrorTypeUpstream        ErrorType = "upstream"
	ErrorTypeInvalidResponse ErrorType = "invalid_response"
	ErrorTypeCancelled       ErrorType = "cancelled"
	ErrorTypeBlocked         ErrorType = "blocked"
)

// Error is the only error type Service.Fetch returns.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// UserMessage is safe to show in the link editor.
func (e *Error) UserMessage() string {
	switch e.Type {
	case ErrorTypeTimeout:
		return "Request timeout - please try again"
	case ErrorTypeInvalidURL:
		return "Invalid URL format"
	case ErrorTypeBlocked:
		return "Previews are only available for public websites"
	case ErrorTypeNetwork:
		return "Could not reach the site. Please check the URL and try again."
	case ErrorTypeInvalidResponse:
		return "The preview service returned an unreadable response."
	case ErrorTypeCancelled:
		return "The preview request was cancelled."
	default:
		return e.Message
	}
}

// IsType reports whether err is a preview *Error of type t.
func IsType(err error, t ErrorType) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Type == t
}

func newInvalidURLError(message string, cause error) *Error {
	return &Error{Type: ErrorTypeInvalidURL, Message: message, Cause: cause}
}

func newTimeoutError(cause error) *Error {
	return &Error{Type: ErrorTypeTimeout, Message: "Request timeout - please try again", Cause: cause}
}

func newBlockedError(cause error) *Error {
	return &Error{Type: ErrorTypeBlocked, Message: "address is not public", Cause: cause}
}

func newUpstreamError(message string) *Error {
	return &Error{Type: ErrorTypeUpstream, Message: message}
}

func newInvalidResponseError(message string, cause error) *Error {
	return &Error{Type: ErrorTypeInvalidResponse, Message: message, Cause: cause}
}

// classifyTransport turns an error from http.Client.Do or a body read into
// a typed Error. ctx is the fetch context, checked first because the client
// reports a deadline in several different shapes.
func classifyTransport(ctx context.Context, err error) *Error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded), errors.Is(err, context.DeadlineExceeded):
		return newTimeoutError(err)
	case errors.Is(ctx.Err(), context.Canceled), errors.Is(err, context.Canceled):
		return &Error{Type: ErrorTypeCancelled, Message: "Request cancelled", Cause: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newTimeoutError(err)
	}
	return &Error{Type: ErrorTypeNetwork, Message: "Network error", Cause: err}
}
