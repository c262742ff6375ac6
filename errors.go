package defensio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a category of error for metrics and logging.
type ErrorCode string

// Error codes for categorization.
const (
	ErrCodeConfig       ErrorCode = "CONFIG"        // Configuration errors
	ErrCodeValidation   ErrorCode = "VALIDATION"    // Request argument errors
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT" // Unsupported callback input
	ErrCodeDecode       ErrorCode = "DECODE"        // Malformed payloads
	ErrCodeFormat       ErrorCode = "FORMAT"        // Unsupported serialization format
	ErrCodeAPI          ErrorCode = "API"           // Non-2xx responses
	ErrCodeNetwork      ErrorCode = "NETWORK"       // Transport failures
)

// DefensioError is the common interface of the typed errors in this package.
//
//	var derr defensio.DefensioError
//	if errors.As(err, &derr) {
//	    log.Printf("defensio error %s (retryable=%v)", derr.Code(), derr.IsRetryable())
//	}
type DefensioError interface {
	error

	// Code returns a machine-readable error category.
	Code() ErrorCode

	// IsRetryable reports whether repeating the call could succeed.
	// The client itself never retries.
	IsRetryable() bool
}

// Sentinel errors.
var (
	ErrMissingAPIKey    = errors.New("defensio: API key is required")
	ErrMissingBaseURL   = errors.New("defensio: base URL is required")
	ErrNilConfig        = errors.New("defensio: config cannot be nil")
	ErrMissingRootNode  = fmt.Errorf("defensio: payload has no %q root node", RootNode)
	ErrDuplicateParam   = errors.New("defensio: duplicate parameter name")
	ErrUnsupportedParam = errors.New("defensio: unsupported parameter")
)

// Sentinel APIError values for use with errors.Is. They match on status code.
var (
	ErrNotFound     = &APIError{StatusCode: http.StatusNotFound}
	ErrUnauthorized = &APIError{StatusCode: http.StatusUnauthorized}
	ErrForbidden    = &APIError{StatusCode: http.StatusForbidden}
	ErrRateLimited  = &APIError{StatusCode: http.StatusTooManyRequests}
)

// InvalidInputError is returned when a callback decoder receives a value it
// cannot read a payload from.
type InvalidInputError struct {
	// Type is the dynamic type of the rejected input.
	Type string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("defensio: unsupported callback input of type %s", e.Type)
}

// Code implements DefensioError.
func (e *InvalidInputError) Code() ErrorCode { return ErrCodeInvalidInput }

// IsRetryable implements DefensioError.
func (e *InvalidInputError) IsRetryable() bool { return false }

// previewLimit bounds the payload excerpt in DecodeError messages.
const previewLimit = 256

// DecodeError is returned when a payload cannot be parsed in the configured
// format or does not carry the envelope root node.
type DecodeError struct {
	Format  Format
	Payload []byte
	Err     error
}

func (e *DecodeError) Error() string {
	preview := string(e.Payload)
	if len(preview) > previewLimit {
		preview = preview[:previewLimit] + "..."
	}
	return fmt.Sprintf("defensio: cannot decode %s payload: %v (payload: %q)", e.Format, e.Err, preview)
}

// Unwrap returns the underlying parse error.
func (e *DecodeError) Unwrap() error { return e.Err }

// Code implements DefensioError.
func (e *DecodeError) Code() ErrorCode { return ErrCodeDecode }

// IsRetryable implements DefensioError.
func (e *DecodeError) IsRetryable() bool { return false }

// FormatError is returned when the configured serialization format has no
// decoder.
type FormatError struct {
	Format string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("defensio: unsupported format %q", e.Format)
}

// Code implements DefensioError.
func (e *FormatError) Code() ErrorCode { return ErrCodeFormat }

// IsRetryable implements DefensioError.
func (e *FormatError) IsRetryable() bool { return false }

// APIError is returned for a non-2xx response whose body could not be
// decoded. Non-2xx responses with a well-formed body are returned to the
// caller as ordinary results alongside their status code.
type APIError struct {
	StatusCode int
	Body       []byte
	RequestID  string
	Err        error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("defensio: API error (status %d", e.StatusCode)
	if e.RequestID != "" {
		msg += ", request " + e.RequestID
	}
	msg += ")"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the decode failure, if any.
func (e *APIError) Unwrap() error { return e.Err }

// Is matches APIError targets on status code:
//
//	if errors.Is(err, defensio.ErrUnauthorized) { ... }
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.StatusCode == t.StatusCode
}

// Code implements DefensioError.
func (e *APIError) Code() ErrorCode { return ErrCodeAPI }

// IsRetryable reports true for rate limiting and server errors.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || (e.StatusCode >= 500 && e.StatusCode < 600)
}

// ValidationError reports an invalid argument caught before any request is
// sent.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("defensio: validation error for field %q: %s", e.Field, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ValidationError) Unwrap() error { return e.Err }

// Code implements DefensioError.
func (e *ValidationError) Code() ErrorCode { return ErrCodeValidation }

// IsRetryable implements DefensioError.
func (e *ValidationError) IsRetryable() bool { return false }

// NetworkError wraps a failure of the HTTP transport. No status code was
// received.
type NetworkError struct {
	RequestID string
	Err       error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("defensio: request failed (request_id=%s): %v", e.RequestID, e.Err)
}

// Unwrap returns the transport error.
func (e *NetworkError) Unwrap() error { return e.Err }

// Code implements DefensioError.
func (e *NetworkError) Code() ErrorCode { return ErrCodeNetwork }

// IsRetryable reports true unless the context was canceled or expired.
func (e *NetworkError) IsRetryable() bool {
	return !errors.Is(e.Err, context.Canceled) && !errors.Is(e.Err, context.DeadlineExceeded)
}

var (
	_ DefensioError = (*InvalidInputError)(nil)
	_ DefensioError = (*NetworkError)(nil)
	_ DefensioError = (*DecodeError)(nil)
	_ DefensioError = (*FormatError)(nil)
	_ DefensioError = (*APIError)(nil)
	_ DefensioError = (*ValidationError)(nil)
)

// IsRetryable reports whether err carries a retryable DefensioError.
func IsRetryable(err error) bool {
	var derr DefensioError
	if errors.As(err, &derr) {
		return derr.IsRetryable()
	}
	return false
}

// AsAPIError extracts an APIError from the error chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// AsDecodeError extracts a DecodeError from the error chain.
func AsDecodeError(err error) (*DecodeError, bool) {
	var decErr *DecodeError
	if errors.As(err, &decErr) {
		return decErr, true
	}
	return nil, false
}
