package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind is the category of a relay error. Kinds drive retry policy:
// only transient errors are ever retried.
type ErrorKind string

const (
	// KindTransient marks network and server-side failures that may
	// succeed on retry (connection errors, 5xx, 429).
	KindTransient ErrorKind = "transient"
	// KindMalformed marks a service payload missing required fields.
	// Retrying will not fix a schema mismatch, so it is never retried.
	KindMalformed ErrorKind = "malformed_response"
	// KindExhausted marks a retry budget spent without success.
	KindExhausted ErrorKind = "generation_exhausted"
	// KindRoundLimit marks a continuation loop that hit its round cap
	// while the service kept reporting truncation.
	KindRoundLimit ErrorKind = "continuation_limit"
	// KindInvalidRequest marks caller errors: bad parameters, unknown
	// roles, or a conversation with no user anchor.
	KindInvalidRequest ErrorKind = "invalid_request"
	// KindBlocked marks a prompt refused by the guardrail screener.
	KindBlocked ErrorKind = "blocked"
)

// RelayError is the canonical error for everything the relay surfaces.
type RelayError struct {
	// Kind is the category of error.
	Kind ErrorKind `json:"kind"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Param is the parameter that caused the error (if applicable).
	Param string `json:"param,omitempty"`

	// Attempts is the number of service calls made before giving up.
	// Only set for exhausted errors.
	Attempts int `json:"attempts,omitempty"`

	// StatusCode is the upstream HTTP status, when one was observed.
	StatusCode int `json:"-"`

	// Cause is the underlying error, if any.
	Cause error `json:"-"`
}

// Error implements the error interface.
func (e *RelayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *RelayError) Unwrap() error {
	return e.Cause
}

// WithParam records the offending parameter name.
func (e *RelayError) WithParam(param string) *RelayError {
	e.Param = param
	return e
}

// WithCause records the underlying error.
func (e *RelayError) WithCause(err error) *RelayError {
	e.Cause = err
	return e
}

// WithStatusCode records the upstream HTTP status.
func (e *RelayError) WithStatusCode(code int) *RelayError {
	e.StatusCode = code
	return e
}

// HTTPStatusCode returns the status code the relay should answer with
// when this error terminates a request.
func (e *RelayError) HTTPStatusCode() int {
	switch e.Kind {
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindBlocked:
		return http.StatusUnprocessableEntity
	case KindExhausted, KindTransient:
		return http.StatusBadGateway
	case KindRoundLimit:
		return http.StatusGatewayTimeout
	case KindMalformed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// ErrTransient creates a transient service error.
func ErrTransient(message string) *RelayError {
	return &RelayError{Kind: KindTransient, Message: message}
}

// ErrMalformed creates a malformed-response error.
func ErrMalformed(message string) *RelayError {
	return &RelayError{Kind: KindMalformed, Message: message}
}

// ErrExhausted creates a generation-exhausted error naming the number
// of attempts made.
func ErrExhausted(attempts int, cause error) *RelayError {
	return &RelayError{
		Kind:     KindExhausted,
		Message:  fmt.Sprintf("generation failed after %d attempts", attempts),
		Attempts: attempts,
		Cause:    cause,
	}
}

// ErrRoundLimit creates a continuation-limit error.
func ErrRoundLimit(rounds int) *RelayError {
	return &RelayError{
		Kind:    KindRoundLimit,
		Message: fmt.Sprintf("response still truncated after %d continuation rounds", rounds),
	}
}

// ErrInvalidRequest creates an invalid-request error.
func ErrInvalidRequest(message string) *RelayError {
	return &RelayError{Kind: KindInvalidRequest, Message: message}
}

// ErrBlocked creates a guardrail refusal error.
func ErrBlocked(message string) *RelayError {
	return &RelayError{Kind: KindBlocked, Message: message}
}

// AsRelayError extracts a *RelayError from err, or wraps err in a
// transient error when it carries no kind (unknown failures from the
// transport are treated as retryable).
func AsRelayError(err error) *RelayError {
	var re *RelayError
	if errors.As(err, &re) {
		return re
	}
	return ErrTransient(err.Error()).WithCause(err)
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	var re *RelayError
	if errors.As(err, &re) {
		return re.Kind == KindTransient
	}
	return false
}

// IsKind reports whether err is a RelayError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var re *RelayError
	if errors.As(err, &re) {
		return re.Kind == kind
	}
	return false
}
