package procurement

import (
	"errors"
	"fmt"
	"net/http"

	"procurement-engine/decision/llm"
)

// Kind classifies a procurement failure.
type Kind string

const (
	KindInvalidRequest     Kind = "invalid_request"
	KindNoCandidates       Kind = "no_candidates"
	KindCredentialRequired Kind = "credential_required"
	KindProviderFailure    Kind = "provider_failure"
	KindInternal           Kind = "internal"
)

// Status maps the kind to an HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindInvalidRequest, KindCredentialRequired:
		return http.StatusBadRequest
	case KindNoCandidates:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is returned by Plan. Trace and Metrics cover the steps that ran
// before the failure.
type Error struct {
	Kind     Kind
	Message  string
	Searched int
	Filtered int
	Trace    []TraceEntry
	Metrics  *Metrics
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinel errors by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// Status returns the HTTP status for the error.
func (e *Error) Status() int {
	return e.Kind.Status()
}

// Sentinels for errors.Is.
var (
	ErrInvalidRequest     = &Error{Kind: KindInvalidRequest}
	ErrNoCandidates       = &Error{Kind: KindNoCandidates}
	ErrCredentialRequired = &Error{Kind: KindCredentialRequired}
	ErrInternal           = &Error{Kind: KindInternal}
)

// StatusOf maps any error to an HTTP status. Unknown errors are 500.
func StatusOf(err error) int {
	if err == nil {
		return http.StatusOK
	}
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Status()
	}
	if errors.Is(err, llm.ErrCredentialRequired) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func invalidRequest(msg string) *Error {
	return &Error{Kind: KindInvalidRequest, Message: msg}
}
