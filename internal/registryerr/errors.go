// Package registryerr defines the error kinds propagated from the
// repository and service layers to the HTTP edge.
package registryerr

import "fmt"

// Kind is one of the error classes from the registry's error design.
// It is not a Go type hierarchy — callers compare Kind values, not
// concrete error types, so every layer can translate uniformly.
type Kind string

const (
	Validation         Kind = "validation"
	NotFound           Kind = "not_found"
	AlreadyExists      Kind = "already_exists"
	PermissionDenied   Kind = "permission_denied"
	Unauthenticated    Kind = "unauthenticated"
	BackendUnavailable Kind = "backend_unavailable"
	ExternalProcessFailed Kind = "external_process_failed"
	Unexpected         Kind = "unexpected"
)

// Error is the typed error carried through the system. Message is
// user-visible; Detail may hold structured context (e.g. a scan
// failure summary) that admin surfaces may choose to render.
type Error struct {
	Kind    Kind
	Message string
	Detail  any
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func new(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

func NewValidation(message string, cause error) *Error {
	return new(Validation, message, cause)
}

func NewNotFound(message string, cause error) *Error {
	return new(NotFound, message, cause)
}

func NewAlreadyExists(message string, cause error) *Error {
	return new(AlreadyExists, message, cause)
}

func NewPermissionDenied(message string, cause error) *Error {
	return new(PermissionDenied, message, cause)
}

func NewUnauthenticated(message string, cause error) *Error {
	return new(Unauthenticated, message, cause)
}

func NewBackendUnavailable(message string, cause error) *Error {
	return new(BackendUnavailable, message, cause)
}

func NewExternalProcessFailed(message string, cause error) *Error {
	return new(ExternalProcessFailed, message, cause)
}

func NewUnexpected(message string, cause error) *Error {
	return new(Unexpected, message, cause)
}

// WithDetail attaches a structured detail payload and returns the
// same error for chaining at the construction site.
func (e *Error) WithDetail(detail any) *Error {
	e.Detail = detail
	return e
}

// KindOf extracts the Kind from err, defaulting to Unexpected when err
// is not a *Error.
func KindOf(err error) Kind {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Kind
	}
	return Unexpected
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
