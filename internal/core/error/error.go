package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes a missing Redis key.
	RedisNotFoundMessage = "redis key not found"
)

// Kind classifies an AppError so callers can tell permanent failures
// (bad input, unknown ids) from upstream ones worth retrying.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindExtraction
	KindUpstream
)

// String returns the name used in the HTTP error envelope.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindNotFound:
		return "not_found"
	case KindExtraction:
		return "extraction_error"
	case KindUpstream:
		return "upstream_error"
	default:
		return "server_error"
	}
}

// Status returns the HTTP status code associated with the kind.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindExtraction:
		return http.StatusUnprocessableEntity
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// AppError wraps an underlying error with a kind, an HTTP status and a safe message.
type AppError struct {
	Kind    Kind
	Err     error
	Status  int
	Message string
}

// Sentinels for errors.Is matching by kind.
var (
	ErrValidation = &AppError{Kind: KindValidation, Status: http.StatusBadRequest, Message: "validation failed"}
	ErrNotFound   = &AppError{Kind: KindNotFound, Status: http.StatusNotFound, Message: "not found"}
	ErrExtraction = &AppError{Kind: KindExtraction, Status: http.StatusUnprocessableEntity, Message: "text extraction failed"}
	ErrUpstream   = &AppError{Kind: KindUpstream, Status: http.StatusBadGateway, Message: "upstream call failed"}
)

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel of the same kind.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

// New creates a new AppError with the provided information.
// The kind is derived from the status.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Kind:    kindFromStatus(status),
		Err:     err,
		Status:  status,
		Message: message,
	}
}

func newKind(kind Kind, err error, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Err:     err,
		Status:  kind.Status(),
		Message: message,
	}
}

// Validation reports malformed input.
func Validation(err error, message string) *AppError {
	return newKind(KindValidation, err, message)
}

// NotFound reports an unknown identifier.
func NotFound(err error, message string) *AppError {
	return newKind(KindNotFound, err, message)
}

// Extraction reports an unsupported or malformed document format.
func Extraction(err error, message string) *AppError {
	return newKind(KindExtraction, err, message)
}

// Upstream reports a failed embedding or language-model call.
func Upstream(err error, message string) *AppError {
	return newKind(KindUpstream, err, message)
}

// Internal reports an unexpected failure.
func Internal(err error, message string) *AppError {
	return newKind(KindInternal, err, message)
}

// Wrap adds message context to err, keeping the kind of the innermost AppError.
// Errors without an AppError in their chain become KindInternal.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var app *AppError
	if errors.As(err, &app) {
		return &AppError{Kind: app.Kind, Err: err, Status: app.Status, Message: message}
	}
	return Internal(err, message)
}

// KindOf returns the kind of the first AppError in err's chain.
func KindOf(err error) Kind {
	var app *AppError
	if errors.As(err, &app) {
		return app.Kind
	}
	return KindInternal
}

// StatusOf returns the HTTP status of the first AppError in err's chain.
func StatusOf(err error) int {
	var app *AppError
	if errors.As(err, &app) && app.Status != 0 {
		return app.Status
	}
	return http.StatusInternalServerError
}

func kindFromStatus(status int) Kind {
	switch status {
	case http.StatusBadRequest:
		return KindValidation
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusUnprocessableEntity:
		return KindExtraction
	case http.StatusBadGateway:
		return KindUpstream
	default:
		return KindInternal
	}
}
