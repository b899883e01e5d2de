package orders

import "errors"

var (
	ErrNotFound           = errors.New("order not found")
	ErrReportNotAvailable = errors.New("report not yet available")
	ErrStatusConflict     = errors.New("order status changed concurrently")
	ErrDuplicateToken     = errors.New("correlation token already in use")
	ErrQueueNotConfigured = errors.New("job queue not configured")
)

// Kind classifies pipeline failures for callers.
type Kind string

const (
	KindValidation      Kind = "validation"
	KindNotFound        Kind = "not_found"
	KindStorage         Kind = "storage"
	KindSynthesis       Kind = "synthesis"
	KindNotYetAvailable Kind = "not_yet_available"
	KindConflict        Kind = "conflict"
	KindInternal        Kind = "internal"
)

const (
	ErrorCodeValidation      = "VALIDATION_ERROR"
	ErrorCodeNotFound        = "NOT_FOUND"
	ErrorCodeStorage         = "STORAGE_ERROR"
	ErrorCodeSynthesis       = "SYNTHESIS_ERROR"
	ErrorCodeNotYetAvailable = "REPORT_NOT_AVAILABLE"
	ErrorCodeConflict        = "STATUS_CONFLICT"
	ErrorCodeInternal        = "INTERNAL_ERROR"
)

// Error is returned by Service operations.
type Error struct {
	Kind    Kind
	Message string
	// Fields holds per-field validation messages.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	default:
		return string(e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code returns the API error code for the kind.
func (k Kind) Code() string {
	switch k {
	case KindValidation:
		return ErrorCodeValidation
	case KindNotFound:
		return ErrorCodeNotFound
	case KindStorage:
		return ErrorCodeStorage
	case KindSynthesis:
		return ErrorCodeSynthesis
	case KindNotYetAvailable:
		return ErrorCodeNotYetAvailable
	case KindConflict:
		return ErrorCodeConflict
	default:
		return ErrorCodeInternal
	}
}

// KindOf returns the kind of a pipeline error, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrReportNotAvailable):
		return KindNotYetAvailable
	case errors.Is(err, ErrStatusConflict):
		return KindConflict
	}
	return KindInternal
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func notFoundError() *Error {
	return newError(KindNotFound, "Order not found", ErrNotFound)
}

// storageError maps repository failures, preserving not-found and conflicts.
func storageError(msg string, err error) *Error {
	switch {
	case errors.Is(err, ErrNotFound):
		return notFoundError()
	case errors.Is(err, ErrStatusConflict):
		return newError(KindConflict, msg, err)
	default:
		return newError(KindStorage, msg, err)
	}
}
