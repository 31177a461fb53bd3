package session

import (
	"errors"
	"fmt"

	"github.com/dropcode/dropcode/internal/backend"
)

// Local validation failures. None of these are ever preceded by a backend call.
var (
	ErrNoFile               = errors.New("no file provided")
	ErrFileTooLarge         = errors.New("file exceeds 10 MB limit")
	ErrUploadBusy           = errors.New("upload already in progress")
	ErrEmptyCode            = errors.New("no code provided")
	ErrEmptyFeedback        = errors.New("no rating or feedback provided")
	ErrInvalidRating        = errors.New("rating must be between 0 and 5")
	ErrFeedbackBusy         = errors.New("feedback submission already in progress")
	ErrClipboardUnavailable = errors.New("clipboard unavailable")
	ErrUnknownEvent         = errors.New("unknown event")
)

// Failures reported by, or while reaching, the backend. They are returned
// wrapped in a *RejectedError.
var (
	ErrUploadRejected   = errors.New("upload rejected")
	ErrCodeNotFound     = errors.New("invalid code or file not found")
	ErrFeedbackRejected = errors.New("feedback rejected")
)

// RejectedError describes a flow that failed after contacting the backend.
// It matches its Kind with errors.Is and unwraps to the underlying cause, so
// errors.Is(err, backend.ErrTransport) tells network failures apart from
// backend rejections.
type RejectedError struct {
	Kind   error
	Reason string
	Err    error
}

func (e *RejectedError) Error() string {
	if e.Reason == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func (e *RejectedError) Is(target error) bool {
	return target == e.Kind
}

func (e *RejectedError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err was caused by a transport failure rather
// than a backend rejection.
func IsTransport(err error) bool {
	return errors.Is(err, backend.ErrTransport)
}

func reject(kind error, cause error, fallback string) *RejectedError {
	reason := fallback
	var resErr *backend.ResponseError
	if errors.As(cause, &resErr) && resErr.Message != "" {
		reason = resErr.Message
	}
	return &RejectedError{Kind: kind, Reason: reason, Err: cause}
}
