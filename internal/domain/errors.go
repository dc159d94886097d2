package domain

import "errors"

// Error kinds. Every error produced by the chat core and its
// collaborators unwraps to exactly one of these.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInternal        = errors.New("internal error")
)

// Error is a classified error with a short message that is safe to show
// to the client.
type Error struct {
	kind error
	msg  string
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

func NewValidationError(msg string) error { return &Error{kind: ErrValidation, msg: msg} }

func NewNotFoundError(msg string) error { return &Error{kind: ErrNotFound, msg: msg} }

func NewUnauthenticatedError(msg string) error { return &Error{kind: ErrUnauthenticated, msg: msg} }

func NewConflictError(msg string) error { return &Error{kind: ErrConflict, msg: msg} }

// PublicMessage returns the client-facing text for err. Validation,
// not-found, conflict and authentication errors carry their own message;
// anything else is replaced by fallback.
func PublicMessage(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.kind != ErrInternal {
		return e.msg
	}
	return fallback
}
