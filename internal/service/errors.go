package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/learning-journal/internal/repository"
)

// Kind classifies a service failure so the HTTP layer can choose a status
// without looking at storage details.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound        // also covers rows owned by someone else
	KindConflict
	KindStorage
	KindAuthentication
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindStorage:
		return "storage"
	case KindAuthentication:
		return "authentication"
	case KindUnauthenticated:
		return "unauthenticated"
	}
	return "unknown"
}

// Error is returned by every service operation.  Message is safe to show to
// the user; Err carries the underlying cause for logs.
type Error struct {
	Kind    Kind
	Field   string // offending input field for validation errors
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or 0 when err is not a service error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

// Messages shown for non-validation failures.
const (
	MsgInvalidCredentials = "invalid username or password"
	MsgDuplicateAccount   = "username or email already exists"
	MsgDuplicateCourse    = "a course with this code already exists"
	MsgNotFound           = "not found"
	MsgLoginRequired      = "please log in to continue"
	MsgStorage            = "Something went wrong. Please try again later."
)

func invalid(field, msg string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: msg}
}

var errUnauthenticated = &Error{Kind: KindUnauthenticated, Message: MsgLoginRequired}

func authFailed() *Error {
	return &Error{Kind: KindAuthentication, Message: MsgInvalidCredentials}
}

// fromRepo maps repository errors onto service errors.  conflictMsg is the
// message used for uniqueness violations.
func fromRepo(err error, conflictMsg string) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return &Error{Kind: KindNotFound, Message: MsgNotFound, Err: err}
	case errors.Is(err, repository.ErrConflict):
		return &Error{Kind: KindConflict, Message: conflictMsg, Err: err}
	case errors.Is(err, repository.ErrForeignCourse):
		return &Error{Kind: KindValidation, Field: "course_id", Message: "selected course does not exist", Err: err}
	}
	return &Error{Kind: KindStorage, Message: MsgStorage, Err: err}
}
