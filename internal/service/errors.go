package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound reports that the referenced entity or relation row
	// does not exist.
	ErrNotFound = errors.New("not found")
	// ErrPermissionDenied reports that the actor is authenticated but
	// is not allowed to mutate the resource.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidCredentials reports a failed login or password check.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ValidationError reports user input that violates a field or business
// constraint. Handlers map it to a 400 response.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// isDuplicateErr detects a uniqueness violation surfaced by the
// database driver. A racing insert that loses to the unique index must
// be reported the same way as a pre-checked duplicate.
func isDuplicateErr(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate") || strings.Contains(msg, "unique")
}
