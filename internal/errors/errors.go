package errors

import (
	stderrors "errors"
	"fmt"
)

type ErrorType string

const (
	ErrorTypeAlreadyInitialized  ErrorType = "ALREADY_INITIALIZED"
	ErrorTypeNotInitialized      ErrorType = "NOT_INITIALIZED"
	ErrorTypeNotFound            ErrorType = "NOT_FOUND"
	ErrorTypeIgnored             ErrorType = "IGNORED"
	ErrorTypeEmptyStaging        ErrorType = "EMPTY_STAGING"
	ErrorTypeBranchNotFound      ErrorType = "BRANCH_NOT_FOUND"
	ErrorTypeBranchAlreadyExists ErrorType = "BRANCH_ALREADY_EXISTS"
	ErrorTypeCommitNotFound      ErrorType = "COMMIT_NOT_FOUND"
	ErrorTypeDestinationExists   ErrorType = "DESTINATION_EXISTS"
	ErrorTypeValidation          ErrorType = "VALIDATION"
)

// Error is a caller-recoverable condition. Filesystem faults are never wrapped
// in an Error; they travel as plain wrapped errors.
type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// Is reports whether target is an *Error of the same type, so callers can write
// errors.Is(err, &Error{Type: ErrorTypeIgnored}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// IsType reports whether any error in err's chain is an *Error of type t.
func IsType(err error, t ErrorType) bool {
	return stderrors.Is(err, &Error{Type: t})
}

// TypeOf returns the type of the first *Error in err's chain, or "".
func TypeOf(err error) ErrorType {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return ""
}

func newError(t ErrorType, format string, args ...any) *Error {
	return &Error{
		Type:    t,
		Message: fmt.Sprintf(format, args...),
	}
}

func AlreadyInitialized(root string) *Error {
	return newError(ErrorTypeAlreadyInitialized, "repository already initialized at %s", root)
}

func NotInitialized(root string) *Error {
	return newError(ErrorTypeNotInitialized, "no repository found at %s", root)
}

func NotFound(path string) *Error {
	return newError(ErrorTypeNotFound, "file '%s' does not exist", path)
}

func Ignored(path string) *Error {
	return newError(ErrorTypeIgnored, "file '%s' is ignored", path)
}

func EmptyStaging() *Error {
	return newError(ErrorTypeEmptyStaging, "no files staged for commit")
}

func BranchNotFound(name string) *Error {
	return newError(ErrorTypeBranchNotFound, "branch '%s' does not exist", name)
}

func BranchAlreadyExists(name string) *Error {
	return newError(ErrorTypeBranchAlreadyExists, "branch '%s' already exists", name)
}

func CommitNotFound(branch, id string) *Error {
	return newError(ErrorTypeCommitNotFound, "commit %s does not exist on branch '%s'", id, branch)
}

func DestinationExists(path string) *Error {
	return newError(ErrorTypeDestinationExists, "destination '%s' already exists", path)
}

func ValidationError(message string, details any) *Error {
	return &Error{
		Type:    ErrorTypeValidation,
		Message: message,
		Details: details,
	}
}
