package submission

import (
	"errors"
	"fmt"
)

// Code is the stable, machine-checkable outcome of a rejected submission.
type Code string

const (
	CodeValidation Code = "validation_error"
	CodeNotFound   Code = "not_found"
	CodeIneligible Code = "ineligible"
	CodeConflict   Code = "conflict"
	CodeInternal   Code = "internal"
)

// Repository sentinels. Stores wrap these with %w.
var (
	ErrSurveyNotFound    = errors.New("survey not found")
	ErrDuplicateResponse = errors.New("response already exists for survey and respondent")
)

// Error is the terminal failure of one submission attempt.
// Message is safe to show to the respondent; Err is for logs only.
type Error struct {
	Code    Code
	Message string
	Field   string // validation only
	Index   int    // item index for validation errors, -1 otherwise
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func validationError(field string, index int, message string) *Error {
	return &Error{Code: CodeValidation, Field: field, Index: index, Message: message}
}

func newError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Index: -1, Err: cause}
}
