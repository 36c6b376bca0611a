package core

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrConfiguration is the cause of every error due to a missing or malformed setting.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrAuthenticationFailed is returned when credentials do not match, for whatever reason.
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// NotFoundError reports a missing record of the named entity.
type NotFoundError struct {
	Entity string
}

func NewNotFoundError(entity string) error {
	return &NotFoundError{Entity: entity}
}

func (err NotFoundError) Error() string {
	return err.Entity + " not found"
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

// DuplicateError is raised by storage when a unique column already holds the value.
type DuplicateError struct {
	Entity string
	Field  string
}

func NewDuplicateError(entity, field string) error {
	return &DuplicateError{Entity: entity, Field: field}
}

func (err DuplicateError) Error() string {
	return fmt.Sprintf("a %s with this %s already exists", err.Entity, err.Field)
}

func AsDuplicate(err error) (*DuplicateError, bool) {
	dup, ok := errors.Cause(err).(*DuplicateError)
	return dup, ok
}

// TxError means the transaction itself could not begin or commit.
// Errors returned by the work done inside a transaction are never wrapped in it.
type TxError struct {
	Op  string
	Err error
}

func (err TxError) Error() string {
	return fmt.Sprintf("transaction aborted (%s): %v", err.Op, err.Err)
}

func (err TxError) Unwrap() error { return err.Err }

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
