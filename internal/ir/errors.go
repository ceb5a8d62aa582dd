package ir

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes validation errors.
type ErrorCode string

const (
	CodeInvalidLabel            ErrorCode = "INVALID_LABEL"
	CodeInvalidUUID             ErrorCode = "INVALID_UUID"
	CodeEmptyNode               ErrorCode = "EMPTY_NODE"
	CodeMissingRelationType     ErrorCode = "MISSING_RELATION_TYPE"
	CodeMissingLabel            ErrorCode = "MISSING_LABEL"
	CodeInvalidRelationsType    ErrorCode = "INVALID_RELATIONS_TYPE"
	CodeInvalidDate             ErrorCode = "INVALID_DATE"
	CodeMissingUUID             ErrorCode = "MISSING_UUID"
	CodeNoRelationshipsToDelete ErrorCode = "NO_RELATIONSHIPS_TO_DELETE"
	CodeInvalidPropertyKey      ErrorCode = "INVALID_PROPERTY_KEY"
	CodeInvalidProperty         ErrorCode = "INVALID_PROPERTY"
	CodeInvalidFilter           ErrorCode = "INVALID_FILTER"
	CodeInvalidVariable         ErrorCode = "INVALID_VARIABLE"
	CodeInvalidGeometry         ErrorCode = "INVALID_GEOMETRY"
	CodeCyclicGraph             ErrorCode = "CYCLIC_GRAPH"
	CodeTooManyIdentifiers      ErrorCode = "TOO_MANY_IDENTIFIERS"
	CodeMissingQuery            ErrorCode = "MISSING_QUERY"
	CodeRelationalStoreRequired ErrorCode = "RELATIONAL_STORE_REQUIRED"
)

// ValidationError reports input rejected during compilation.
//
// Validation errors are raised before any I/O and are never retried.
// errors.Is matches two ValidationErrors with the same Code, so callers
// can test against the exported sentinels:
//
//	if errors.Is(err, ir.ErrInvalidLabel) { ... }
type ValidationError struct {
	Code    ErrorCode
	Message string

	// Details contains additional context (path, key, offending value).
	Details map[string]string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if path, ok := e.Details["path"]; ok {
		return fmt.Sprintf("%s: %s (at %s)", e.Code, e.Message, path)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any ValidationError carrying the same code.
func (e *ValidationError) Is(target error) bool {
	var t *ValidationError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// With returns a copy of e with one more detail.
func (e *ValidationError) With(key, value string) *ValidationError {
	details := make(map[string]string, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &ValidationError{Code: e.Code, Message: e.Message, Details: details}
}

// Invalid builds a ValidationError with a formatted message.
func Invalid(code ErrorCode, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Sentinels for errors.Is.
var (
	ErrInvalidLabel            = &ValidationError{Code: CodeInvalidLabel, Message: "invalid label"}
	ErrInvalidUUID             = &ValidationError{Code: CodeInvalidUUID, Message: "invalid uuid"}
	ErrEmptyNode               = &ValidationError{Code: CodeEmptyNode, Message: "empty node"}
	ErrMissingRelationType     = &ValidationError{Code: CodeMissingRelationType, Message: "missing relation type"}
	ErrMissingLabel            = &ValidationError{Code: CodeMissingLabel, Message: "missing label"}
	ErrInvalidRelationsType    = &ValidationError{Code: CodeInvalidRelationsType, Message: "relations must be a list of strings"}
	ErrInvalidDate             = &ValidationError{Code: CodeInvalidDate, Message: "invalid date"}
	ErrMissingUUID             = &ValidationError{Code: CodeMissingUUID, Message: "missing uuid"}
	ErrNoRelationshipsToDelete = &ValidationError{Code: CodeNoRelationshipsToDelete, Message: "no relationships to delete"}
	ErrInvalidPropertyKey      = &ValidationError{Code: CodeInvalidPropertyKey, Message: "invalid property key"}
	ErrInvalidProperty         = &ValidationError{Code: CodeInvalidProperty, Message: "invalid property value"}
	ErrInvalidFilter           = &ValidationError{Code: CodeInvalidFilter, Message: "invalid filter"}
	ErrInvalidVariable         = &ValidationError{Code: CodeInvalidVariable, Message: "invalid variable"}
	ErrInvalidGeometry         = &ValidationError{Code: CodeInvalidGeometry, Message: "invalid geometry"}
	ErrCyclicGraph             = &ValidationError{Code: CodeCyclicGraph, Message: "cyclic graph"}
	ErrTooManyIdentifiers      = &ValidationError{Code: CodeTooManyIdentifiers, Message: "too many identifiers in one statement"}
	ErrMissingQuery            = &ValidationError{Code: CodeMissingQuery, Message: "missing query"}
	ErrRelationalStoreRequired = &ValidationError{Code: CodeRelationalStoreRequired, Message: "relational store required"}
)

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// Store names used in StoreError.
const (
	StoreGraph      = "graph"
	StoreRelational = "relational"
)

// StoreError wraps a driver or network failure from either store.
//
// A StoreError aborts the unit of work it occurred in and triggers
// compensation of every transaction already opened for it.
type StoreError struct {
	// Store is StoreGraph or StoreRelational.
	Store string

	// Op names the failed operation (begin, run, exec, commit, ...).
	Op string

	Err error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("%s store %s: %v", e.Store, e.Op, e.Err)
}

// Unwrap returns the driver error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsStoreError reports whether err is (or wraps) a StoreError.
func IsStoreError(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
