// Package domain defines core types, interfaces, and errors for the table builder.
package domain

import (
	"fmt"
	"strings"
)

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// AccessDeniedError indicates insufficient permissions.
type AccessDeniedError struct {
	Message string
}

func (e *AccessDeniedError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., duplicate resource).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrAccessDenied creates an AccessDeniedError with a formatted message.
func ErrAccessDenied(format string, args ...interface{}) *AccessDeniedError {
	return &AccessDeniedError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// IdentifierKind tells the validator which naming rules apply.
type IdentifierKind string

// Identifier kinds.
const (
	TableName  IdentifierKind = "table"
	ColumnName IdentifierKind = "column"
)

// InvalidIdentifierError reports a table or column name that breaks a naming rule.
type InvalidIdentifierError struct {
	Kind       IdentifierKind
	Identifier string
	Rule       string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid %s name %q: %s", e.Kind, e.Identifier, e.Rule)
}

// UnknownTypeError reports a column type tag outside the closed type set.
type UnknownTypeError struct {
	Type string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown column type %q", e.Type)
}

// RowViolation is the reason a row failed validation.
type RowViolation string

// Row violations.
const (
	MissingColumn RowViolation = "missing_column"
	UnknownColumn RowViolation = "unknown_column"
	TypeMismatch  RowViolation = "type_mismatch"
)

// RowValidationError reports a single field of a row that cannot be stored.
type RowValidationError struct {
	Table  string
	Column string
	Reason RowViolation
	Detail string
}

func (e *RowValidationError) Error() string {
	msg := fmt.Sprintf("row for table %q: column %q: %s", e.Table, e.Column, e.Reason)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// RowValidationErrors collects every violation found in one row.
type RowValidationErrors []*RowValidationError

func (errs RowValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return strings.Join(msgs, "; ")
}

// As lets errors.As reach the first violation.
func (errs RowValidationErrors) As(target any) bool {
	t, ok := target.(**RowValidationError)
	if !ok || len(errs) == 0 {
		return false
	}
	*t = errs[0]
	return true
}

// Has reports whether any violation has the given reason.
func (errs RowValidationErrors) Has(reason RowViolation) bool {
	for _, e := range errs {
		if e.Reason == reason {
			return true
		}
	}
	return false
}

// SchemaApplyError reports a structural change the data store rejected.
// The logical and physical schema are left consistent with each other.
type SchemaApplyError struct {
	Table     string
	Op        string
	Statement string
	Err       error
}

func (e *SchemaApplyError) Error() string {
	if e.Statement != "" {
		return fmt.Sprintf("%s table %q: %v (statement: %s)", e.Op, e.Table, e.Err, e.Statement)
	}
	return fmt.Sprintf("%s table %q: %v", e.Op, e.Table, e.Err)
}

func (e *SchemaApplyError) Unwrap() error { return e.Err }
