package employee

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrInvalidID         = errors.New("employee: invalid id")
	ErrInvalidPageSize   = errors.New("employee: invalid page size")
	ErrInvalidPageToken  = errors.New("employee: invalid page token")
	ErrInvalidOrdering   = errors.New("employee: invalid ordering")
	ErrEmployeeNotFound  = errors.New("employee: not found")
	ErrHasAuditHistory   = errors.New("employee: has audit history")
	ErrHistoryUnchecked  = errors.New("employee: audit history checker not configured")
	ErrValidation        = errors.New("employee: validation failed")
	ErrUnsupportedExport = errors.New("employee: unsupported export kind")
)

// ValidationError はフィールド単位の検証エラーです。
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError は単一フィールドの ValidationError を生成します。
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func (e *ValidationError) add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = message
	}
}

func (e *ValidationError) orNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}
