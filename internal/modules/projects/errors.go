package projects

import "errors"

var (
	ErrNotFound     = errors.New("project not found")
	ErrForbidden    = errors.New("not the project owner")
	ErrInvalidInput = errors.New("invalid project input")
	ErrTooManyFiles = errors.New("too many media files")
)

// ValidationError carries per-field messages for the HTTP layer.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "project validation failed" }

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }
