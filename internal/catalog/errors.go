package catalog

import (
	"errors"
	"strings"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
	// ErrConflict is returned when the ISBN is owned by another book.
	ErrConflict = errors.New("book with this ISBN already exists")
	// ErrEnrichment is returned when the metadata provider yields nothing for
	// a new book. Nothing is stored in that case.
	ErrEnrichment = errors.New("metadata enrichment failed")
)

type FieldError struct {
	Field   string
	Message string
}

// ValidationError lists the rejected fields. It matches ErrValidation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}
