package samples

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedInput = errors.New("malformed input")
	ErrMissingColumn  = errors.New("missing column")
)

// MalformedInputError is returned when a sample file is missing, empty or
// structurally inconsistent. Line is 1-based and zero when not tied to a row.
type MalformedInputError struct {
	File   string
	Line   int
	Reason string
	Err    error
}

func (e *MalformedInputError) Error() string {
	msg := fmt.Sprintf("malformed input %s", e.File)
	if e.Line > 0 {
		msg = fmt.Sprintf("%s:%d", msg, e.Line)
	}
	msg = fmt.Sprintf("%s: %s", msg, e.Reason)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *MalformedInputError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedInput}
	}
	return []error{ErrMalformedInput, e.Err}
}

// MissingColumnError is returned when a requested column is not recognized
// or not present in a file's header
type MissingColumnError struct {
	File   string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("column %q not found in %s", e.Column, e.File)
}

func (e *MissingColumnError) Unwrap() error {
	return ErrMissingColumn
}
