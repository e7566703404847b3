package telemetry

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a line could not be decoded.
type ErrorKind int

const (
	// ErrorFieldCount means the line had fewer than FieldCount tokens.
	ErrorFieldCount ErrorKind = iota + 1
	// ErrorFieldParse means a single token was not a valid number of its column type.
	ErrorFieldParse
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorFieldCount:
		return "field_count"
	case ErrorFieldParse:
		return "field_parse"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is matching against *DecodeError.
var (
	ErrFieldCount = errors.New("telemetry: too few fields")
	ErrFieldParse = errors.New("telemetry: field parse failed")
)

// DecodeError pinpoints why a data row was rejected.
//
// For ErrorFieldCount, Got and Line are set. For ErrorFieldParse, Field,
// Position and Raw identify the offending token; Raw is untrimmed.
type DecodeError struct {
	Kind     ErrorKind
	Field    string
	Position int
	Raw      string
	Got      int
	Line     string
	Err      error
}

func (e *DecodeError) Error() string {
	switch e.Kind {
	case ErrorFieldCount:
		return fmt.Sprintf("expected at least %d fields, got %d. Line: '%s'", FieldCount, e.Got, e.Line)
	case ErrorFieldParse:
		return fmt.Sprintf("failed to parse field %s ('%s') at position %d", e.Field, e.Raw, e.Position)
	default:
		return "telemetry: decode error"
	}
}

func (e *DecodeError) Is(target error) bool {
	switch target {
	case ErrFieldCount:
		return e.Kind == ErrorFieldCount
	case ErrFieldParse:
		return e.Kind == ErrorFieldParse
	}
	return false
}

func (e *DecodeError) Unwrap() error { return e.Err }
