package recovery

import (
	"errors"
	"fmt"
)

var (
	// ErrNoJSONStart means the text contained no '{'.
	ErrNoJSONStart = errors.New("no JSON object start found")
	// ErrNoJSONEnd means the text contained no '}'.
	ErrNoJSONEnd = errors.New("no JSON object end found")
)

// ParseError wraps a JSON syntax error on cleaned text.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("json parse: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SchemaError means the document parsed but did not have the expected shape,
// or failed a semantic check after decoding.
type SchemaError struct {
	Err error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema invalid: %v", e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// ServiceError means the text generator itself failed. It is terminal.
type ServiceError struct {
	Attempt int
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("service call failed on attempt %d: %v", e.Attempt, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// ExhaustedError is returned once every attempt produced unusable output.
// The last raw response has been written to DebugPath (if a sink was set).
type ExhaustedError struct {
	Attempts  int
	LastErr   error
	DebugPath string
}

func (e *ExhaustedError) Error() string {
	msg := fmt.Sprintf("exhausted %d attempts: %v", e.Attempts, e.LastErr)
	if e.DebugPath != "" {
		msg += fmt.Sprintf(" (last response saved to %s)", e.DebugPath)
	}
	return msg
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }
