package internal

/*
#cgo CFLAGS: -I${SRCDIR}/../third_party/duckdb
#cgo LDFLAGS: -L${SRCDIR}/../third_party/duckdb -lduckdb
#include <duckdb.h>
*/
import "C"
import (
	"fmt"
	"strings"
)

// State is the status code returned by engine calls
type State int

const (
	StateSuccess State = C.DuckDBSuccess
	StateError   State = C.DuckDBError
)

func (s State) Error() string {
	switch s {
	case StateSuccess:
		return "success"
	case StateError:
		return "engine error"
	default:
		return fmt.Sprintf("engine state: %d", int(s))
	}
}

// Error represents an engine failure with an optional message
type Error struct {
	Op      string
	Code    State
	Message string
}

func (e *Error) Error() string {
	prefix := e.Code.Error()
	if e.Op != "" {
		prefix = e.Op + ": " + prefix
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", prefix, e.Message)
	}
	return prefix
}

// Unwrap exposes the status code so errors.Is(err, StateError) works
func (e *Error) Unwrap() error {
	return e.Code
}

// NewError builds an Error for a non-success state, nil otherwise
func NewError(op string, code State, msg string) error {
	if code == StateSuccess {
		return nil
	}
	return &Error{Op: op, Code: code, Message: msg}
}

// EncodingError reports a value that can't become a NUL terminated C string
type EncodingError struct {
	Field  string
	Value  string
	Offset int
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s %q contains NUL byte at offset %d", e.Field, e.Value, e.Offset)
}

// CheckCString makes sure s survives the trip to a C string unchanged
func CheckCString(field, s string) error {
	if i := strings.IndexByte(s, 0); i >= 0 {
		return &EncodingError{Field: field, Value: s, Offset: i}
	}
	return nil
}
