package duckdb

import (
	"errors"
	"fmt"

	"github.com/vfunc-dev/duckdb-vfunc-go/internal"
)

type (
	// EngineError is a non-success status reported by the engine
	EngineError = internal.Error
	// EncodingError is a Go string that can't be passed as a C string
	EncodingError = internal.EncodingError
	// State is an engine status code
	State = internal.State
)

const (
	StateSuccess = internal.StateSuccess
	StateError   = internal.StateError
)

var (
	ErrClosed             = errors.New("duckdb: closed")
	ErrDescriptorReleased = errors.New("duckdb: scalar function descriptor already registered or destroyed")
	ErrViewExpired        = errors.New("duckdb: view used outside of its callback")
	ErrTypeMismatch       = errors.New("duckdb: type mismatch")
	ErrUnsupportedType    = errors.New("duckdb: unsupported type")
	ErrColumnOutOfRange   = errors.New("duckdb: column out of range")
	ErrRowOutOfRange      = errors.New("duckdb: row out of range")
	ErrNilFunction        = errors.New("duckdb: nil scalar function")
)

// CallbackError is a failure raised by a user function during a query.
// Its message is what the engine reports for the failed query.
type CallbackError struct {
	Function string
	Err      error
	Panic    any
}

func (e *CallbackError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("panic in %s: %v", e.Function, e.Panic)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s failed", e.Function)
	}
	return e.Err.Error()
}

func (e *CallbackError) Unwrap() error {
	return e.Err
}
