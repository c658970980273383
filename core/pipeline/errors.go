package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrStalled is reported when a unit returns without calling next,
	// without writing a response and without hijacking the connection.
	// The chain cannot make progress past such a unit.
	ErrStalled = errors.New("pipeline: middleware returned without calling next or writing a response")

	// ErrFrozen is raised by Use/UseError once the pipeline has started
	// serving requests. The stack is immutable from that point.
	ErrFrozen = errors.New("pipeline: middleware must be added before the pipeline starts serving")
)

// PanicError gives error-handling middleware access to a recovered panic's
// original value and the stack trace captured at the panic point.
type PanicError interface {
	error
	// Value returns the original panic value.
	Value() any
	// Stack returns the stack trace captured when the panic was recovered.
	Stack() []byte
}

type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

func (e *panicError) Value() any {
	return e.value
}

func (e *panicError) Stack() []byte {
	return e.stack
}

// Unwrap lets errors.Is/As see through panics that carried an error value.
func (e *panicError) Unwrap() error {
	if err, ok := e.value.(error); ok {
		return err
	}
	return nil
}
