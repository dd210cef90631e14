package watch

import (
	"errors"
	"fmt"
)

var (
	// ErrScopeEnded is wrapped by the panic raised when a Scope is ended twice.
	ErrScopeEnded = errors.New("measurement scope already ended")
	// ErrAborted marks a region that exited through runtime.Goexit.
	ErrAborted = errors.New("measured region aborted")
)

// PanicError records a panic observed inside a measured region. The original
// value is re-panicked unchanged; PanicError only feeds statistics and sinks.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	if err, ok := e.Value.(error); ok {
		return "panic: " + err.Error()
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}
