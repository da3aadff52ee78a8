package runner

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrTimeout is recorded when a run exceeds its deadline.
	ErrTimeout = errors.New("execution timed out")
	// ErrCanceled is recorded when the caller cancels a run.
	ErrCanceled = errors.New("execution canceled")
	// ErrBusy is returned by Dispatcher.Run while another run is pending.
	// It is never recorded in the log.
	ErrBusy = errors.New("run already in progress")
)

// EvaluationError is a syntax or runtime fault in the restricted evaluator.
type EvaluationError struct {
	Message string
}

func (e *EvaluationError) Error() string {
	return e.Message
}

// InterpretationError is a fault reported by an emulated interpreter.
type InterpretationError struct {
	Message string
	Err     error
}

func (e *InterpretationError) Error() string {
	if e.Message == "" && e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *InterpretationError) Unwrap() error {
	return e.Err
}

// DispatchError reports a language tag with no registered runner.
type DispatchError struct {
	Language string
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("unsupported language %q", e.Language)
}

// Message returns the text recorded for a failed run.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout.Error()
	case errors.Is(err, ErrCanceled), errors.Is(err, context.Canceled):
		return ErrCanceled.Error()
	}
	return err.Error()
}

// IsTimeout reports whether err is a deadline expiry.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

func status(err error) string {
	var de *DispatchError
	switch {
	case err == nil:
		return "ok"
	case IsTimeout(err):
		return "timeout"
	case errors.Is(err, ErrCanceled), errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &de):
		return "unsupported"
	}
	return "error"
}
