package runner

import (
	"context"
	"errors"
	"fmt"

	"github.com/caffeineduck/runpad/console"
)

// Mode describes how a runner delivers completion.
type Mode int

const (
	// Sync runners complete within the calling goroutine.
	Sync Mode = iota
	// Async runners may block on an interpreter and are run in the background.
	Async
)

func (m Mode) String() string {
	if m == Async {
		return "async"
	}
	return "sync"
}

// Sink receives entries produced by a run. *console.Log implements it.
type Sink interface {
	Append(kind console.Kind, text string) console.Entry
}

// Runner executes source text for a single language.
//
// Execute appends program output to sink and returns the failure, if any,
// that ended the run. It must not append the failure itself.
type Runner interface {
	Mode() Mode
	Execute(ctx context.Context, source string, sink Sink) error
}

// Request is one run trigger.
type Request struct {
	Language string `json:"language"`
	Source   string `json:"source"`
}

// Execute runs r and records a failure, including a panic, as exactly one
// error entry. The returned error is the recorded failure.
func Execute(ctx context.Context, r Runner, source string, sink Sink) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("runner panic: %v", p)
		}
		if err != nil {
			sink.Append(console.Error, Message(err))
		}
	}()

	err = r.Execute(ctx, source, sink)
	if err == nil || errors.Is(err, ErrTimeout) || errors.Is(err, ErrCanceled) {
		return err
	}
	switch ctx.Err() {
	case context.DeadlineExceeded:
		err = ErrTimeout
	case context.Canceled:
		err = ErrCanceled
	}
	return err
}
