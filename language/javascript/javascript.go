// Package javascript evaluates JavaScript in-process under a restricted
// capability surface.
//
// Every run gets a fresh goja runtime. The only host binding it sees is a
// console object with a log method; there is no module loader, filesystem,
// network or process access, and nothing from the host application.
package javascript

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dop251/goja"

	"github.com/caffeineduck/runpad/console"
	"github.com/caffeineduck/runpad/runner"
)

// DefaultMaxCallStackSize bounds recursion so runaway programs raise an
// error instead of exhausting the host stack.
const DefaultMaxCallStackSize = 4096

// JavaScript implements runner.Runner with a restricted goja evaluator.
type JavaScript struct {
	maxCallStackSize int
}

// Option configures the evaluator.
type Option func(*JavaScript)

// WithMaxCallStackSize overrides DefaultMaxCallStackSize.
func WithMaxCallStackSize(n int) Option {
	return func(j *JavaScript) {
		j.maxCallStackSize = n
	}
}

// New returns a JavaScript runner.
func New(opts ...Option) *JavaScript {
	j := &JavaScript{maxCallStackSize: DefaultMaxCallStackSize}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Mode returns runner.Sync: evaluation finishes before Execute returns.
func (j *JavaScript) Mode() runner.Mode {
	return runner.Sync
}

// Execute compiles and evaluates source. console.log calls append Output
// entries in call order.
func (j *JavaScript) Execute(ctx context.Context, source string, sink runner.Sink) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	prog, err := goja.Compile("", source, false)
	if err != nil {
		return compileError(err)
	}

	vm := goja.New()
	if j.maxCallStackSize > 0 {
		vm.SetMaxCallStackSize(j.maxCallStackSize)
	}
	if err := vm.Set("console", newConsole(vm, sink)); err != nil {
		return &runner.EvaluationError{Message: err.Error()}
	}

	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt(ctx.Err())
	})
	defer stop()

	if _, err := vm.RunProgram(prog); err != nil {
		return evaluationError(ctx, err)
	}
	return nil
}

func newConsole(vm *goja.Runtime, sink runner.Sink) *goja.Object {
	obj := vm.NewObject()
	_ = obj.Set("log", func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			parts[i] = arg.String()
		}
		sink.Append(console.Output, strings.Join(parts, " "))
		return goja.Undefined()
	})
	return obj
}

// compileError reports the parser's message without the "SyntaxError: "
// prefix.
func compileError(err error) error {
	var syntaxErr *goja.CompilerSyntaxError
	if errors.As(err, &syntaxErr) {
		return &runner.EvaluationError{Message: syntaxErr.Message}
	}
	return &runner.EvaluationError{Message: err.Error()}
}

func evaluationError(ctx context.Context, err error) error {
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		switch ctx.Err() {
		case context.DeadlineExceeded:
			return runner.ErrTimeout
		case context.Canceled:
			return runner.ErrCanceled
		}
		return &runner.EvaluationError{Message: fmt.Sprint(interrupted.Value())}
	}

	var ex *goja.Exception
	if errors.As(err, &ex) {
		return &runner.EvaluationError{Message: exceptionMessage(ex)}
	}
	return &runner.EvaluationError{Message: err.Error()}
}

// exceptionMessage returns the message property of a thrown Error, or the
// string form of any other thrown value.
func exceptionMessage(ex *goja.Exception) string {
	v := ex.Value()
	if v == nil {
		return ex.Error()
	}
	if obj, ok := v.(*goja.Object); ok {
		if m := obj.Get("message"); m != nil && !goja.IsUndefined(m) && !goja.IsNull(m) {
			if msg := m.String(); msg != "" {
				return msg
			}
		}
	}
	return v.String()
}
