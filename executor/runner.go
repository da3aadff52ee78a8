package executor

import (
	"context"
	"strings"

	"github.com/caffeineduck/runpad/console"
	"github.com/caffeineduck/runpad/runner"
)

// Runner adapts a Language to runner.Runner.
type Runner struct {
	exec *Executor
	lang Language
	opts []Option
}

// Runner returns a runner that executes lang on e.
func (e *Executor) Runner(lang Language, opts ...Option) *Runner {
	return &Runner{exec: e, lang: lang, opts: opts}
}

// Language returns the adapted language.
func (r *Runner) Language() Language {
	return r.lang
}

// Mode returns runner.Async: the interpreter runs to completion in the
// background and the dispatcher is notified once.
func (r *Runner) Mode() runner.Mode {
	return runner.Async
}

// Execute runs source and, on success, appends everything it printed as a
// single output entry. Empty source produces no entries.
func (r *Runner) Execute(ctx context.Context, source string, sink runner.Sink) error {
	if source == "" {
		return nil
	}

	result := r.exec.Run(ctx, r.lang, source, r.opts...)
	if result.Error != nil {
		return result.Error
	}

	if out := strings.TrimSuffix(result.Output(), "\n"); out != "" {
		sink.Append(console.Output, out)
	}
	return nil
}
