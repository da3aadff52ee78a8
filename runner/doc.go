// Package runner dispatches source text to per-language runners and turns
// every outcome into entries of a [console.Log].
//
// # Overview
//
// A [Runner] executes a program for one language. Runners are registered in
// a [Registry] under a language tag; a [Dispatcher] picks the runner for a
// request, enforces one run at a time, applies a deadline and records any
// failure as a single error entry.
//
//	reg := runner.NewRegistry()
//	reg.Register("javascript", javascript.New())
//
//	log := console.NewLog()
//	d := runner.NewDispatcher(reg, log, runner.WithTimeout(5*time.Second))
//
//	run, err := d.Run(ctx, "javascript", `console.log("hi")`)
//	if err != nil {
//	    // runner.ErrBusy: a previous run has not completed
//	}
//	<-run.Done()
//
// # Completion
//
// [Sync] runners finish before [Dispatcher.Run] returns. [Async] runners
// finish in the background and close [Run.Done] once all their entries are
// appended.
//
// # Errors
//
// Runners report failures by returning an error; [Execute] converts it to a
// single entry with [Message]. No failure of the executed program escapes
// [Dispatcher.Run].
package runner
