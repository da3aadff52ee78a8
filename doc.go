// Package runpad is the execution core of a code console: source text and a
// language tag go in, an ordered log of output and error entries comes out.
//
// # Overview
//
// Two kinds of runners are provided. The javascript language is evaluated
// in-process by a restricted goja VM whose only capability is console.log.
// The quickjs and python languages run a WASI interpreter inside wazero with
// no filesystem or network access. Every run gets a fresh VM or module
// instance.
//
// # Basic Usage
//
//	exec, _ := executor.New()
//	defer exec.Close()
//
//	registry := runner.NewRegistry()
//	registry.Register("javascript", javascript.New())
//	registry.Register("quickjs", exec.Runner(quickjs.New()))
//
//	log := console.NewLog()
//	d := runner.NewDispatcher(registry, log, runner.WithTimeout(5*time.Second))
//
//	run, err := d.Run(ctx, "javascript", `console.log("hello")`)
//	if errors.Is(err, runner.ErrBusy) {
//	    // another run is still pending
//	}
//	run.Wait(ctx)
//	for _, e := range log.Snapshot() {
//	    fmt.Println(e.Sequence, e.Kind, e.Text)
//	}
//
// Failures never escape the dispatcher: syntax errors, thrown values,
// interpreter crashes, timeouts and unknown languages each become exactly
// one error entry in the log.
//
// See the [console], [runner], [executor], [language/javascript],
// [language/quickjs] and [language/python] packages for details.
package runpad
