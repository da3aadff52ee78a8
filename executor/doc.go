// Package executor runs emulated interpreters compiled to WebAssembly.
//
// # Overview
//
// The executor manages a wazero runtime, compiles each [Language] module
// once, and instantiates a fresh module for every run. The guest sees only
// its arguments, stdout and stderr: no preopened directories, no sockets,
// no inherited environment.
//
// # Basic Usage
//
//	exec, err := executor.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer exec.Close()
//
//	result := exec.Run(ctx, quickjs.New(), `console.log("hello")`)
//	fmt.Print(result.Output())
//
// # Runners
//
// [Executor.Runner] adapts a language to [runner.Runner]. A run completes
// once with either a single output entry holding everything the program
// printed, or a single error entry:
//
//	reg := runner.NewRegistry()
//	reg.Register("quickjs", exec.Runner(quickjs.New()))
//
// # Language Interface
//
// To add support for a new language, implement the [Language] interface.
// See [github.com/caffeineduck/runpad/language/python] for an example.
package executor
