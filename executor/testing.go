package executor

import (
	"sync"
)

var (
	testMu       sync.Mutex
	testExecutor *Executor
)

// GetTestExecutor returns an executor shared by the tests of a package so
// interpreters are compiled once. langs are compiled when the executor is
// first created; later calls reuse it and compile lazily.
func GetTestExecutor(langs ...Language) (*Executor, error) {
	testMu.Lock()
	defer testMu.Unlock()

	if testExecutor != nil {
		return testExecutor, nil
	}
	e, err := New(WithPrecompile(langs...), WithMemoryLimit(MemoryLimit256MB))
	if err != nil {
		return nil, err
	}
	testExecutor = e
	return e, nil
}

// CloseTestExecutor closes the shared test executor.
func CloseTestExecutor() {
	testMu.Lock()
	defer testMu.Unlock()

	if testExecutor != nil {
		testExecutor.Close()
		testExecutor = nil
	}
}
