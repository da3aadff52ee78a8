// Package quickjs provides the QuickJS language adapter for the wasm executor.
package quickjs

import (
	"strings"

	quickjswasi "github.com/paralin/go-quickjs-wasi"
)

// QuickJS implements executor.Language for JavaScript run inside the
// emulated QuickJS interpreter.
type QuickJS struct{}

// New returns a QuickJS language adapter.
func New() *QuickJS {
	return &QuickJS{}
}

// Name returns "quickjs".
func (q *QuickJS) Name() string {
	return "quickjs"
}

// Module returns the QuickJS WASM binary.
func (q *QuickJS) Module() []byte {
	return quickjswasi.QuickJSWASM
}

// WrapCode returns code unchanged; std and os are exposed by --std.
func (q *QuickJS) WrapCode(code string) string {
	return code
}

// Args returns the command-line arguments for the QuickJS interpreter.
func (q *QuickJS) Args(wrappedCode string) []string {
	return []string{"qjs", "--std", "-e", wrappedCode}
}

// FormatError keeps the first line of an uncaught exception dump, which
// holds the error's string form; the following lines are the stack.
func (q *QuickJS) FormatError(stderr string) string {
	for _, line := range strings.Split(stderr, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
