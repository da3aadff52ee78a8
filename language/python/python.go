// Package python provides the Python language adapter for the wasm executor.
//
// The interpreter is a WASI build of RustPython loaded from disk; fetch one
// with `runpad fetch <url>`.
package python

import (
	"fmt"
	"os"
	"strings"
)

// Python implements executor.Language for Python execution.
type Python struct {
	module []byte
}

// New returns a Python adapter for an already loaded interpreter binary.
func New(module []byte) *Python {
	return &Python{module: module}
}

// Load reads the interpreter binary at path.
func Load(path string) (*Python, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load python module: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("load python module: %s is empty", path)
	}
	return New(data), nil
}

// Name returns "python".
func (p *Python) Name() string {
	return "python"
}

// Module returns the RustPython WASM binary.
func (p *Python) Module() []byte {
	return p.module
}

// WrapCode returns code unchanged.
func (p *Python) WrapCode(code string) string {
	return code
}

// Args returns the command-line arguments for the Python interpreter.
func (p *Python) Args(wrappedCode string) []string {
	return []string{"python", "-c", wrappedCode}
}

// FormatError reduces a traceback to its final line, e.g.
// "ValueError: test error".
func (p *Python) FormatError(stderr string) string {
	lines := strings.Split(strings.TrimRight(stderr, "\n"), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
