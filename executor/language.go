package executor

// Language defines the interface for a WASM-based language runtime.
// Implement this interface to add support for new languages.
type Language interface {
	// Name returns a unique identifier for this language (e.g., "python", "quickjs").
	// Used as the cache key for compiled modules.
	Name() string

	// Module returns the WASM binary for the language interpreter.
	Module() []byte

	// WrapCode prepares user code for execution, e.g. by prepending a prelude.
	WrapCode(code string) string

	// Args returns the command-line arguments to pass to the WASM module.
	// For Python: []string{"python", "-c", code}
	// For QuickJS: []string{"qjs", "--std", "-e", code}
	Args(wrappedCode string) []string
}

// ErrorFormatter is implemented by languages that can reduce the
// interpreter's stderr on failure to a one-line message.
type ErrorFormatter interface {
	FormatError(stderr string) string
}
