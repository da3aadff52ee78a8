package console

import (
	"fmt"
)

// Kind distinguishes normal program output from a failure.
type Kind int

const (
	// Output is text the program printed.
	Output Kind = iota
	// Error is the message of the failure that ended a run.
	Error
)

func (k Kind) String() string {
	switch k {
	case Output:
		return "output"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// MarshalText encodes the kind as "output" or "error".
func (k Kind) MarshalText() ([]byte, error) {
	switch k {
	case Output, Error:
		return []byte(k.String()), nil
	}
	return nil, fmt.Errorf("invalid kind %d", int(k))
}

// UnmarshalText decodes "output" or "error".
func (k *Kind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "output":
		*k = Output
	case "error":
		*k = Error
	default:
		return fmt.Errorf("invalid kind %q", text)
	}
	return nil
}

// Entry is one captured output or error event.
type Entry struct {
	Sequence uint64 `json:"sequence"`
	Kind     Kind   `json:"kind"`
	Text     string `json:"text"`
}

// IsError reports whether the entry records a failure.
func (e Entry) IsError() bool {
	return e.Kind == Error
}
