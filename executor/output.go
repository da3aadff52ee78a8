package executor

import (
	"bytes"
	"sync"
)

// outputBuffer collects guest output. The runtime may close a module from
// another goroutine while the guest is still writing.
type outputBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (o *outputBuffer) Write(data []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buf.Write(data)
}

func (o *outputBuffer) String() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buf.String()
}
