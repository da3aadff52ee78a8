package console

import (
	"bytes"
	"io"
	"sync"
)

// Log is an append-only, ordered buffer of entries. It is safe for
// concurrent use.
type Log struct {
	mu      sync.RWMutex
	entries []Entry
	next    uint64
}

// NewLog returns an empty log.
func NewLog() *Log {
	return &Log{next: 1}
}

// Append records a new entry and returns it. Sequence numbers keep
// increasing across Clear.
func (l *Log) Append(kind Kind, text string) Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.next == 0 {
		l.next = 1
	}
	e := Entry{Sequence: l.next, Kind: kind, Text: text}
	l.next++
	l.entries = append(l.entries, e)
	return e
}

// Clear removes every entry.
func (l *Log) Clear() {
	l.mu.Lock()
	l.entries = nil
	l.mu.Unlock()
}

// Snapshot returns a copy of the entries in insertion order.
func (l *Log) Snapshot() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of entries currently held.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// WriteTo writes the entry texts joined by newlines, the format used when
// the console is downloaded.
func (l *Log) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	for i, e := range l.Snapshot() {
		if i > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(e.Text)
	}
	return buf.WriteTo(w)
}
