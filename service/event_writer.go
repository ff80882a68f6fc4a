package service

import (
	"fmt"
	"sync"
)

// EventEmitter collects yield/outcome notices for a running session and
// forwards each one to an optional callback. TinyVM programs have no console
// I/O, so unlike a text-output buffer this holds structured event lines (one
// each time a session run stops: breakpoint, watchpoint change, halt or
// budget exhaustion, or coordinator outcome) that the API layer can drain.
type EventEmitter struct {
	mu     sync.Mutex
	lines  []string
	onLine func(string)
}

// NewEventEmitter creates an emitter. onLine may be nil.
func NewEventEmitter(onLine func(string)) *EventEmitter {
	return &EventEmitter{onLine: onLine}
}

// Emitf formats and records one event line.
func (e *EventEmitter) Emitf(format string, args ...interface{}) {
	line := fmt.Sprintf(format, args...)
	e.mu.Lock()
	e.lines = append(e.lines, line)
	cb := e.onLine
	e.mu.Unlock()
	if cb != nil {
		cb(line)
	}
}

// SetCallback installs (or replaces) the per-line callback.
func (e *EventEmitter) SetCallback(onLine func(string)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onLine = onLine
}

// Drain returns all buffered lines and clears the buffer.
func (e *EventEmitter) Drain() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := e.lines
	e.lines = nil
	return out
}
