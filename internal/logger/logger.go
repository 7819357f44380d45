// Package logger prints Parley's verbose turn trace. With --verbose a
// chat turn logs its routing decision, retrieval hits and backend call
// to stderr; without it the logger stays silent.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
)

var state = struct {
	sync.RWMutex
	verbose bool
	out     io.Writer
}{out: os.Stderr}

// SetVerbose enables or disables the trace.
func SetVerbose(v bool) {
	state.Lock()
	defer state.Unlock()
	state.verbose = v
}

// IsVerbose reports whether the trace is enabled.
func IsVerbose() bool {
	state.RLock()
	defer state.RUnlock()
	return state.verbose
}

// SetOutput redirects the trace. Defaults to os.Stderr; tests pass a
// buffer.
func SetOutput(w io.Writer) {
	state.Lock()
	defer state.Unlock()
	state.out = w
}

func emit(tag, format string, args ...any) {
	state.RLock()
	defer state.RUnlock()
	if !state.verbose {
		return
	}
	fmt.Fprintf(state.out, tag+" "+format+"\n", args...)
}

// Debug traces fine-grained steps inside a pipeline stage.
func Debug(format string, args ...any) {
	emit("[DEBUG]", format, args...)
}

// Info traces the outcome of a pipeline stage.
func Info(format string, args ...any) {
	emit("[INFO]", format, args...)
}

// Warn traces degraded behavior the turn recovered from.
func Warn(format string, args ...any) {
	emit("[WARN]", format, args...)
}

// Section marks the start of a pipeline stage in the trace.
func Section(name string) {
	state.RLock()
	defer state.RUnlock()
	if state.verbose {
		fmt.Fprintf(state.out, "\n-- %s --\n", name)
	}
}
