// Package herrors defines HulaScript's two error kinds -- compilation
// errors/warnings and runtime errors with a collapsed call stack -- per
// spec.md §7. Adapted from the teacher's internal/errors/errors.go
// (SentraError/SourceLocation/StackFrame), generalized to the spec's
// run/panic model: a compile error carries exactly one location, a
// runtime error carries a call stack of (location, repeat-count) pairs.
package herrors

import (
	"fmt"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// Location mirrors bytecode.SourceLoc without importing the bytecode
// package, so herrors stays a leaf dependency usable from the compiler,
// the VM, and the host embedder API alike.
type Location struct {
	Row, Col int
	File     string
	Function string
}

func (l Location) String() string {
	if l.File != "" {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Row, l.Col)
	}
	return fmt.Sprintf("%d:%d", l.Row, l.Col)
}

// CompileError is raised synchronously from the compiler and carries a
// single source location.
type CompileError struct {
	Message  string
	Location Location
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("CompileError: %s (at %s)", e.Message, e.Location)
}

func NewCompileError(msg string, loc Location) *CompileError {
	return &CompileError{Message: msg, Location: loc}
}

// Warning shares CompileError's shape but is non-fatal: it is returned to
// the host, which may abort or call RunLoaded to continue.
type Warning struct {
	Message  string
	Location Location
}

func (w Warning) String() string {
	return fmt.Sprintf("Warning: %s (at %s)", w.Message, w.Location)
}

// StackEntry is one (location, repeat-count) pair in a collapsed call
// stack: consecutive identical frames (recursive calls at the same call
// site) fold into a single entry plus a count.
type StackEntry struct {
	Location Location
	Count    int
}

// RuntimeError carries a message and the call stack captured at the
// moment of panic.
type RuntimeError struct {
	Message string
	Stack   []StackEntry
	cause   error
}

func (e *RuntimeError) Error() string {
	var sb strings.Builder
	sb.WriteString("RuntimeError: ")
	sb.WriteString(e.Message)
	for _, f := range e.Stack {
		if f.Count > 1 {
			fmt.Fprintf(&sb, "\n  at %s (x%d)", f.Location, f.Count)
		} else {
			fmt.Fprintf(&sb, "\n  at %s", f.Location)
		}
	}
	return sb.String()
}

func (e *RuntimeError) Unwrap() error { return e.cause }

// NewRuntimeError builds a RuntimeError from a flat list of frames,
// collapsing consecutive repeats into (location, count) entries.
func NewRuntimeError(msg string, frames []Location) *RuntimeError {
	return &RuntimeError{Message: msg, Stack: collapse(frames)}
}

func collapse(frames []Location) []StackEntry {
	var out []StackEntry
	for _, f := range frames {
		if n := len(out); n > 0 && out[n-1].Location == f {
			out[n-1].Count++
			continue
		}
		out = append(out, StackEntry{Location: f, Count: 1})
	}
	return out
}

// WrapForeign wraps an error surfaced from a foreign call (a database
// driver, a websocket client, ...) with pkg/errors so the original cause
// chain survives inside a RuntimeError -- grounded on the teacher's
// go.mod, which pulls github.com/pkg/errors transitively via
// denisenkom/go-mssqldb but never imports it directly; SPEC_FULL promotes
// it to a direct dependency exercised right here.
func WrapForeign(err error, msg string, frames []Location) *RuntimeError {
	wrapped := pkgerrors.Wrap(err, msg)
	re := NewRuntimeError(wrapped.Error(), frames)
	re.cause = err
	return re
}
