// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a CompileError (spec §7).
type ErrorKind int

// Error kinds.
const (
	// UnsupportedSyntax is reported when the AST contains a construct the
	// converter cannot lower.
	UnsupportedSyntax ErrorKind = iota

	// UnsupportedFeature is reported when a construct is recognized but
	// disabled for this target.
	UnsupportedFeature

	// TypeError covers duplicate top-level consts, incompatible overrides,
	// and missing base classes.
	TypeError

	// InternalError is reported when an invariant is violated inside a
	// pass, e.g. a missing extern signature at lowering time.
	InternalError
)

func (k ErrorKind) String() string {
	switch k {
	case UnsupportedSyntax:
		return "UnsupportedSyntax"
	case UnsupportedFeature:
		return "UnsupportedFeature"
	case TypeError:
		return "TypeError"
	case InternalError:
		return "InternalError"
	default:
		return "UnknownError"
	}
}

// Sentinel errors for fixed-message failures that never need a position.
var (
	// ErrMissingExternSignature carries the fixed message for a
	// signature the ESR could not resolve during TAC→VM lowering. No
	// function in this package returns it: the lowerer reports that case
	// as an InternalError CompileError through its ErrorCollector.
	ErrMissingExternSignature = errors.New("udonc: missing extern signature")

	// ErrMissingRuntimeBase carries the fixed message for an entry class
	// whose base chain does not terminate at the required runtime base
	// class. No function in this package returns it: inheritance.go
	// reports that case as a CompileError through its ErrorCollector.
	ErrMissingRuntimeBase = errors.New("udonc: entry class does not derive from the runtime base class")

	// ErrNoEntryPoints is returned when a program set contains no class
	// decorated as an entry point.
	ErrNoEntryPoints = errors.New("udonc: no entry point classes found")

	// ErrHeapBudgetExceeded carries the fixed message for an over-budget
	// compilation. No function in this package returns it: an over-budget
	// entry point carries a *BudgetReport in CompiledEntryPoint.Budget.
	ErrHeapBudgetExceeded = errors.New("udonc: heap budget exceeded")
)

// CompileError is a positioned, suggestion-carrying error (spec §7).
type CompileError struct {
	Kind       ErrorKind
	File       string
	Line       int
	Column     int
	Message    string
	Suggestion string
}

func (e *CompileError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s:%d:%d: %s: %s", e.File, e.Line, e.Column, e.Kind, e.Message)
	if e.Suggestion != "" {
		fmt.Fprintf(&b, " (suggestion: %s)", e.Suggestion)
	}
	return b.String()
}

// NewCompileError builds a CompileError, the constructor every stage
// that can fail recoverably goes through.
func NewCompileError(kind ErrorKind, file string, line, col int, msg string) *CompileError {
	return &CompileError{Kind: kind, File: file, Line: line, Column: col, Message: msg}
}

// WithSuggestion attaches a human-readable fix suggestion and returns the
// same error for chaining at the call site.
func (e *CompileError) WithSuggestion(s string) *CompileError {
	e.Suggestion = s
	return e
}

// ErrorCollector accumulates recoverable errors across parsing and
// semantic analysis instead of aborting (spec §5, §7). The parser skips
// the offending statement and resumes; the orchestrator drains the
// collector between stages.
type ErrorCollector struct {
	errs []*CompileError
}

// NewErrorCollector returns an empty collector.
func NewErrorCollector() *ErrorCollector {
	return &ErrorCollector{}
}

// Add records an error and keeps going.
func (c *ErrorCollector) Add(err *CompileError) {
	c.errs = append(c.errs, err)
}

// HasErrors reports whether anything was collected.
func (c *ErrorCollector) HasErrors() bool {
	return len(c.errs) > 0
}

// Errors returns the collected errors in collection order.
func (c *ErrorCollector) Errors() []*CompileError {
	return c.errs
}

// Reset clears the collector for reuse across entry points.
func (c *ErrorCollector) Reset() {
	c.errs = nil
}

// AggregateError wraps every error collected before stage-boundary
// output; the orchestrator raises this instead of unwinding the stack
// for ordinary user errors (spec §9 design note).
type AggregateError struct {
	Errors []*CompileError
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	lines := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		lines[i] = err.Error()
	}
	return fmt.Sprintf("%d errors:\n  %s", len(lines), strings.Join(lines, "\n  "))
}

// Unwrap exposes the first error so errors.Is/As keep working against a
// single aggregate.
func (e *AggregateError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[0]
}

// AggregateIfAny returns an *AggregateError wrapping c's contents, or nil
// if nothing was collected.
func (c *ErrorCollector) AggregateIfAny() error {
	if !c.HasErrors() {
		return nil
	}
	return &AggregateError{Errors: append([]*CompileError(nil), c.errs...)}
}
