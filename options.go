// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

import "github.com/saferwall/udonc/log"

// Heap budget modes (spec §4.6, §6).
const (
	// DefaultHeapBudgetShort is the default heap budget for the short
	// assembly extension.
	DefaultHeapBudgetShort = 512

	// DefaultHeapBudgetExtended is the default heap budget for the
	// extended assembly extension.
	DefaultHeapBudgetExtended = 1048576

	// SoftWarningThreshold is the runtime-warning threshold that applies
	// to the short assembly mode only (spec §9 Open Questions).
	SoftWarningThreshold = 65536
)

// AssemblyExtension selects which heap budget mode applies.
type AssemblyExtension int

// Assembly extensions.
const (
	ShortAssembly AssemblyExtension = iota
	ExtendedAssembly
)

// Options configures one orchestrator run, passed by pointer the way
// pe.Options configures pe.New/pe.NewBytes.
type Options struct {
	// Optimize runs the TAC optimizer pipeline; when false the lowerer
	// consumes the converter's raw TAC directly.
	Optimize bool

	// EmitReflection appends __refl_typeid/__refl_typename/__refl_typeids
	// data entries (spec §4.5).
	EmitReflection bool

	// ExcludeDirs lists directories the (external) file-discovery
	// collaborator should skip; the core does not read it and never
	// walks a filesystem itself.
	ExcludeDirs []string

	// AllowCircular permits cyclic import graphs; owned by the (external)
	// dependency-graph collaborator, threaded through untouched.
	AllowCircular bool

	// Extension selects the heap budget mode.
	Extension AssemblyExtension

	// HeapBudget overrides the default budget for Extension when non-zero.
	HeapBudget int

	// Logger receives every diagnostic the pipeline produces.
	Logger log.Logger
}

// defaulted returns a copy of opts (or a zero Options if opts is nil)
// with every zero-valued field replaced by its default, the same
// nil-then-zero-field dance as pe.New/pe.NewBytes.
func (opts *Options) defaulted() *Options {
	out := Options{}
	if opts != nil {
		out = *opts
	}
	if out.HeapBudget == 0 {
		switch out.Extension {
		case ExtendedAssembly:
			out.HeapBudget = DefaultHeapBudgetExtended
		default:
			out.HeapBudget = DefaultHeapBudgetShort
		}
	}
	if out.Logger == nil {
		out.Logger = log.NewNopLogger()
	}
	return &out
}
