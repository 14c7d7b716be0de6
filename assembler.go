// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// AssemblerFormatVersion is the .version directive this assembler
// stamps on every output; golang.org/x/mod/semver validates it and any
// caller-supplied compatibility floor at assembly time (spec §6).
const AssemblerFormatVersion = "v1.0.0"

func init() {
	if !semver.IsValid(AssemblerFormatVersion) {
		panic("udonc: AssemblerFormatVersion is not valid semver: " + AssemblerFormatVersion)
	}
}

// Assembler serializes a VMProgram into the assembly text grammar
// (spec §6).
type Assembler struct {
	// MinVersion, if non-empty, is the lowest format version the target
	// runtime accepts; Assemble reports a TypeError when
	// AssemblerFormatVersion is older.
	MinVersion string
}

// NewAssembler returns an Assembler with no minimum-version floor.
func NewAssembler() *Assembler { return &Assembler{} }

// Assemble renders prog as assembly text. errs receives a TypeError
// (not a panic) when MinVersion is set and invalid, or newer than the
// format this assembler emits — this mirrors the rest of the pipeline's
// collect-and-continue error discipline (spec §7).
func (a *Assembler) Assemble(prog *VMProgram, errs *ErrorCollector) string {
	if a.MinVersion != "" {
		if !semver.IsValid(a.MinVersion) {
			errs.Add(NewCompileError(TypeError, "", 0, 0,
				"assembler: invalid minimum version constraint "+a.MinVersion))
		} else if semver.Compare(AssemblerFormatVersion, a.MinVersion) < 0 {
			errs.Add(NewCompileError(TypeError, "", 0, 0,
				fmt.Sprintf("assembler: format %s is older than required minimum %s",
					AssemblerFormatVersion, a.MinVersion)))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, ".version %s\n", AssemblerFormatVersion)
	a.writeDataBlock(&b, prog.Data)
	a.writeCodeBlock(&b, prog.Code)
	return b.String()
}

func (a *Assembler) writeDataBlock(b *strings.Builder, entries []DataEntry) {
	b.WriteString(".data_start\n")
	for _, e := range entries {
		fmt.Fprintf(b, "    %s: %%%s, %s", e.Name, e.VMType, formatInitialValue(e.InitialValue))
		if e.SyncMode != "" {
			fmt.Fprintf(b, ", sync=%s", e.SyncMode)
		}
		if e.Exported {
			b.WriteString(", export")
		}
		b.WriteString("\n")
	}
	b.WriteString(".data_end\n")
	a.writeExternDeclarations(b, entries)
}

// writeExternDeclarations emits one per-type extern declaration line
// per distinct vmType appearing in the data section, the "per-type
// extern declarations" the grammar calls for alongside the data block
// (spec §4.5).
func (a *Assembler) writeExternDeclarations(b *strings.Builder, entries []DataEntry) {
	seen := map[string]bool{}
	var order []string
	for _, e := range entries {
		if !seen[e.VMType] {
			seen[e.VMType] = true
			order = append(order, e.VMType)
		}
	}
	for _, t := range order {
		fmt.Fprintf(b, ".extern_type %s\n", t)
	}
}

func formatInitialValue(v interface{}) string {
	if v == nil {
		return "null"
	}
	switch val := v.(type) {
	case string:
		return fmt.Sprintf("%q", val)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func (a *Assembler) writeCodeBlock(b *strings.Builder, code []VMInstr) {
	b.WriteString(".code_start\n")
	for _, instr := range code {
		if instr.Label != "" {
			fmt.Fprintf(b, "%s:\n", instr.Label)
		}
		if instr.Operand == "" {
			fmt.Fprintf(b, "    %s\n", instr.Op)
		} else {
			fmt.Fprintf(b, "    %s, %s\n", instr.Op, instr.Operand)
		}
	}
	b.WriteString(".code_end\n")
}
