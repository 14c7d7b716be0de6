// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

import (
	"strings"
	"testing"
)

func TestAssembleEmitsVersionDataAndCodeBlocks(t *testing.T) {
	prog := &VMProgram{
		Data: []DataEntry{
			{Name: "score", Address: 0, VMType: "Int32", InitialValue: int64(0), Exported: true},
			{Name: "__const1", Address: 1, VMType: "Int32", InitialValue: int64(1)},
		},
		Code: []VMInstr{
			{Op: "PUSH", Operand: "1", Label: "start", SizeBytes: 8},
			{Op: "PUSH", Operand: "0", SizeBytes: 8},
			{Op: "COPY", SizeBytes: 4},
		},
	}
	errs := NewErrorCollector()
	out := NewAssembler().Assemble(prog, errs)
	if errs.HasErrors() {
		t.Fatalf("unexpected assembly errors: %v", errs.Errors())
	}

	wantLines := []string{
		".version v1.0.0",
		".data_start",
		"    score: %Int32, 0, export",
		"    __const1: %Int32, 1",
		".data_end",
		".extern_type Int32",
		".code_start",
		"start:",
		"    PUSH, 1",
		"    PUSH, 0",
		"    COPY",
		".code_end",
	}
	for _, want := range wantLines {
		if !strings.Contains(out, want) {
			t.Errorf("Assemble() output missing line %q\noutput:\n%s", want, out)
		}
	}
}

func TestAssembleRejectsTooNewMinVersion(t *testing.T) {
	a := &Assembler{MinVersion: "v99.0.0"}
	errs := NewErrorCollector()
	a.Assemble(&VMProgram{}, errs)
	if !errs.HasErrors() {
		t.Fatal("expected a TypeError when MinVersion exceeds the assembler's format version")
	}
	if errs.Errors()[0].Kind != TypeError {
		t.Fatalf("error kind = %v, want TypeError", errs.Errors()[0].Kind)
	}
}

func TestAssembleRejectsInvalidMinVersion(t *testing.T) {
	a := &Assembler{MinVersion: "not-a-version"}
	errs := NewErrorCollector()
	a.Assemble(&VMProgram{}, errs)
	if !errs.HasErrors() {
		t.Fatal("expected a TypeError for a malformed MinVersion constraint")
	}
}

func TestFormatInitialValueNullAndString(t *testing.T) {
	if got := formatInitialValue(nil); got != "null" {
		t.Fatalf("formatInitialValue(nil) = %q, want null", got)
	}
	if got := formatInitialValue("hi"); got != `"hi"` {
		t.Fatalf("formatInitialValue(%q) = %q, want %q", "hi", got, `"hi"`)
	}
	if got := formatInitialValue(int64(42)); got != "42" {
		t.Fatalf("formatInitialValue(42) = %q, want 42", got)
	}
}
