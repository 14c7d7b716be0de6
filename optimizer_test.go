// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

import "testing"

func constI(v int64) *Constant { return &Constant{Value: v, UdonType: "System.Int32"} }

func TestPassConstantFoldArithmetic(t *testing.T) {
	dest := &Temporary{ID: 1, Type: "int"}
	fn := &Func{Instrs: []Instr{
		&BinaryOp{Dest: dest, Op: "+", Left: constI(2), Right: constI(3)},
	}}
	out := passConstantFold(fn)
	asn, ok := out[0].(*Assignment)
	if !ok {
		t.Fatalf("out[0] = %T, want *Assignment", out[0])
	}
	c, ok := asn.Src.(*Constant)
	if !ok || c.Value.(int64) != 5 {
		t.Fatalf("folded value = %+v, want constant 5", asn.Src)
	}
}

func TestPassConstantFoldLeavesNonConstUnchanged(t *testing.T) {
	dest := &Temporary{ID: 1, Type: "int"}
	v := &Variable{Name: "x", Type: "int", IsLocal: true}
	fn := &Func{Instrs: []Instr{
		&BinaryOp{Dest: dest, Op: "+", Left: v, Right: constI(3)},
	}}
	out := passConstantFold(fn)
	if _, ok := out[0].(*BinaryOp); !ok {
		t.Fatalf("out[0] = %T, want unchanged *BinaryOp when an operand isn't constant", out[0])
	}
}

func TestPassConstantFoldPureExtern(t *testing.T) {
	dest := &Temporary{ID: 1, Type: "float"}
	fn := &Func{Instrs: []Instr{
		&Call{Dest: dest, Owner: "Mathf", Func: "Abs", Args: []Operand{
			&Constant{Value: float64(-4), UdonType: "System.Single"},
		}},
	}}
	out := passConstantFold(fn)
	asn, ok := out[0].(*Assignment)
	if !ok {
		t.Fatalf("out[0] = %T, want *Assignment (pure extern folded)", out[0])
	}
	c := asn.Src.(*Constant)
	if c.Value.(float64) != 4 {
		t.Fatalf("folded Mathf.Abs(-4) = %v, want 4", c.Value)
	}
}

func TestPassConstantFoldImpureCallUnchanged(t *testing.T) {
	fn := &Func{Instrs: []Instr{
		&Call{Owner: "Debug", Func: "Log", Args: []Operand{constI(1)}},
	}}
	out := passConstantFold(fn)
	if _, ok := out[0].(*Call); !ok {
		t.Fatalf("out[0] = %T, want unchanged *Call (Debug.Log has side effects)", out[0])
	}
}

func TestPassDCERemovesDeadPureProducerAndNoOpCopy(t *testing.T) {
	dead := &Temporary{ID: 1, Type: "int"}
	x := &Variable{Name: "x", Type: "int", IsLocal: true}
	fn := &Func{Instrs: []Instr{
		&BinaryOp{Dest: dead, Op: "+", Left: constI(1), Right: constI(2)}, // never used after
		&Copy{Dest: x, Src: x},                                            // no-op
		&Return{},
	}}
	out := passDCE(fn)
	for _, instr := range out {
		if instr == fn.Instrs[0] {
			t.Fatal("dead pure producer survived passDCE")
		}
		if cp, ok := instr.(*Copy); ok && opKey(cp.Dest) == opKey(cp.Src) {
			t.Fatal("no-op copy survived passDCE")
		}
	}
}

func TestPassDCEDropsUnreachableTail(t *testing.T) {
	x := &Variable{Name: "x", Type: "int", IsLocal: true}
	fn := &Func{Instrs: []Instr{
		&Return{},
		&Copy{Dest: x, Src: constI(1)}, // unreachable: follows a terminator
	}}
	out := passDCE(fn)
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1 (unreachable Copy dropped)", len(out))
	}
}

func TestPassGVNReusesAvailableExpressionAcrossBlocks(t *testing.T) {
	x := &Variable{Name: "x", Type: "int", IsLocal: true}
	t1 := &Temporary{ID: 1, Type: "int"}
	t2 := &Temporary{ID: 2, Type: "int"}
	lbl := &Label{Name: "L1"}
	fn := &Func{Instrs: []Instr{
		&BinaryOp{Dest: t1, Op: "+", Left: x, Right: constI(1)},
		&UnconditionalJump{Target: lbl},
		&LabelInstr{L: lbl},
		&BinaryOp{Dest: t2, Op: "+", Left: x, Right: constI(1)}, // same expr, dominated by t1's block
	}}
	out := passGVN(fn)
	last := out[len(out)-1]
	cp, ok := last.(*Copy)
	if !ok {
		t.Fatalf("out[last] = %T, want *Copy reusing t1's value", last)
	}
	if opKey(cp.Src) != opKey(t1) {
		t.Fatalf("GVN reused %v, want t1", cp.Src)
	}
}

func TestPassGVNKillsAvailabilityAfterRedefinition(t *testing.T) {
	x := &Variable{Name: "x", Type: "int", IsLocal: true}
	t1 := &Temporary{ID: 1, Type: "int"}
	t2 := &Temporary{ID: 2, Type: "int"}
	fn := &Func{Instrs: []Instr{
		&BinaryOp{Dest: t1, Op: "+", Left: x, Right: constI(1)},
		&Copy{Dest: x, Src: constI(9)}, // redefines x, kills the available expr
		&BinaryOp{Dest: t2, Op: "+", Left: x, Right: constI(1)},
	}}
	out := passGVN(fn)
	if _, ok := out[2].(*BinaryOp); !ok {
		t.Fatalf("out[2] = %T, want unchanged *BinaryOp once x was redefined", out[2])
	}
}

func TestPassJumpSimplifyDropsFallthroughJump(t *testing.T) {
	lbl := &Label{Name: "next"}
	fn := &Func{Instrs: []Instr{
		&UnconditionalJump{Target: lbl},
		&LabelInstr{L: lbl},
		&Return{},
	}}
	out := passJumpSimplify(fn)
	for _, instr := range out {
		if _, ok := instr.(*UnconditionalJump); ok {
			t.Fatal("fallthrough jump to the immediately-following label survived passJumpSimplify")
		}
	}
}

func TestPassJumpSimplifyThreadsJumpChain(t *testing.T) {
	a := &Label{Name: "A"}
	b := &Label{Name: "B"}
	fn := &Func{Instrs: []Instr{
		&UnconditionalJump{Target: a},
		&Return{},
		&LabelInstr{L: a},
		&UnconditionalJump{Target: b},
		&Return{},
		&LabelInstr{L: b},
		&Return{},
	}}
	out := passJumpSimplify(fn)
	first, ok := out[0].(*UnconditionalJump)
	if !ok {
		t.Fatalf("out[0] = %T, want *UnconditionalJump", out[0])
	}
	if first.Target.Name != "B" {
		t.Fatalf("threaded jump target = %s, want B", first.Target.Name)
	}
}

func TestOptimizeReachesFixedPoint(t *testing.T) {
	dest := &Temporary{ID: 1, Type: "int"}
	fn := &Func{Instrs: []Instr{
		&BinaryOp{Dest: dest, Op: "+", Left: constI(1), Right: constI(1)},
		&Return{Value: dest},
	}}
	Optimize(fn)
	if len(fn.Instrs) != 2 {
		t.Fatalf("len(fn.Instrs) = %d, want 2 after folding to a constant assignment", len(fn.Instrs))
	}
	asn, ok := fn.Instrs[0].(*Assignment)
	if !ok {
		t.Fatalf("fn.Instrs[0] = %T, want *Assignment", fn.Instrs[0])
	}
	if asn.Src.(*Constant).Value.(int64) != 2 {
		t.Fatalf("folded constant = %v, want 2", asn.Src.(*Constant).Value)
	}
}
