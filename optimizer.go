// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

// pass is one optimization pass: pure, conservative, returns a
// rewritten instruction list (spec §4.4: "every pass is pure: it
// consumes a list and returns a new list").
type pass func(fn *Func) []Instr

// passOrder is the fixed step ordering from spec §4.4. The outer loop
// re-enters from step 1 after any change in a complete cycle.
var passOrder = []pass{
	passConstantFold,
	passSCCP,
	passGVN,
	passPRE,
	passLICM,
	passStrengthReduction,
	passUnroll,
	passPeephole,
	passVecStringPeephole,
	passTempColoring,
	passCopyOnWrite,
	passDCE,
	passJumpSimplify,
	passTailCallMark,
	passTailMerge,
	passBlockLayout,
	passCodeSink,
}

// maxOuterIterations bounds the fixed-point loop itself (distinct from
// SCCP's own internal worklist cap) so a cycling pass pair can never
// hang the compiler.
const maxOuterIterations = 64

// Optimize runs passOrder to a fixed point: it repeats the full
// sequence until one complete cycle makes no change, per spec §4.4.
func Optimize(fn *Func) {
	for iter := 0; iter < maxOuterIterations; iter++ {
		changed := false
		for _, p := range passOrder {
			before := fn.Instrs
			after := p(fn)
			if !instrsEqual(before, after) {
				changed = true
			}
			fn.Instrs = after
		}
		if !changed {
			return
		}
	}
}

// instrsEqual compares two instruction streams by structural equality
// over normalized operand keys (spec §4.4's equality rule for
// detecting fixed-point convergence).
func instrsEqual(a, b []Instr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if instrKey(a[i]) != instrKey(b[i]) {
			return false
		}
	}
	return true
}

func opKey(op Operand) string {
	if op == nil {
		return "<nil>"
	}
	return op.Key()
}

// instrKey renders an instruction to a canonical string for the
// equality check above; it never needs to round-trip, only compare.
func instrKey(instr Instr) string {
	switch i := instr.(type) {
	case *Assignment:
		return "asn:" + opKey(i.Dest) + "=" + opKey(i.Src)
	case *Copy:
		return "cpy:" + opKey(i.Dest) + "=" + opKey(i.Src)
	case *Cast:
		return "cast:" + opKey(i.Dest) + "=" + i.ToType + "(" + opKey(i.Src) + ")"
	case *BinaryOp:
		return "bin:" + opKey(i.Dest) + "=" + opKey(i.Left) + i.Op + opKey(i.Right)
	case *UnaryOp:
		return "un:" + opKey(i.Dest) + "=" + i.Op + opKey(i.Operand)
	case *Call:
		s := "call:" + opKey(i.Dest) + "=" + i.Owner + "." + i.Func + "("
		for _, a := range i.Args {
			s += opKey(a) + ","
		}
		return s + ")"
	case *MethodCall:
		s := "mcall:" + opKey(i.Dest) + "=" + opKey(i.Object) + "." + i.Method + "("
		for _, a := range i.Args {
			s += opKey(a) + ","
		}
		return s + ")"
	case *PropertyGet:
		return "pget:" + opKey(i.Dest) + "=" + opKey(i.Object) + "." + i.Property
	case *PropertySet:
		return "pset:" + opKey(i.Object) + "." + i.Property + "=" + opKey(i.Value)
	case *ArrayAccess:
		return "aget:" + opKey(i.Dest) + "=" + opKey(i.Array) + "[" + opKey(i.Index) + "]"
	case *ArrayAssignment:
		return "aset:" + opKey(i.Array) + "[" + opKey(i.Index) + "]=" + opKey(i.Value)
	case *Return:
		return "ret:" + opKey(i.Value)
	case *UnconditionalJump:
		return "jmp:" + i.Target.Name
	case *ConditionalJump:
		return "jf:" + opKey(i.Condition) + "->" + i.Target.Name
	case *LabelInstr:
		return "lbl:" + i.L.Name
	case *Phi:
		s := "phi:" + opKey(i.Dest) + "="
		for _, src := range i.Sources {
			s += opKey(src) + ","
		}
		return s
	default:
		return "?"
	}
}

// isPureProducer reports whether instr's only effect is defining its
// destination from its uses, with no observable side effect — the
// predicate DCE, LICM, and code sinking all share.
func isPureProducer(instr Instr) bool {
	switch i := instr.(type) {
	case *Assignment, *Copy, *Cast, *BinaryOp, *UnaryOp, *ArrayAccess:
		return true
	case *PropertyGet:
		return true
	case *Call:
		if i.Owner == "" || i.Func == "" {
			return false
		}
		_, ok := LookupPureExtern(i.Owner, i.Func)
		return ok
	default:
		return false
	}
}
