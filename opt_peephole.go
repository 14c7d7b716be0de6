// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

// passPeephole implements pass 6 (spec §4.4): double-negation
// elimination, negated-comparison fusion, and narrow-type cast
// elimination.
func passPeephole(fn *Func) []Instr {
	useCounts := countUses(fn.Instrs)
	defOf := defIndex(fn.Instrs)

	out := make([]Instr, len(fn.Instrs))
	for i, instr := range fn.Instrs {
		out[i] = peepholeOne(instr, useCounts, defOf, fn.Instrs)
	}
	return out
}

// countUses counts, by operand key, how many instructions use a given
// temporary/variable — needed to confirm an intermediate is
// single-use before fusing it away.
func countUses(instrs []Instr) map[string]int {
	counts := map[string]int{}
	for _, instr := range instrs {
		for _, u := range instr.Uses() {
			counts[opKey(u)]++
		}
	}
	return counts
}

// defIndex maps an operand key to the instruction that defines it.
func defIndex(instrs []Instr) map[string]Instr {
	idx := map[string]Instr{}
	for _, instr := range instrs {
		for _, d := range instr.Dests() {
			idx[opKey(d)] = instr
		}
	}
	return idx
}

var negatedComparison = map[string]string{
	"<": ">=", "<=": ">", ">": "<=", ">=": "<", "==": "!=", "!=": "==",
}

func peepholeOne(instr Instr, useCounts map[string]int, defOf map[string]Instr, all []Instr) Instr {
	if un, ok := instr.(*UnaryOp); ok && un.Op == "!" {
		operandKey := opKey(un.Operand)
		def, ok := defOf[operandKey]
		if ok && useCounts[operandKey] == 1 {
			switch d := def.(type) {
			case *UnaryOp:
				if d.Op == "!" {
					// Double negation: !(!x) == x.
					return &Copy{Dest: un.Dest, Src: d.Operand}
				}
			case *BinaryOp:
				if inv, ok := negatedComparison[d.Op]; ok {
					return &BinaryOp{Dest: un.Dest, Op: inv, Left: d.Left, Right: d.Right}
				}
			}
		}
		return instr
	}

	if cast, ok := instr.(*Cast); ok {
		if eliminable := narrowCastEliminable(cast, useCounts, all); eliminable {
			return &Copy{Dest: cast.Dest, Src: cast.Src}
		}
	}
	return instr
}

// narrowCastEliminable reports whether cast.Dest is used only by
// integer comparisons against in-range constants of matching
// signedness — the one case spec §4.4 pass 6 allows a narrowing cast
// to be dropped, since the comparison's result is unaffected by the
// narrowing.
func narrowCastEliminable(cast *Cast, useCounts map[string]int, all []Instr) bool {
	if cast.ToType != "int" && cast.ToType != "Int32" {
		return false
	}
	key := opKey(cast.Dest)
	if useCounts[key] == 0 {
		return false
	}
	uses := 0
	for _, instr := range all {
		bin, ok := instr.(*BinaryOp)
		if !ok {
			continue
		}
		usesLeft := opKey(bin.Left) == key
		usesRight := opKey(bin.Right) == key
		if !usesLeft && !usesRight {
			continue
		}
		switch bin.Op {
		case "<", "<=", ">", ">=", "==", "!=":
		default:
			return false
		}
		other := bin.Right
		if usesRight {
			other = bin.Left
		}
		c, ok := other.(*Constant)
		if !ok {
			return false
		}
		v, isInt := c.Value.(int64)
		if !isInt || v < -2147483648 || v > 2147483647 {
			return false
		}
		uses++
	}
	return uses == useCounts[key]
}
