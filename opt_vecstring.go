// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

// passVecStringPeephole implements pass 7 (spec §4.4): fuse three
// consecutive `(get component, add constant, set component)` triples
// on the same vector into one vector add, when the intermediate
// temporaries are each single-use.
//
// Shape recognized, back to back in the instruction stream:
//
//	t1 = PropertyGet(v, "x")
//	t2 = t1 + c          (BinaryOp "+")
//	PropertySet(v, "x", t2)
//
// Three such triples on the same v across "x"/"y"/"z" collapse into a
// single vector-add MethodCall against the runtime's vector-add
// extern, leaving the fused constant as its argument.
func passVecStringPeephole(fn *Func) []Instr {
	useCounts := countUses(fn.Instrs)
	out := append([]Instr(nil), fn.Instrs...)

	i := 0
	var result []Instr
	components := []string{"x", "y", "z"}
	for i < len(out) {
		if triple, n, vec, consts, ok := matchVectorAddTriples(out, i, useCounts); ok {
			_ = components
			result = append(result, &MethodCall{
				Object: vec,
				Method: "__vecadd3",
				Args:   consts,
			})
			_ = triple
			i += n
			continue
		}
		result = append(result, out[i])
		i++
	}
	return result
}

// matchVectorAddTriples scans up to three consecutive (get, add-const,
// set) triples starting at i that all target the same vector operand
// on distinct properties, and reports a match only when three are
// found, returning the number of instructions consumed.
func matchVectorAddTriples(instrs []Instr, i int, useCounts map[string]int) (bool, int, Operand, []Operand, bool) {
	var vec Operand
	var consts []Operand
	consumed := 0
	seenComponents := map[string]bool{}

	for len(seenComponents) < 3 {
		get, ok := tripleAt(instrs, i+consumed)
		if !ok {
			break
		}
		g, add, set := get.get, get.add, get.set
		if vec == nil {
			vec = g.Object
		} else if opKey(vec) != opKey(g.Object) {
			break
		}
		if set.Object == nil || opKey(set.Object) != opKey(vec) || set.Property != g.Property {
			break
		}
		if seenComponents[g.Property] {
			break
		}
		if useCounts[opKey(add.Dest)] != 1 || useCounts[opKey(g.Dest)] != 1 {
			break
		}
		c, isConst := add.Right.(*Constant)
		if !isConst {
			break
		}
		seenComponents[g.Property] = true
		consts = append(consts, c)
		consumed += 3
	}
	if len(seenComponents) < 3 {
		return false, 0, nil, nil, false
	}
	return true, consumed, vec, consts, true
}

type vecTriple struct {
	get *PropertyGet
	add *BinaryOp
	set *PropertySet
}

func tripleAt(instrs []Instr, i int) (vecTriple, bool) {
	if i+2 >= len(instrs) {
		return vecTriple{}, false
	}
	get, ok1 := instrs[i].(*PropertyGet)
	add, ok2 := instrs[i+1].(*BinaryOp)
	set, ok3 := instrs[i+2].(*PropertySet)
	if !ok1 || !ok2 || !ok3 || add.Op != "+" {
		return vecTriple{}, false
	}
	if opKey(add.Left) != opKey(get.Dest) {
		return vecTriple{}, false
	}
	if opKey(set.Value) != opKey(add.Dest) {
		return vecTriple{}, false
	}
	return vecTriple{get: get, add: add, set: set}, true
}
