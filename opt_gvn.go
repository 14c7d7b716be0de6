// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

// passGVN implements pass 3 (spec §4.4): global value numbering over
// the CFG. A table of available expressions (keyed by operator and
// operand keys) is carried block-to-block along the dominator tree;
// entries are killed when their operands are redefined or at a
// side-effect barrier (non-pure call, property set, array assignment).
func passGVN(fn *Func) []Instr {
	cfg := BuildCFG(fn)
	if len(cfg.Blocks) == 0 {
		return fn.Instrs
	}
	dom := cfg.Dominators()
	children := map[int][]int{}
	idom := map[int]int{}
	for _, b := range cfg.Blocks {
		if b.ID == 0 {
			idom[0] = -1
			continue
		}
		best := -1
		for d := range dom[b.ID] {
			if d == b.ID {
				continue
			}
			if best == -1 || len(dom[d]) > len(dom[best]) {
				best = d
			}
		}
		idom[b.ID] = best
		children[best] = append(children[best], b.ID)
	}

	out := make([]Instr, len(fn.Instrs))
	copy(out, fn.Instrs)

	var visit func(b int, table map[string]avail)
	visit = func(b int, table map[string]avail) {
		local := map[string]avail{}
		for k, v := range table {
			local[k] = v
		}
		blk := cfg.Blocks[b]
		for i := blk.Start; i <= blk.End; i++ {
			instr := out[i]
			key, dest, ok := exprKey(instr)
			found := false
			if ok {
				var prior avail
				if prior, found = local[key]; found {
					out[i] = &Copy{Dest: dest, Src: prior.value}
				}
			}
			killAvailable(local, instr)
			if ok && !found && !containsOperandKey(key, destName(dest)) {
				local[key] = avail{value: dest}
			}
		}
		for _, c := range children[b] {
			visit(c, local)
		}
	}
	visit(0, map[string]avail{})
	return out
}

// exprKey returns a canonical key for a side-effect-free, value-producing
// instruction, suitable for value-numbering lookups, plus the operand
// that names its result.
func exprKey(instr Instr) (string, Operand, bool) {
	switch i := instr.(type) {
	case *BinaryOp:
		if isCommutative(i.Op) && opKey(i.Left) > opKey(i.Right) {
			return "bin:" + i.Op + ":" + opKey(i.Right) + ":" + opKey(i.Left), i.Dest, true
		}
		return "bin:" + i.Op + ":" + opKey(i.Left) + ":" + opKey(i.Right), i.Dest, true
	case *UnaryOp:
		return "un:" + i.Op + ":" + opKey(i.Operand), i.Dest, true
	case *Cast:
		return "cast:" + i.ToType + ":" + opKey(i.Src), i.Dest, true
	case *PropertyGet:
		return "pget:" + opKey(i.Object) + "." + i.Property, i.Dest, true
	case *ArrayAccess:
		return "aget:" + opKey(i.Array) + "[" + opKey(i.Index) + "]", i.Dest, true
	default:
		return "", nil, false
	}
}

func isCommutative(op string) bool {
	switch op {
	case "+", "*", "==", "!=", "&&", "||":
		return true
	default:
		return false
	}
}

// killAvailable drops any GVN table entry invalidated by instr: a
// redefinition of an operand it depends on, or a side-effect barrier.
func killAvailable(table map[string]avail, instr Instr) {
	switch instr.(type) {
	case *PropertySet, *ArrayAssignment, *MethodCall:
		for k := range table {
			if hasPrefix(k, "pget:") || hasPrefix(k, "aget:") {
				delete(table, k)
			}
		}
	case *Call:
		call := instr.(*Call)
		if _, pure := LookupPureExtern(call.Owner, call.Func); !pure {
			for k := range table {
				if hasPrefix(k, "pget:") || hasPrefix(k, "aget:") {
					delete(table, k)
				}
			}
		}
	}
	for _, d := range instr.Dests() {
		name := destName(d)
		if name == "" {
			continue
		}
		for k, v := range table {
			if opKey(v.value) == opKey(d) {
				delete(table, k)
				continue
			}
			if containsOperandKey(k, name) {
				delete(table, k)
			}
		}
	}
}

func hasPrefix(s, p string) bool {
	return len(s) >= len(p) && s[:len(p)] == p
}

func containsOperandKey(key, name string) bool {
	return indexOfSub(key, name) >= 0
}

func indexOfSub(s, sub string) int {
	n, m := len(s), len(sub)
	if m == 0 {
		return 0
	}
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == sub {
			return i
		}
	}
	return -1
}

type avail = struct {
	value Operand
}
