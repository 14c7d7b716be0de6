// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

// excludedLocalPrefixes are the specifically-prefixed local names pass
// 8 excludes from reuse (spec §4.4), reserved for runtime-managed
// storage (instance slot shadow, recursion guard, previous-value
// tracking, scene-graph singletons).
var excludedLocalPrefixes = []string{"__inst_", "__recursionStack_", "__prev_", "__gameObject", "__transform"}

func isExcludedLocal(v *Variable) bool {
	if v.IsParameter || v.IsExported || v.Name == thisParam || !v.IsLocal {
		return true
	}
	for _, p := range excludedLocalPrefixes {
		if hasPrefix(v.Name, p) {
			return true
		}
	}
	return false
}

// passTempColoring implements pass 8 (spec §4.4): builds a live-range
// interference graph over temporaries (and separately over eligible
// local variables) of matching VM type, then greedily colors it so a
// single color holds exactly one type, and rewrites every temporary
// (or eligible local) to its assigned representative.
func passTempColoring(fn *Func) []Instr {
	cfg := BuildCFG(fn)
	if len(cfg.Blocks) == 0 {
		return fn.Instrs
	}
	live := computeLiveness(fn.Instrs, cfg)

	tempColor := colorClass(fn.Instrs, live, temporaryClassifier)
	localColor := colorClass(fn.Instrs, live, eligibleLocalClassifier)

	out := make([]Instr, len(fn.Instrs))
	for i, instr := range fn.Instrs {
		out[i] = rewriteColors(instr, tempColor, localColor)
	}
	return out
}

type colorKey struct {
	name string
	typ  string
}

// classifier extracts (name, vmType, ok) for the operand kind this
// color class covers; non-matching operands return ok=false.
type classifier func(op Operand) (string, string, bool)

func temporaryClassifier(op Operand) (string, string, bool) {
	t, ok := op.(*Temporary)
	if !ok {
		return "", "", false
	}
	return t.Key(), t.Type, true
}

func eligibleLocalClassifier(op Operand) (string, string, bool) {
	v, ok := op.(*Variable)
	if !ok || isExcludedLocal(v) {
		return "", "", false
	}
	return livenessKey(v), v.Type, true
}

// colorClass computes an interference graph over the operands
// classifier selects and returns a name->representative-name coloring
// map such that interfering names never share a color and every color
// is used for exactly one VM type.
func colorClass(instrs []Instr, live map[int]map[string]bool, classify classifier) map[string]string {
	names := map[string]string{} // name -> type
	interfere := map[string]map[string]bool{}

	touch := func(n string) {
		if _, ok := interfere[n]; !ok {
			interfere[n] = map[string]bool{}
		}
	}

	for i := range instrs {
		set := live[i]
		var liveNames []string
		for n := range set {
			liveNames = append(liveNames, n)
		}
		for _, instr := range []Instr{instrs[i]} {
			for _, d := range instr.Dests() {
				if n, typ, ok := classify(d); ok {
					names[n] = typ
					touch(n)
					for _, other := range liveNames {
						if other == n {
							continue
						}
						touch(other)
						interfere[n][other] = true
						interfere[other][n] = true
					}
				}
			}
		}
	}

	// Greedy coloring per type class: process names in a stable
	// (sorted) order, assign the first color (by index) whose current
	// representative doesn't interfere.
	var order []string
	for n := range names {
		order = append(order, n)
	}
	sortStrings(order)

	colorOfName := map[string]string{}
	byType := map[string][]string{} // type -> representative names in use

	for _, n := range order {
		typ := names[n]
		assigned := ""
		for _, rep := range byType[typ] {
			conflict := false
			for other := range interfere[n] {
				if colorOfName[other] == rep {
					conflict = true
					break
				}
			}
			if !conflict {
				assigned = rep
				break
			}
		}
		if assigned == "" {
			assigned = n // new color, representative is itself
			byType[typ] = append(byType[typ], assigned)
		}
		colorOfName[n] = assigned
	}
	return colorOfName
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}

// computeLiveness returns, per instruction index, the set of operand
// names (by classifier-agnostic key) live immediately after that
// instruction executes, minus the instruction's own destinations — a
// standard backward liveness fixed point over the CFG.
func computeLiveness(instrs []Instr, cfg *CFG) map[int]map[string]bool {
	liveIn := make([]map[string]bool, len(cfg.Blocks))
	liveOut := make([]map[string]bool, len(cfg.Blocks))
	for i := range cfg.Blocks {
		liveIn[i] = map[string]bool{}
		liveOut[i] = map[string]bool{}
	}

	changed := true
	for changed {
		changed = false
		for bi := len(cfg.Blocks) - 1; bi >= 0; bi-- {
			b := cfg.Blocks[bi]
			out := map[string]bool{}
			for _, s := range b.Succs {
				for n := range liveIn[s] {
					out[n] = true
				}
			}
			in := map[string]bool{}
			for n := range out {
				in[n] = true
			}
			for i := b.End; i >= b.Start; i-- {
				for _, d := range instrs[i].Dests() {
					delete(in, livenessKeyAny(d))
				}
				for _, u := range instrs[i].Uses() {
					in[livenessKeyAny(u)] = true
				}
			}
			if !setEqualsStr(in, liveIn[bi]) {
				liveIn[bi] = in
				changed = true
			}
			if !setEqualsStr(out, liveOut[bi]) {
				liveOut[bi] = out
				changed = true
			}
		}
	}

	perInstr := map[int]map[string]bool{}
	for _, b := range cfg.Blocks {
		cur := map[string]bool{}
		for n := range liveOut[b.ID] {
			cur[n] = true
		}
		for i := b.End; i >= b.Start; i-- {
			for _, d := range instrs[i].Dests() {
				delete(cur, livenessKeyAny(d))
			}
			snapshot := map[string]bool{}
			for n := range cur {
				snapshot[n] = true
			}
			perInstr[i] = snapshot
			for _, u := range instrs[i].Uses() {
				cur[livenessKeyAny(u)] = true
			}
		}
	}
	return perInstr
}

func livenessKeyAny(op Operand) string {
	switch o := op.(type) {
	case *Variable:
		return livenessKey(o)
	case *Temporary:
		return o.Key()
	default:
		return op.Key()
	}
}

func setEqualsStr(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func rewriteColors(instr Instr, tempColor, localColor map[string]string) Instr {
	r := func(op Operand) Operand {
		switch o := op.(type) {
		case *Temporary:
			if rep, ok := tempColor[o.Key()]; ok && rep != o.Key() {
				return &Temporary{ID: parseTempColorID(rep), Type: o.Type}
			}
		case *Variable:
			if rep, ok := localColor[livenessKey(o)]; ok && rep != livenessKey(o) {
				return &Variable{Name: stripVarColorName(rep), Type: o.Type, IsLocal: o.IsLocal}
			}
		}
		return op
	}
	switch i := instr.(type) {
	case *Assignment:
		return &Assignment{Dest: r(i.Dest), Src: r(i.Src)}
	case *Copy:
		return &Copy{Dest: r(i.Dest), Src: r(i.Src)}
	case *Cast:
		return &Cast{Dest: r(i.Dest), Src: r(i.Src), ToType: i.ToType}
	case *BinaryOp:
		return &BinaryOp{Dest: r(i.Dest), Op: i.Op, Left: r(i.Left), Right: r(i.Right)}
	case *UnaryOp:
		return &UnaryOp{Dest: r(i.Dest), Op: i.Op, Operand: r(i.Operand)}
	case *Call:
		args := make([]Operand, len(i.Args))
		for j, a := range i.Args {
			args[j] = r(a)
		}
		return &Call{Dest: r(i.Dest), Owner: i.Owner, Func: i.Func, Args: args, IsTailCall: i.IsTailCall}
	case *MethodCall:
		args := make([]Operand, len(i.Args))
		for j, a := range i.Args {
			args[j] = r(a)
		}
		return &MethodCall{Dest: r(i.Dest), Object: r(i.Object), Method: i.Method, Args: args, IsTailCall: i.IsTailCall}
	case *PropertyGet:
		return &PropertyGet{Dest: r(i.Dest), Object: r(i.Object), Property: i.Property}
	case *PropertySet:
		return &PropertySet{Object: r(i.Object), Property: i.Property, Value: r(i.Value)}
	case *ArrayAccess:
		return &ArrayAccess{Dest: r(i.Dest), Array: r(i.Array), Index: r(i.Index)}
	case *ArrayAssignment:
		return &ArrayAssignment{Array: r(i.Array), Index: r(i.Index), Value: r(i.Value)}
	case *Return:
		return &Return{Value: r(i.Value), ReturnVarName: i.ReturnVarName}
	case *ConditionalJump:
		return &ConditionalJump{Condition: r(i.Condition), Target: i.Target}
	default:
		return instr
	}
}

// parseTempColorID recovers the numeric Temporary id from a
// representative key of the form "tmp:<id>" produced by Temporary.Key.
func parseTempColorID(rep string) int {
	n := 0
	started := false
	for i := len(rep) - 1; i >= 0; i-- {
		c := rep[i]
		if c < '0' || c > '9' {
			break
		}
		started = true
		n++
		_ = n
	}
	if !started {
		return 0
	}
	digits := rep[len(rep)-n:]
	val := 0
	for _, c := range digits {
		val = val*10 + int(c-'0')
	}
	return val
}

// stripVarColorName recovers the variable name from a representative
// key of the form "var:<name>" produced by livenessKey.
func stripVarColorName(rep string) string {
	const p = "var:"
	if hasPrefix(rep, p) {
		return rep[len(p):]
	}
	return rep
}
