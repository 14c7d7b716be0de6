// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

// passJumpSimplify implements pass 11 (spec §4.4): merge consecutive
// label definitions (last name wins as canonical, aliases rewritten),
// drop jumps whose target is the immediately-following label, thread
// jumps that land on another unconditional jump, then merge linear
// predecessor-successor block pairs.
func passJumpSimplify(fn *Func) []Instr {
	instrs := mergeConsecutiveLabels(fn.Instrs)
	instrs = dropFallthroughJumps(instrs)
	instrs = threadJumps(instrs)
	instrs = mergeLinearBlocks(instrs)
	return instrs
}

// mergeConsecutiveLabels collapses a run of adjacent LabelInstrs into
// the last one, rewriting every reference to an earlier alias in the
// run to the canonical (last) name.
func mergeConsecutiveLabels(instrs []Instr) []Instr {
	alias := map[string]string{}
	var out []Instr
	i := 0
	for i < len(instrs) {
		if _, ok := instrs[i].(*LabelInstr); !ok {
			out = append(out, instrs[i])
			i++
			continue
		}
		j := i
		var names []string
		for j < len(instrs) {
			l, ok := instrs[j].(*LabelInstr)
			if !ok {
				break
			}
			names = append(names, l.L.Name)
			j++
		}
		canonical := names[len(names)-1]
		for _, n := range names[:len(names)-1] {
			alias[n] = canonical
		}
		out = append(out, &LabelInstr{L: &Label{Name: canonical}})
		i = j
	}
	return rewriteLabelRefs(out, alias)
}

func resolveAlias(alias map[string]string, name string) string {
	seen := map[string]bool{}
	for {
		next, ok := alias[name]
		if !ok || seen[next] {
			return name
		}
		seen[next] = true
		name = next
	}
}

func rewriteLabelRefs(instrs []Instr, alias map[string]string) []Instr {
	if len(alias) == 0 {
		return instrs
	}
	out := make([]Instr, len(instrs))
	for i, instr := range instrs {
		switch t := instr.(type) {
		case *UnconditionalJump:
			out[i] = &UnconditionalJump{Target: &Label{Name: resolveAlias(alias, t.Target.Name)}}
		case *ConditionalJump:
			out[i] = &ConditionalJump{Condition: t.Condition, Target: &Label{Name: resolveAlias(alias, t.Target.Name)}}
		default:
			out[i] = instr
		}
	}
	return out
}

// dropFallthroughJumps removes an UnconditionalJump whose target is
// the label immediately following it in the stream.
func dropFallthroughJumps(instrs []Instr) []Instr {
	var out []Instr
	for i, instr := range instrs {
		if jmp, ok := instr.(*UnconditionalJump); ok && i+1 < len(instrs) {
			if l, ok := instrs[i+1].(*LabelInstr); ok && l.L.Name == jmp.Target.Name {
				continue
			}
		}
		out = append(out, instr)
	}
	return out
}

// threadJumps rewrites a jump targeting a label that is itself
// immediately followed by another unconditional jump, to target that
// second jump's destination directly (one hop of thread-to-fixpoint;
// the outer optimizer loop re-runs this pass until stable).
func threadJumps(instrs []Instr) []Instr {
	labelPos := map[string]int{}
	for i, instr := range instrs {
		if l, ok := instr.(*LabelInstr); ok {
			labelPos[l.L.Name] = i
		}
	}
	threadTarget := func(name string) (string, bool) {
		pos, ok := labelPos[name]
		if !ok || pos+1 >= len(instrs) {
			return "", false
		}
		jmp, ok := instrs[pos+1].(*UnconditionalJump)
		if !ok {
			return "", false
		}
		return jmp.Target.Name, true
	}

	out := make([]Instr, len(instrs))
	for i, instr := range instrs {
		switch t := instr.(type) {
		case *UnconditionalJump:
			if dst, ok := threadTarget(t.Target.Name); ok && dst != t.Target.Name {
				out[i] = &UnconditionalJump{Target: &Label{Name: dst}}
				continue
			}
		case *ConditionalJump:
			if dst, ok := threadTarget(t.Target.Name); ok && dst != t.Target.Name {
				out[i] = &ConditionalJump{Condition: t.Condition, Target: &Label{Name: dst}}
				continue
			}
		}
		out[i] = instr
	}
	return out
}

// mergeLinearBlocks removes a LabelInstr that is only reached by
// falling through from the immediately preceding instruction and has
// no other predecessor jump, since nothing needs the label once it is
// unreferenced.
func mergeLinearBlocks(instrs []Instr) []Instr {
	referenced := map[string]bool{}
	for _, instr := range instrs {
		switch t := instr.(type) {
		case *UnconditionalJump:
			referenced[t.Target.Name] = true
		case *ConditionalJump:
			referenced[t.Target.Name] = true
		}
	}
	var out []Instr
	for _, instr := range instrs {
		if l, ok := instr.(*LabelInstr); ok && !referenced[l.L.Name] {
			continue
		}
		out = append(out, instr)
	}
	return out
}
