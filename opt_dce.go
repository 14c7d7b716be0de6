// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

// passDCE implements pass 10 (spec §4.4): (a) remove instructions
// after an unconditional terminator until the next label, (b) remove
// pure producers whose defined temporary is not live-out, (c) drop
// no-op copies.
func passDCE(fn *Func) []Instr {
	afterTerm := removeUnreachableTail(fn.Instrs)
	noNoop := removeNoOpCopies(afterTerm)
	return removeDeadPureProducers(noNoop)
}

// removeUnreachableTail drops instructions that follow an
// unconditional terminator (Return/UnconditionalJump) up to the next
// LabelInstr, which is the next reachable entry point.
func removeUnreachableTail(instrs []Instr) []Instr {
	var out []Instr
	dead := false
	for _, instr := range instrs {
		if _, ok := instr.(*LabelInstr); ok {
			dead = false
		}
		if dead {
			continue
		}
		out = append(out, instr)
		switch instr.(type) {
		case *Return, *UnconditionalJump:
			dead = true
		}
	}
	return out
}

// removeNoOpCopies drops `Copy{Dest: x, Src: x}` (same operand key on
// both sides).
func removeNoOpCopies(instrs []Instr) []Instr {
	var out []Instr
	for _, instr := range instrs {
		if cp, ok := instr.(*Copy); ok && opKey(cp.Dest) == opKey(cp.Src) {
			continue
		}
		out = append(out, instr)
	}
	return out
}

// removeDeadPureProducers drops a pure producer whose destination
// temporary is never subsequently used (Variables are never removed
// this way: they may be read by a later entry point or externally
// observed).
func removeDeadPureProducers(instrs []Instr) []Instr {
	used := map[string]bool{}
	for _, instr := range instrs {
		for _, u := range instr.Uses() {
			used[opKey(u)] = true
		}
		if r, ok := instr.(*Return); ok && r.Value != nil {
			used[opKey(r.Value)] = true
		}
	}

	var out []Instr
	for _, instr := range instrs {
		if isPureProducer(instr) {
			dests := instr.Dests()
			if len(dests) == 1 {
				if t, ok := dests[0].(*Temporary); ok && !used[t.Key()] {
					continue
				}
			}
		}
		out = append(out, instr)
	}
	return out
}
