// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

// passCodeSink implements pass 15 (spec §4.4): move a pure producer
// from a multi-successor block into the single successor that uses
// it, provided the producer's operands are still available there
// (dominance-checked for temporaries).
func passCodeSink(fn *Func) []Instr {
	cfg := BuildCFG(fn)
	if len(cfg.Blocks) == 0 {
		return fn.Instrs
	}
	dom := cfg.Dominators()

	out := append([]Instr(nil), fn.Instrs...)
	removed := make([]bool, len(out))
	sunk := map[int][]Instr{} // destination block id -> sunk instructions, in order

	for _, b := range cfg.Blocks {
		if len(b.Succs) < 2 {
			continue
		}
		for i := b.End - 1; i >= b.Start; i-- {
			instr := out[i]
			if removed[i] || !isPureProducer(instr) {
				continue
			}
			dest := singleDest(instr)
			if dest == nil {
				continue
			}
			onlyUser := soleUsingSuccessor(cfg, out, b, dest)
			if onlyUser == -1 {
				continue
			}
			if !operandsDominateBlock(dom, cfg, instr, onlyUser) {
				continue
			}
			removed[i] = true
			sunk[onlyUser] = append([]Instr{instr}, sunk[onlyUser]...)
		}
	}

	if len(sunk) == 0 {
		return fn.Instrs
	}

	var final []Instr
	for _, b := range cfg.Blocks {
		insertAt := b.Start
		if list, ok := sunk[b.ID]; ok {
			if insertAt < len(out) {
				if _, isLabel := out[insertAt].(*LabelInstr); isLabel {
					final = append(final, out[insertAt])
					insertAt++
				}
			}
			final = append(final, list...)
		}
		for i := insertAt; i <= b.End; i++ {
			if !removed[i] {
				final = append(final, out[i])
			}
		}
	}
	return final
}

func singleDest(instr Instr) Operand {
	d := instr.Dests()
	if len(d) != 1 {
		return nil
	}
	return d[0]
}

// soleUsingSuccessor returns the id of b's one successor that uses
// dest, when exactly one of b's successors does and no instruction in
// b itself uses it.
func soleUsingSuccessor(cfg *CFG, instrs []Instr, b *Block, dest Operand) int {
	for i := b.Start; i <= b.End; i++ {
		for _, u := range instrs[i].Uses() {
			if opKey(u) == opKey(dest) {
				return -1
			}
		}
	}
	found := -1
	for _, s := range b.Succs {
		blk := cfg.Blocks[s]
		usesIt := false
		for i := blk.Start; i <= blk.End; i++ {
			for _, u := range instrs[i].Uses() {
				if opKey(u) == opKey(dest) {
					usesIt = true
				}
			}
		}
		if usesIt {
			if found != -1 {
				return -1
			}
			found = s
		}
	}
	return found
}

// operandsDominateBlock reports whether every use operand of instr is
// either a constant or defined in a block that dominates target.
func operandsDominateBlock(dom map[int]map[int]bool, cfg *CFG, instr Instr, target int) bool {
	for _, u := range instr.Uses() {
		if _, isConst := u.(*Constant); isConst {
			continue
		}
		found := false
		for _, b := range cfg.Blocks {
			if !dom[target][b.ID] {
				continue
			}
			for i := b.Start; i <= b.End; i++ {
				for _, d := range cfg.Fn.Instrs[i].Dests() {
					if opKey(d) == opKey(u) {
						found = true
					}
				}
			}
		}
		if !found {
			return false
		}
	}
	return true
}
