// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

// passPRE implements pass 4 (spec §4.4), partial redundancy
// elimination, in a restricted form. At a join block, a side-effect-free
// expression whose destination is a temporary, whose operands are
// available in every predecessor, and which every predecessor already
// computes into one and the same operand, becomes a Copy from that
// operand. No computation is inserted into a predecessor that lacks
// the expression, and nothing changes when the predecessors compute it
// into different operands.
func passPRE(fn *Func) []Instr {
	cfg := BuildCFG(fn)
	if len(cfg.Blocks) == 0 {
		return fn.Instrs
	}

	out := append([]Instr(nil), fn.Instrs...)
	for _, b := range cfg.Blocks {
		if len(b.Preds) < 2 {
			continue
		}
		for i := b.Start; i <= b.End; i++ {
			key, dest, ok := exprKey(out[i])
			if !ok {
				continue
			}
			destTmp, isTmp := dest.(*Temporary)
			if !isTmp {
				continue // only block-local temporaries are eligible
			}
			if !operandsAvailableInAllPreds(cfg, out, b, out[i]) {
				continue
			}
			if usedBeforeInBlock(out, b, i, destTmp) {
				continue
			}
			if !availableInAllPreds(cfg, out, b, key) {
				continue
			}
			src := findInAnyPred(cfg, out, b, key)
			if src == nil {
				continue
			}
			sameSrc := true
			for _, p := range b.Preds {
				blk := cfg.Blocks[p]
				for j := blk.Start; j <= blk.End; j++ {
					if k, d, ok := exprKey(out[j]); ok && k == key && opKey(d) != opKey(src) {
						sameSrc = false
					}
				}
			}
			if !sameSrc {
				continue
			}
			out[i] = &Copy{Dest: dest, Src: src}
		}
	}
	return out
}

func usedBeforeInBlock(instrs []Instr, b *Block, idx int, t *Temporary) bool {
	for i := b.Start; i < idx; i++ {
		for _, d := range instrs[i].Dests() {
			if tt, ok := d.(*Temporary); ok && tt.ID == t.ID {
				return true
			}
		}
	}
	return false
}

func operandsAvailableInAllPreds(cfg *CFG, instrs []Instr, b *Block, instr Instr) bool {
	for _, u := range instr.Uses() {
		if _, ok := u.(*Constant); ok {
			continue
		}
		for _, p := range b.Preds {
			if !definedInBlock(instrs, cfg.Blocks[p], u) && !definedBeforeBlock(cfg, instrs, p, u) {
				return false
			}
		}
	}
	return true
}

func definedInBlock(instrs []Instr, b *Block, op Operand) bool {
	for i := b.Start; i <= b.End; i++ {
		for _, d := range instrs[i].Dests() {
			if opKey(d) == opKey(op) {
				return true
			}
		}
	}
	return false
}

// definedBeforeBlock treats every Variable as available at the end of
// any predecessor and every other operand as unavailable; it performs
// no dominance or reaching-definitions check.
func definedBeforeBlock(cfg *CFG, instrs []Instr, predID int, op Operand) bool {
	if _, ok := op.(*Variable); ok {
		return true
	}
	return false
}

func findInAnyPred(cfg *CFG, instrs []Instr, b *Block, key string) Operand {
	for _, p := range b.Preds {
		blk := cfg.Blocks[p]
		for i := blk.Start; i <= blk.End; i++ {
			if k, dest, ok := exprKey(instrs[i]); ok && k == key {
				return dest
			}
		}
	}
	return nil
}

// availableInAllPreds reports whether every predecessor of b already
// computes the expression named by key. Synthesizing the computation
// in a predecessor that lacks it would require a full block rewrite;
// per the pass's conservative failure semantics (spec §4.4), that case
// is simply left for a later DCE/GVN cycle rather than attempted here.
func availableInAllPreds(cfg *CFG, instrs []Instr, b *Block, key string) bool {
	for _, p := range b.Preds {
		blk := cfg.Blocks[p]
		found := false
		for i := blk.Start; i <= blk.End; i++ {
			if k, _, ok := exprKey(instrs[i]); ok && k == key {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
