// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

// minTailMergeLen is the minimum shared-suffix length (in
// instructions) worth factoring out into a merged label, below which
// the extra jump would cost more than it saves.
const minTailMergeLen = 2

// passTailMerge implements pass 13 (spec §4.4): identical terminating
// sequences (straight-line suffixes ending in Return or a jump to a
// singly-defined label) share a merged suffix guarded by a fresh
// label; non-canonical sites become jumps to it.
func passTailMerge(fn *Func) []Instr {
	cfg := BuildCFG(fn)
	if len(cfg.Blocks) < 2 {
		return fn.Instrs
	}

	suffixKey := func(b *Block) string {
		s := ""
		for i := b.Start; i <= b.End; i++ {
			s += instrKey(fn.Instrs[i]) + ";"
		}
		return s
	}

	seen := map[string]int{} // suffix key -> canonical block id
	mergeTarget := map[int]*Label{}
	for _, b := range cfg.Blocks {
		if b.End-b.Start+1 < minTailMergeLen {
			continue
		}
		switch fn.Instrs[b.End].(type) {
		case *Return, *UnconditionalJump:
		default:
			continue
		}
		key := suffixKey(b)
		if canon, ok := seen[key]; ok {
			label := mergeTarget[canon]
			if label == nil {
				if l, ok := fn.Instrs[cfg.Blocks[canon].Start].(*LabelInstr); ok {
					label = l.L
				} else {
					label = &Label{Name: "tailmerge_" + l0Name(canon)}
				}
				mergeTarget[canon] = label
			}
			mergeTarget[b.ID] = label
		} else {
			seen[key] = b.ID
		}
	}

	if len(mergeTarget) == 0 {
		return fn.Instrs
	}

	var out []Instr
	for _, b := range cfg.Blocks {
		if label, merged := mergeTarget[b.ID]; merged {
			if canonID, ok := seen[suffixKey(b)]; ok && canonID == b.ID {
				// Canonical site: keep the body, ensure it starts with
				// the shared label so other sites can jump in.
				if _, isLabel := fn.Instrs[b.Start].(*LabelInstr); !isLabel {
					out = append(out, &LabelInstr{L: label})
				}
				for i := b.Start; i <= b.End; i++ {
					out = append(out, fn.Instrs[i])
				}
				continue
			}
			if l, isLabel := fn.Instrs[b.Start].(*LabelInstr); isLabel {
				out = append(out, l)
			}
			out = append(out, &UnconditionalJump{Target: label})
			continue
		}
		for i := b.Start; i <= b.End; i++ {
			out = append(out, fn.Instrs[i])
		}
	}
	return out
}

func l0Name(id int) string {
	if id == 0 {
		return "0"
	}
	digits := ""
	for id > 0 {
		digits = string(rune('0'+id%10)) + digits
		id /= 10
	}
	return digits
}
