// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

// passBlockLayout implements pass 14 (spec §4.4): order blocks to
// maximize natural fallthroughs (place each block's unconditional-jump
// target immediately after whenever possible), then remove now-
// redundant jumps via a final fallthrough-jump pass.
func passBlockLayout(fn *Func) []Instr {
	cfg := BuildCFG(fn)
	if len(cfg.Blocks) < 2 {
		return fn.Instrs
	}

	placed := make([]bool, len(cfg.Blocks))
	var order []int
	var place func(id int)
	place = func(id int) {
		if id < 0 || id >= len(cfg.Blocks) || placed[id] {
			return
		}
		placed[id] = true
		order = append(order, id)
		b := cfg.Blocks[id]
		if term, ok := fn.Instrs[b.End].(*UnconditionalJump); ok {
			if target, ok := cfg.labelBlock[term.Target.Name]; ok {
				place(target)
				return
			}
		}
		if len(b.Succs) > 0 {
			place(b.Succs[0])
		}
	}
	for _, b := range cfg.Blocks {
		place(b.ID)
	}

	var out []Instr
	for idx, id := range order {
		b := cfg.Blocks[id]
		for i := b.Start; i <= b.End; i++ {
			out = append(out, fn.Instrs[i])
		}
		if jmp, ok := fn.Instrs[b.End].(*UnconditionalJump); ok && idx+1 < len(order) {
			if nextLabel, ok := fn.Instrs[cfg.Blocks[order[idx+1]].Start].(*LabelInstr); ok && nextLabel.L.Name == jmp.Target.Name {
				out = out[:len(out)-1] // drop the now-redundant fallthrough jump
			}
		}
	}
	return out
}
