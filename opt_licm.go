// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

// naturalLoop is a back-edge-detected loop: header dominates latch,
// and latch has an edge back to header.
type naturalLoop struct {
	header int
	body   map[int]bool
}

// findNaturalLoops detects back edges (a successor that dominates its
// predecessor) and gathers each loop's member blocks by walking
// predecessors backward from the latch to the header.
func findNaturalLoops(cfg *CFG) []naturalLoop {
	dom := cfg.Dominators()
	var loops []naturalLoop
	for _, b := range cfg.Blocks {
		for _, s := range b.Succs {
			if !dom[b.ID][s] {
				continue
			}
			// b -> s is a back edge; s is the loop header.
			body := map[int]bool{s: true, b.ID: true}
			stack := []int{b.ID}
			for len(stack) > 0 {
				cur := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				for _, p := range cfg.Blocks[cur].Preds {
					if !body[p] {
						body[p] = true
						stack = append(stack, p)
					}
				}
			}
			loops = append(loops, naturalLoop{header: s, body: body})
		}
	}
	return loops
}

// passLICM implements the LICM half of pass 5 (spec §4.4): it moves
// loop-invariant, side-effect-free computations out of the loop body
// to the start of the loop header block, right after its label. No
// separate preheader block is created, so a moved computation still
// runs each time control reaches the header. A computation is invariant when every
// use operand is either a constant or defined strictly outside the
// loop body. Hoisted instructions are spliced in once, after the
// final assembly, to avoid index drift across multiple loops.
func passLICM(fn *Func) []Instr {
	cfg := BuildCFG(fn)
	loops := findNaturalLoops(cfg)
	if len(loops) == 0 {
		return fn.Instrs
	}

	removed := make([]bool, len(fn.Instrs))
	hoistBeforeHeader := map[int][]Instr{}

	for _, loop := range loops {
		definedInLoop := map[string]bool{}
		for bid := range loop.body {
			blk := cfg.Blocks[bid]
			for i := blk.Start; i <= blk.End; i++ {
				if removed[i] {
					continue
				}
				for _, d := range fn.Instrs[i].Dests() {
					definedInLoop[opKey(d)] = true
				}
			}
		}

		for bid := range loop.body {
			blk := cfg.Blocks[bid]
			for i := blk.Start; i <= blk.End; i++ {
				if removed[i] {
					continue
				}
				instr := fn.Instrs[i]
				if !isPureProducer(instr) {
					continue
				}
				if _, isPropGet := instr.(*PropertyGet); isPropGet {
					continue // reads through an object may alias a loop-mutated field
				}
				invariant := true
				for _, u := range instr.Uses() {
					if _, isConst := u.(*Constant); isConst {
						continue
					}
					if definedInLoop[opKey(u)] {
						invariant = false
						break
					}
				}
				if !invariant {
					continue
				}
				hoistBeforeHeader[loop.header] = append(hoistBeforeHeader[loop.header], instr)
				removed[i] = true
			}
		}
	}

	if len(hoistBeforeHeader) == 0 {
		return fn.Instrs
	}

	var out []Instr
	for _, b := range cfg.Blocks {
		if hoisted, ok := hoistBeforeHeader[b.ID]; ok {
			insertAt := b.Start
			if insertAt < len(fn.Instrs) {
				if _, isLabel := fn.Instrs[insertAt].(*LabelInstr); isLabel {
					out = append(out, fn.Instrs[insertAt])
					insertAt++
				}
			}
			out = append(out, hoisted...)
			for i := insertAt; i <= b.End; i++ {
				if !removed[i] {
					out = append(out, fn.Instrs[i])
				}
			}
			continue
		}
		for i := b.Start; i <= b.End; i++ {
			if !removed[i] {
				out = append(out, fn.Instrs[i])
			}
		}
	}
	return out
}
