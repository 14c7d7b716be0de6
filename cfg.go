// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

// Block is one basic block: a maximal straight-line run of
// instructions ending in a terminator (spec §8 invariant: "every
// instruction belongs to exactly one block; block.start <= block.end").
type Block struct {
	ID    int
	Start int // index into Func.Instrs, inclusive
	End   int // index into Func.Instrs, inclusive
	Preds []int
	Succs []int
}

// CFG is the control-flow graph of one Func. Block 0 is always the
// entry block.
type CFG struct {
	Fn     *Func
	Blocks []*Block
	// labelBlock maps a Label name to the id of the block it starts.
	labelBlock map[string]int
}

// BuildCFG partitions fn.Instrs into basic blocks and wires successor
// edges from each block's terminator (spec §8).
func BuildCFG(fn *Func) *CFG {
	cfg := &CFG{Fn: fn, labelBlock: map[string]int{}}
	if len(fn.Instrs) == 0 {
		return cfg
	}

	// A new block starts at instruction 0, at every LabelInstr, and
	// immediately after every terminator.
	leaders := map[int]bool{0: true}
	for i, instr := range fn.Instrs {
		if _, ok := instr.(*LabelInstr); ok {
			leaders[i] = true
		}
		if IsTerminator(instr) && i+1 < len(fn.Instrs) {
			leaders[i+1] = true
		}
	}

	var starts []int
	for i := range fn.Instrs {
		if leaders[i] {
			starts = append(starts, i)
		}
	}

	for bi, start := range starts {
		end := len(fn.Instrs) - 1
		if bi+1 < len(starts) {
			end = starts[bi+1] - 1
		}
		b := &Block{ID: bi, Start: start, End: end}
		cfg.Blocks = append(cfg.Blocks, b)
		if l, ok := fn.Instrs[start].(*LabelInstr); ok {
			cfg.labelBlock[l.L.Name] = bi
		}
	}

	for _, b := range cfg.Blocks {
		term := fn.Instrs[b.End]
		switch t := term.(type) {
		case *UnconditionalJump:
			cfg.addEdge(b.ID, cfg.labelBlock[t.Target.Name])
		case *ConditionalJump:
			cfg.addEdge(b.ID, cfg.labelBlock[t.Target.Name])
			if b.ID+1 < len(cfg.Blocks) {
				cfg.addEdge(b.ID, b.ID+1)
			}
		case *Return:
			// no successors
		default:
			if b.ID+1 < len(cfg.Blocks) {
				cfg.addEdge(b.ID, b.ID+1)
			}
		}
	}
	return cfg
}

func (cfg *CFG) addEdge(from, to int) {
	cfg.Blocks[from].Succs = append(cfg.Blocks[from].Succs, to)
	cfg.Blocks[to].Preds = append(cfg.Blocks[to].Preds, from)
}

// Entry returns the CFG's entry block, or nil if the function is empty.
func (cfg *CFG) Entry() *Block {
	if len(cfg.Blocks) == 0 {
		return nil
	}
	return cfg.Blocks[0]
}

// BlockOf returns the block containing instruction index idx.
func (cfg *CFG) BlockOf(idx int) *Block {
	for _, b := range cfg.Blocks {
		if idx >= b.Start && idx <= b.End {
			return b
		}
	}
	return nil
}

// Dominators computes, for each block id, the set of block ids that
// dominate it (including itself), via the standard iterative
// data-flow fixed point. Needed by ssa.go to place Phi nodes only at
// dominance frontiers (spec §9).
func (cfg *CFG) Dominators() map[int]map[int]bool {
	all := map[int]bool{}
	for _, b := range cfg.Blocks {
		all[b.ID] = true
	}
	dom := map[int]map[int]bool{}
	for _, b := range cfg.Blocks {
		if b.ID == 0 {
			dom[0] = map[int]bool{0: true}
			continue
		}
		dom[b.ID] = cloneSet(all)
	}

	changed := true
	for changed {
		changed = false
		for _, b := range cfg.Blocks {
			if b.ID == 0 {
				continue
			}
			var inter map[int]bool
			for _, p := range b.Preds {
				if inter == nil {
					inter = cloneSet(dom[p])
				} else {
					inter = intersectSet(inter, dom[p])
				}
			}
			if inter == nil {
				inter = map[int]bool{}
			}
			inter[b.ID] = true
			if !setEquals(inter, dom[b.ID]) {
				dom[b.ID] = inter
				changed = true
			}
		}
	}
	return dom
}

// DominanceFrontier computes the dominance frontier of every block:
// the set of blocks where the block's dominance "stops", the classic
// site for Phi placement.
func (cfg *CFG) DominanceFrontier() map[int]map[int]bool {
	dom := cfg.Dominators()
	idom := map[int]int{}
	for _, b := range cfg.Blocks {
		if b.ID == 0 {
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
	}

	df := map[int]map[int]bool{}
	for _, b := range cfg.Blocks {
		df[b.ID] = map[int]bool{}
	}
	for _, b := range cfg.Blocks {
		if len(b.Preds) < 2 {
			continue
		}
		for _, p := range b.Preds {
			runner := p
			for runner != idom[b.ID] && runner != -1 {
				df[runner][b.ID] = true
				if runner == 0 {
					break
				}
				runner = idom[runner]
			}
		}
	}
	return df
}

func cloneSet(s map[int]bool) map[int]bool {
	out := make(map[int]bool, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

func intersectSet(a, b map[int]bool) map[int]bool {
	out := map[int]bool{}
	for k := range a {
		if b[k] {
			out[k] = true
		}
	}
	return out
}

func setEquals(a, b map[int]bool) bool {
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
