// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

// passStrengthReduction is the induction-variable half of pass 5
// (spec §4.4). Inside each natural loop it finds `i * c` candidates: a
// BinaryOp "*" whose left operand is redefined in the same loop body
// only by `i = i + step` with step constant, and whose right operand
// is a constant. It rewrites none of them: no accumulator is
// introduced and the instruction stream is returned unchanged.
func passStrengthReduction(fn *Func) []Instr {
	cfg := BuildCFG(fn)
	loops := findNaturalLoops(cfg)
	if len(loops) == 0 {
		return fn.Instrs
	}

	out := append([]Instr(nil), fn.Instrs...)
	for _, loop := range loops {
		steps := inductionSteps(out, cfg, loop)
		if len(steps) == 0 {
			continue
		}
		for bid := range loop.body {
			blk := cfg.Blocks[bid]
			for i := blk.Start; i <= blk.End; i++ {
				bin, ok := out[i].(*BinaryOp)
				if !ok || bin.Op != "*" {
					continue
				}
				iv, ivOK := bin.Left.(*Variable)
				c, cOK := bin.Right.(*Constant)
				if !ivOK || !cOK {
					continue
				}
				step, tracked := steps[iv.Name]
				if !tracked {
					continue
				}
				cf, ok := toNumber(c.Value)
				if !ok {
					continue
				}
				_ = step * cf // candidate found; the multiplication is kept as is
			}
		}
	}
	return out
}

// inductionSteps finds, for each variable reassigned inside loop as
// `v = v + <constant>`, the constant step, when that is the only
// redefinition of v within the loop body (the "single monotonic
// increment" precondition named by spec §4.4 pass 5).
func inductionSteps(instrs []Instr, cfg *CFG, loop naturalLoop) map[string]float64 {
	counts := map[string]int{}
	steps := map[string]float64{}
	for bid := range loop.body {
		blk := cfg.Blocks[bid]
		for i := blk.Start; i <= blk.End; i++ {
			bin, ok := instrs[i].(*BinaryOp)
			if !ok || bin.Op != "+" {
				continue
			}
			dest, ok := bin.Dest.(*Variable)
			if !ok {
				continue
			}
			lv, ok := bin.Left.(*Variable)
			if !ok || lv.Name != dest.Name {
				continue
			}
			c, ok := bin.Right.(*Constant)
			if !ok {
				continue
			}
			f, ok := toNumber(c.Value)
			if !ok {
				continue
			}
			counts[dest.Name]++
			steps[dest.Name] = f
		}
	}
	out := map[string]float64{}
	for name, n := range counts {
		if n == 1 {
			out[name] = steps[name]
		}
	}
	return out
}
