// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

// BuildSSA rewrites fn into SSA form in place: each Variable def gets a
// fresh SSAVersion, Phi instructions are inserted only at dominance
// frontiers of blocks that define a given variable (spec §9), and uses
// are rewritten to the reaching version via a dominator-tree walk.
func BuildSSA(fn *Func, cfg *CFG) {
	defsites := map[string][]int{} // variable name -> block ids that define it
	for _, b := range cfg.Blocks {
		for i := b.Start; i <= b.End; i++ {
			for _, d := range fn.Instrs[i].Dests() {
				if v, ok := d.(*Variable); ok {
					defsites[v.Name] = appendUnique(defsites[v.Name], b.ID)
				}
			}
		}
	}

	df := cfg.DominanceFrontier()

	// Phi placement: standard worklist per variable.
	hasPhi := map[string]map[int]bool{}
	for name, sites := range defsites {
		hasPhi[name] = map[int]bool{}
		worklist := append([]int(nil), sites...)
		onList := map[int]bool{}
		for _, s := range sites {
			onList[s] = true
		}
		for len(worklist) > 0 {
			b := worklist[0]
			worklist = worklist[1:]
			for f := range df[b] {
				if hasPhi[name][f] {
					continue
				}
				hasPhi[name][f] = true
				if !onList[f] {
					onList[f] = true
					worklist = append(worklist, f)
				}
			}
		}
	}

	// Insert Phi instructions (version assigned during renaming below)
	// at the front of each block that needs one, one per predecessor.
	phiInstrs := map[int][]*Phi{}
	for name, blocks := range hasPhi {
		for b := range blocks {
			phi := &Phi{
				Dest:    &Variable{Name: name},
				Sources: make([]Operand, len(cfg.Blocks[b].Preds)),
			}
			for i := range phi.Sources {
				phi.Sources[i] = &Variable{Name: name}
			}
			phiInstrs[b] = append(phiInstrs[b], phi)
		}
	}

	// Rename: dominator-tree preorder walk, threading a per-variable
	// version counter and a reaching-definition stack.
	dom := cfg.Dominators()
	children := map[int][]int{}
	for _, b := range cfg.Blocks {
		if b.ID == 0 {
			continue
		}
		idom := -1
		for d := range dom[b.ID] {
			if d == b.ID {
				continue
			}
			if idom == -1 || len(dom[d]) > len(dom[idom]) {
				idom = d
			}
		}
		children[idom] = append(children[idom], b.ID)
	}

	counter := map[string]int{}
	stack := map[string][]int{}
	newBlockInstrs := map[int][]Instr{}

	var rename func(b int)
	rename = func(b int) {
		pushed := map[string]int{}
		// Phis first.
		var newPhis []Instr
		for _, phi := range phiInstrs[b] {
			name := phi.Dest.(*Variable).Name
			counter[name]++
			ver := counter[name]
			stack[name] = append(stack[name], ver)
			pushed[name]++
			phi.Dest = &Variable{Name: name, SSAVersion: ver}
			newPhis = append(newPhis, phi)
		}

		var body []Instr
		body = append(body, newPhis...)
		blk := cfg.Blocks[b]
		for i := blk.Start; i <= blk.End; i++ {
			instr := fn.Instrs[i]
			instr = rewriteUses(instr, stack)
			for _, d := range instr.Dests() {
				if v, ok := d.(*Variable); ok {
					counter[v.Name]++
					ver := counter[v.Name]
					stack[v.Name] = append(stack[v.Name], ver)
					pushed[v.Name]++
					setDestVersion(instr, v.Name, ver)
				}
			}
			body = append(body, instr)
		}
		newBlockInstrs[b] = body

		for _, succ := range blk.Succs {
			for _, phi := range phiInstrs[succ] {
				name := phi.Dest.(*Variable).Name
				predIdx := indexOf(cfg.Blocks[succ].Preds, b)
				if predIdx < 0 {
					continue
				}
				if s := stack[name]; len(s) > 0 {
					phi.Sources[predIdx] = &Variable{Name: name, SSAVersion: s[len(s)-1]}
				}
			}
		}

		for _, c := range children[b] {
			rename(c)
		}

		for name, n := range pushed {
			stack[name] = stack[name][:len(stack[name])-n]
		}
	}
	rename(0)

	var out []Instr
	for _, b := range cfg.Blocks {
		out = append(out, newBlockInstrs[b.ID]...)
	}
	fn.Instrs = out
}

func appendUnique(s []int, v int) []int {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}

func indexOf(s []int, v int) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

func rewriteUses(instr Instr, stack map[string][]int) Instr {
	rewriteOp := func(op Operand) Operand {
		v, ok := op.(*Variable)
		if !ok {
			return op
		}
		s := stack[v.Name]
		if len(s) == 0 {
			return op
		}
		return &Variable{Name: v.Name, Type: v.Type, IsLocal: v.IsLocal,
			IsParameter: v.IsParameter, IsExported: v.IsExported, SSAVersion: s[len(s)-1]}
	}
	switch i := instr.(type) {
	case *Assignment:
		return &Assignment{Dest: i.Dest, Src: rewriteOp(i.Src)}
	case *Copy:
		return &Copy{Dest: i.Dest, Src: rewriteOp(i.Src)}
	case *Cast:
		return &Cast{Dest: i.Dest, Src: rewriteOp(i.Src), ToType: i.ToType}
	case *BinaryOp:
		return &BinaryOp{Dest: i.Dest, Op: i.Op, Left: rewriteOp(i.Left), Right: rewriteOp(i.Right)}
	case *UnaryOp:
		return &UnaryOp{Dest: i.Dest, Op: i.Op, Operand: rewriteOp(i.Operand)}
	case *Call:
		args := make([]Operand, len(i.Args))
		for j, a := range i.Args {
			args[j] = rewriteOp(a)
		}
		return &Call{Dest: i.Dest, Owner: i.Owner, Func: i.Func, Args: args, IsTailCall: i.IsTailCall}
	case *MethodCall:
		args := make([]Operand, len(i.Args))
		for j, a := range i.Args {
			args[j] = rewriteOp(a)
		}
		return &MethodCall{Dest: i.Dest, Object: rewriteOp(i.Object), Method: i.Method, Args: args, IsTailCall: i.IsTailCall}
	case *PropertyGet:
		return &PropertyGet{Dest: i.Dest, Object: rewriteOp(i.Object), Property: i.Property}
	case *PropertySet:
		return &PropertySet{Object: rewriteOp(i.Object), Property: i.Property, Value: rewriteOp(i.Value)}
	case *ArrayAccess:
		return &ArrayAccess{Dest: i.Dest, Array: rewriteOp(i.Array), Index: rewriteOp(i.Index)}
	case *ArrayAssignment:
		return &ArrayAssignment{Array: rewriteOp(i.Array), Index: rewriteOp(i.Index), Value: rewriteOp(i.Value)}
	case *Return:
		return &Return{Value: rewriteOp(i.Value), ReturnVarName: i.ReturnVarName}
	case *ConditionalJump:
		return &ConditionalJump{Condition: rewriteOp(i.Condition), Target: i.Target}
	default:
		return instr
	}
}

func setDestVersion(instr Instr, name string, ver int) {
	setVar := func(op Operand) Operand {
		if v, ok := op.(*Variable); ok && v.Name == name {
			return &Variable{Name: v.Name, Type: v.Type, IsLocal: v.IsLocal,
				IsParameter: v.IsParameter, IsExported: v.IsExported, SSAVersion: ver}
		}
		return op
	}
	switch i := instr.(type) {
	case *Assignment:
		i.Dest = setVar(i.Dest)
	case *Copy:
		i.Dest = setVar(i.Dest)
	case *Cast:
		i.Dest = setVar(i.Dest)
	case *BinaryOp:
		i.Dest = setVar(i.Dest)
	case *UnaryOp:
		i.Dest = setVar(i.Dest)
	case *Call:
		i.Dest = setVar(i.Dest)
	case *MethodCall:
		i.Dest = setVar(i.Dest)
	case *PropertyGet:
		i.Dest = setVar(i.Dest)
	case *ArrayAccess:
		i.Dest = setVar(i.Dest)
	case *Phi:
		i.Dest = setVar(i.Dest)
	}
}

// DeconstructSSA lowers every Phi back to parallel copies inserted at
// the end of each predecessor block (just before its terminator), the
// standard SSA-exit transform, then strips remaining SSAVersion tags
// on Variables (spec §9: "Phi lowering expands to parallel copies at
// predecessor terminators").
func DeconstructSSA(fn *Func, cfg *CFG) {
	copiesForBlock := map[int][]Instr{}
	var rest []Instr
	blockOfIdx := make([]int, len(fn.Instrs))
	for _, b := range cfg.Blocks {
		for i := b.Start; i <= b.End; i++ {
			blockOfIdx[i] = b.ID
		}
	}

	for idx, instr := range fn.Instrs {
		phi, ok := instr.(*Phi)
		if !ok {
			rest = append(rest, instr)
			continue
		}
		b := cfg.BlockOf(idx)
		for pi, pred := range b.Preds {
			if pi >= len(phi.Sources) {
				continue
			}
			copiesForBlock[pred] = append(copiesForBlock[pred], &Copy{
				Dest: phi.Dest,
				Src:  phi.Sources[pi],
			})
		}
	}

	var out []Instr
	for _, b := range cfg.Blocks {
		emittedCopies := false
		for i := b.Start; i <= b.End; i++ {
			instr := fn.Instrs[i]
			if _, ok := instr.(*Phi); ok {
				continue
			}
			if IsTerminator(instr) {
				out = append(out, copiesForBlock[b.ID]...)
				emittedCopies = true
			}
			out = append(out, stripSSAVersion(instr))
		}
		if !emittedCopies {
			out = append(out, copiesForBlock[b.ID]...)
		}
	}
	fn.Instrs = out
}

func stripSSAVersion(instr Instr) Instr {
	strip := func(op Operand) Operand {
		if v, ok := op.(*Variable); ok && v.SSAVersion != 0 {
			return &Variable{Name: v.Name, Type: v.Type, IsLocal: v.IsLocal,
				IsParameter: v.IsParameter, IsExported: v.IsExported}
		}
		return op
	}
	switch i := instr.(type) {
	case *Assignment:
		return &Assignment{Dest: strip(i.Dest), Src: strip(i.Src)}
	case *Copy:
		return &Copy{Dest: strip(i.Dest), Src: strip(i.Src)}
	case *Cast:
		return &Cast{Dest: strip(i.Dest), Src: strip(i.Src), ToType: i.ToType}
	case *BinaryOp:
		return &BinaryOp{Dest: strip(i.Dest), Op: i.Op, Left: strip(i.Left), Right: strip(i.Right)}
	case *UnaryOp:
		return &UnaryOp{Dest: strip(i.Dest), Op: i.Op, Operand: strip(i.Operand)}
	case *Call:
		args := make([]Operand, len(i.Args))
		for j, a := range i.Args {
			args[j] = strip(a)
		}
		return &Call{Dest: strip(i.Dest), Owner: i.Owner, Func: i.Func, Args: args, IsTailCall: i.IsTailCall}
	case *MethodCall:
		args := make([]Operand, len(i.Args))
		for j, a := range i.Args {
			args[j] = strip(a)
		}
		return &MethodCall{Dest: strip(i.Dest), Object: strip(i.Object), Method: i.Method, Args: args, IsTailCall: i.IsTailCall}
	case *PropertyGet:
		return &PropertyGet{Dest: strip(i.Dest), Object: strip(i.Object), Property: i.Property}
	case *PropertySet:
		return &PropertySet{Object: strip(i.Object), Property: i.Property, Value: strip(i.Value)}
	case *ArrayAccess:
		return &ArrayAccess{Dest: strip(i.Dest), Array: strip(i.Array), Index: strip(i.Index)}
	case *ArrayAssignment:
		return &ArrayAssignment{Array: strip(i.Array), Index: strip(i.Index), Value: strip(i.Value)}
	case *Return:
		return &Return{Value: strip(i.Value), ReturnVarName: i.ReturnVarName}
	case *ConditionalJump:
		return &ConditionalJump{Condition: strip(i.Condition), Target: i.Target}
	default:
		return instr
	}
}
