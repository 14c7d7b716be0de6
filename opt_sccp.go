// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

// sccpLatKind is one state of the per-variable lattice (spec §4.4:
// "unknown -> constant|copy -> overdefined").
type sccpLatKind int

const (
	sccpUnknown sccpLatKind = iota
	sccpConstant
	sccpCopy
	sccpOverdefined
)

type sccpVal struct {
	kind    sccpLatKind
	constOp *Constant
	copyOf  string
}

func sccpMeet(a, b sccpVal) sccpVal {
	if a.kind == sccpUnknown {
		return b
	}
	if b.kind == sccpUnknown {
		return a
	}
	if a.kind == sccpOverdefined || b.kind == sccpOverdefined {
		return sccpVal{kind: sccpOverdefined}
	}
	if a.kind == sccpConstant && b.kind == sccpConstant {
		if a.constOp.Key() == b.constOp.Key() {
			return a
		}
		return sccpVal{kind: sccpOverdefined}
	}
	if a.kind == sccpCopy && b.kind == sccpCopy && a.copyOf == b.copyOf {
		return a
	}
	return sccpVal{kind: sccpOverdefined}
}

// passSCCP implements pass 2 (spec §4.4 and the dedicated "SCCP
// worklist and termination" section): copy/constant propagation,
// branch folding, and unreachable-block pruning, bounded by a
// compile-time iteration cap.
func passSCCP(fn *Func) []Instr {
	cfg := BuildCFG(fn)
	if len(cfg.Blocks) == 0 {
		return fn.Instrs
	}

	cap := 1000
	if b := len(cfg.Blocks) * 1000; b > cap {
		cap = b
	}

	entryEnv := make([]map[string]sccpVal, len(cfg.Blocks))
	exitEnv := make([]map[string]sccpVal, len(cfg.Blocks))
	liveEdge := make([]map[int]bool, len(cfg.Blocks)) // which successors are taken
	for i := range cfg.Blocks {
		entryEnv[i] = map[string]sccpVal{}
		exitEnv[i] = map[string]sccpVal{}
		liveEdge[i] = map[int]bool{}
	}
	reachable := map[int]bool{0: true}

	iter := 0
	for {
		iter++
		changed := false
		for _, b := range cfg.Blocks {
			if !reachable[b.ID] {
				continue
			}
			env := map[string]sccpVal{}
			for _, p := range b.Preds {
				if !liveEdge[p][b.ID] {
					continue
				}
				for k, v := range exitEnv[p] {
					env[k] = sccpMeet(env[k], v)
				}
			}
			if b.ID == 0 {
				// Entry block: parameters/uninitialized locals start
				// overdefined rather than unknown-forever.
				for _, instr := range fn.Instrs {
					for _, ops := range [][]Operand{instr.Uses(), instr.Dests()} {
						for _, op := range ops {
							if v, ok := op.(*Variable); ok {
								if _, set := env[livenessKey(v)]; !set {
									env[livenessKey(v)] = sccpVal{kind: sccpOverdefined}
								}
							}
						}
					}
				}
			}
			entryEnv[b.ID] = env

			takenSucc := -1
			allSucc := false
			for i := b.Start; i <= b.End; i++ {
				instr := fn.Instrs[i]
				switch ins := instr.(type) {
				case *Copy:
					v := sccpResolve(env, ins.Src)
					if name := destName(ins.Dest); name != "" {
						env[name] = copyOrConstLattice(v, ins.Src)
					}
				case *Assignment:
					if name := destName(ins.Dest); name != "" {
						env[name] = copyOrConstLattice(sccpResolve(env, ins.Src), ins.Src)
					}
				case *ConditionalJump:
					v := sccpResolve(env, ins.Condition)
					if v.kind == sccpConstant {
						if truthy, ok := v.constOp.Value.(bool); ok {
							if truthy {
								takenSucc = fallthroughOf(cfg, b)
							} else {
								takenSucc = cfg.labelBlock[ins.Target.Name]
							}
							continue
						}
					}
					allSucc = true
				default:
					for _, d := range instr.Dests() {
						if name := destName(d); name != "" {
							env[name] = sccpVal{kind: sccpOverdefined}
						}
					}
				}
			}
			if takenSucc == -1 && !allSucc {
				allSucc = true
			}
			for _, s := range b.Succs {
				take := allSucc || s == takenSucc
				if take && !liveEdge[b.ID][s] {
					liveEdge[b.ID][s] = true
					changed = true
				}
				if take && !reachable[s] {
					reachable[s] = true
					changed = true
				}
			}
			if !mapsEqualSCCP(exitEnv[b.ID], env) {
				exitEnv[b.ID] = env
				changed = true
			}
		}
		if !changed || iter >= cap {
			break
		}
	}

	var out []Instr
	for _, b := range cfg.Blocks {
		if !reachable[b.ID] {
			continue
		}
		env := map[string]sccpVal{}
		for k, v := range entryEnv[b.ID] {
			env[k] = v
		}
		for i := b.Start; i <= b.End; i++ {
			instr := fn.Instrs[i]
			rewritten := rewriteOperandsWithEnv(instr, env)
			switch ins := rewritten.(type) {
			case *Copy:
				if name := destName(ins.Dest); name != "" {
					env[name] = copyOrConstLattice(sccpResolve(env, ins.Src), ins.Src)
				}
			case *Assignment:
				if name := destName(ins.Dest); name != "" {
					env[name] = copyOrConstLattice(sccpResolve(env, ins.Src), ins.Src)
				}
			case *ConditionalJump:
				v := sccpResolve(env, ins.Condition)
				if v.kind == sccpConstant {
					if truthy, ok := v.constOp.Value.(bool); ok {
						if !truthy {
							out = append(out, &UnconditionalJump{Target: ins.Target})
						}
						// truthy: the jump-if-false never fires, control
						// falls through, emit nothing.
						continue
					}
				}
				out = append(out, ins)
				continue
			default:
				for _, d := range instr.Dests() {
					if name := destName(d); name != "" {
						env[name] = sccpVal{kind: sccpOverdefined}
					}
				}
			}
			out = append(out, rewritten)
		}
	}
	return out
}

func fallthroughOf(cfg *CFG, b *Block) int {
	for _, s := range b.Succs {
		if s != b.ID+1 {
			continue
		}
		return s
	}
	if b.ID+1 < len(cfg.Blocks) {
		return b.ID + 1
	}
	return -1
}

func copyOrConstLattice(v sccpVal, src Operand) sccpVal {
	if v.kind != sccpUnknown {
		return v
	}
	if vr, ok := src.(*Variable); ok {
		return sccpVal{kind: sccpCopy, copyOf: vr.Name}
	}
	return sccpVal{kind: sccpOverdefined}
}

func destName(op Operand) string {
	if v, ok := op.(*Variable); ok {
		return livenessKey(v)
	}
	if t, ok := op.(*Temporary); ok {
		return t.Key()
	}
	return ""
}

func sccpResolve(env map[string]sccpVal, op Operand) sccpVal {
	switch o := op.(type) {
	case *Constant:
		return sccpVal{kind: sccpConstant, constOp: o}
	case *Variable:
		v, ok := env[livenessKey(o)]
		if !ok {
			return sccpVal{kind: sccpUnknown}
		}
		seen := map[string]bool{}
		for v.kind == sccpCopy {
			if seen[v.copyOf] {
				return sccpVal{kind: sccpOverdefined}
			}
			seen[v.copyOf] = true
			nv, ok := env[v.copyOf]
			if !ok {
				return sccpVal{kind: sccpOverdefined}
			}
			v = nv
		}
		return v
	case *Temporary:
		v, ok := env[o.Key()]
		if !ok {
			return sccpVal{kind: sccpUnknown}
		}
		return v
	default:
		return sccpVal{kind: sccpOverdefined}
	}
}

func sccpValToOperand(v sccpVal, fallback Operand) Operand {
	if v.kind == sccpConstant {
		return v.constOp
	}
	return fallback
}

func rewriteOperandsWithEnv(instr Instr, env map[string]sccpVal) Instr {
	r := func(op Operand) Operand {
		if op == nil {
			return nil
		}
		return sccpValToOperand(sccpResolve(env, op), op)
	}
	switch i := instr.(type) {
	case *Assignment:
		return &Assignment{Dest: i.Dest, Src: r(i.Src)}
	case *Copy:
		return &Copy{Dest: i.Dest, Src: r(i.Src)}
	case *Cast:
		return &Cast{Dest: i.Dest, Src: r(i.Src), ToType: i.ToType}
	case *BinaryOp:
		return &BinaryOp{Dest: i.Dest, Op: i.Op, Left: r(i.Left), Right: r(i.Right)}
	case *UnaryOp:
		return &UnaryOp{Dest: i.Dest, Op: i.Op, Operand: r(i.Operand)}
	case *Call:
		args := make([]Operand, len(i.Args))
		for j, a := range i.Args {
			args[j] = r(a)
		}
		return &Call{Dest: i.Dest, Owner: i.Owner, Func: i.Func, Args: args, IsTailCall: i.IsTailCall}
	case *MethodCall:
		args := make([]Operand, len(i.Args))
		for j, a := range i.Args {
			args[j] = r(a)
		}
		return &MethodCall{Dest: i.Dest, Object: r(i.Object), Method: i.Method, Args: args, IsTailCall: i.IsTailCall}
	case *PropertyGet:
		return &PropertyGet{Dest: i.Dest, Object: r(i.Object), Property: i.Property}
	case *PropertySet:
		return &PropertySet{Object: r(i.Object), Property: i.Property, Value: r(i.Value)}
	case *ArrayAccess:
		return &ArrayAccess{Dest: i.Dest, Array: r(i.Array), Index: r(i.Index)}
	case *ArrayAssignment:
		return &ArrayAssignment{Array: r(i.Array), Index: r(i.Index), Value: r(i.Value)}
	case *Return:
		return &Return{Value: r(i.Value), ReturnVarName: i.ReturnVarName}
	case *ConditionalJump:
		return &ConditionalJump{Condition: r(i.Condition), Target: i.Target}
	default:
		return instr
	}
}

func mapsEqualSCCP(a, b map[string]sccpVal) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		bv, ok := b[k]
		if !ok || bv.kind != v.kind || bv.copyOf != v.copyOf {
			return false
		}
		if v.kind == sccpConstant && (bv.constOp == nil || v.constOp == nil || bv.constOp.Key() != v.constOp.Key()) {
			return false
		}
	}
	return true
}
