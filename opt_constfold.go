// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

// passConstantFold implements pass 1 (spec §4.4): arithmetic, logical,
// string, pure-extern, and cast folding. Bitwise operators and vector
// constructors are not folded.
// Every branch is conservative: if the fold precondition fails, the
// instruction passes through unchanged.
func passConstantFold(fn *Func) []Instr {
	out := make([]Instr, len(fn.Instrs))
	for i, instr := range fn.Instrs {
		out[i] = foldInstr(instr)
	}
	return out
}

func foldInstr(instr Instr) Instr {
	switch i := instr.(type) {
	case *BinaryOp:
		if c := foldBinary(i); c != nil {
			return &Assignment{Dest: i.Dest, Src: c}
		}
	case *UnaryOp:
		if c := foldUnary(i); c != nil {
			return &Assignment{Dest: i.Dest, Src: c}
		}
	case *Cast:
		if c := foldCast(i); c != nil {
			return &Assignment{Dest: i.Dest, Src: c}
		}
	case *Call:
		if i.Owner != "" && i.Func != "" {
			if fn2, ok := LookupPureExtern(i.Owner, i.Func); ok {
				args := make([]interface{}, len(i.Args))
				allConst := true
				for j, a := range i.Args {
					c, ok := a.(*Constant)
					if !ok {
						allConst = false
						break
					}
					args[j] = c.Value
				}
				if allConst {
					if v, ok := fn2(args); ok {
						return &Assignment{Dest: i.Dest, Src: &Constant{Value: v, UdonType: "System.Single"}}
					}
				}
			}
		}
	}
	return instr
}

func asConstPair(left, right Operand) (*Constant, *Constant, bool) {
	l, ok1 := left.(*Constant)
	r, ok2 := right.(*Constant)
	return l, r, ok1 && ok2
}

func foldBinary(b *BinaryOp) Operand {
	l, r, ok := asConstPair(b.Left, b.Right)
	if !ok {
		return nil
	}

	if ls, ok1 := l.Value.(string); ok1 {
		if rs, ok2 := r.Value.(string); ok2 && b.Op == "+" {
			return &Constant{Value: ls + rs, UdonType: "System.String"}
		}
		return nil
	}

	lf, lok := toNumber(l.Value)
	rf, rok := toNumber(r.Value)
	if lok && rok {
		switch b.Op {
		case "+":
			return numericConstant(lf+rf, l, r)
		case "-":
			return numericConstant(lf-rf, l, r)
		case "*":
			return numericConstant(lf*rf, l, r)
		case "/":
			if rf == 0 {
				return nil
			}
			return numericConstant(lf/rf, l, r)
		case "<":
			return &Constant{Value: lf < rf, UdonType: "System.Boolean"}
		case "<=":
			return &Constant{Value: lf <= rf, UdonType: "System.Boolean"}
		case ">":
			return &Constant{Value: lf > rf, UdonType: "System.Boolean"}
		case ">=":
			return &Constant{Value: lf >= rf, UdonType: "System.Boolean"}
		case "==":
			return &Constant{Value: lf == rf, UdonType: "System.Boolean"}
		case "!=":
			return &Constant{Value: lf != rf, UdonType: "System.Boolean"}
		}
	}

	lb, lbok := l.Value.(bool)
	rb, rbok := r.Value.(bool)
	if lbok && rbok {
		switch b.Op {
		case "&&":
			return &Constant{Value: lb && rb, UdonType: "System.Boolean"}
		case "||":
			return &Constant{Value: lb || rb, UdonType: "System.Boolean"}
		}
	}
	return nil
}

func foldUnary(u *UnaryOp) Operand {
	c, ok := u.Operand.(*Constant)
	if !ok {
		return nil
	}
	switch u.Op {
	case "-":
		if f, ok := toNumber(c.Value); ok {
			return numericConstant(-f, c, c)
		}
	case "!":
		if b, ok := c.Value.(bool); ok {
			return &Constant{Value: !b, UdonType: "System.Boolean"}
		}
	}
	return nil
}

func foldCast(c *Cast) Operand {
	src, ok := c.Src.(*Constant)
	if !ok {
		return nil
	}
	switch c.ToType {
	case "int", "Int32":
		if f, ok := toNumber(src.Value); ok {
			return &Constant{Value: int64(f), UdonType: "System.Int32"}
		}
	case "float", "Single":
		if f, ok := toNumber(src.Value); ok {
			return &Constant{Value: f, UdonType: "System.Single"}
		}
	}
	return nil
}

func toNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

// numericConstant preserves integer-ness when both operands were
// integral, otherwise produces a float constant; this keeps repeated
// folds from silently widening an int chain to float.
func numericConstant(v float64, l, r *Constant) *Constant {
	_, lInt := l.Value.(int64)
	_, rInt := r.Value.(int64)
	if lInt && rInt {
		return &Constant{Value: int64(v), UdonType: "System.Int32"}
	}
	return &Constant{Value: v, UdonType: "System.Single"}
}
