// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

// passTailCallMark implements pass 12 (spec §4.4): when a Call or
// MethodCall's destination equals the immediately-following Return's
// value, set the advisory isTailCall flag. The Return is never
// removed — spec §9 treats the flag as advisory only, never lowering
// to a raw jump.
func passTailCallMark(fn *Func) []Instr {
	out := make([]Instr, len(fn.Instrs))
	copy(out, fn.Instrs)
	for i := 0; i+1 < len(out); i++ {
		ret, ok := out[i+1].(*Return)
		if !ok || ret.Value == nil {
			continue
		}
		switch c := out[i].(type) {
		case *Call:
			if opKey(c.Dest) == opKey(ret.Value) {
				out[i] = &Call{Dest: c.Dest, Owner: c.Owner, Func: c.Func, Args: c.Args, IsTailCall: true}
			}
		case *MethodCall:
			if opKey(c.Dest) == opKey(ret.Value) {
				out[i] = &MethodCall{Dest: c.Dest, Object: c.Object, Method: c.Method, Args: c.Args, IsTailCall: true}
			}
		}
	}
	return out
}
