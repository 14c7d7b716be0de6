// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

// copyOnWriteTypes are the mutable reference-like host types pass 9
// guards (spec §4.4): mutating one through an alias must not be
// observed through another alias of the same origin.
var copyOnWriteTypes = map[string]bool{
	"VRC.SDK3.Data.DataList":       true,
	"VRC.SDK3.Data.DataDictionary": true,
	"DataList":                     true,
	"DataDictionary":               true,
}

// passCopyOnWrite implements pass 9 (spec §4.4): before a mutation
// reached through a temporary that aliases another live temporary of a
// copy-on-write type, a materializing copy call is inserted first.
func passCopyOnWrite(fn *Func) []Instr {
	aliasOf := map[string]string{} // temp/var key -> origin key it was copied from
	var out []Instr

	for _, instr := range fn.Instrs {
		if cp, ok := instr.(*Copy); ok {
			if isCowType(operandType(cp.Src)) {
				aliasOf[opKey(cp.Dest)] = originKey(aliasOf, opKey(cp.Src))
			}
		}
		if mc, ok := instr.(*MethodCall); ok && isMutatingMethod(mc.Method) {
			origin, aliased := aliasOf[opKey(mc.Object)]
			if aliased {
				materialized := &Temporary{ID: fn.NextTempID(), Type: operandType(mc.Object)}
				out = append(out, &Call{Dest: materialized, Owner: "CopyOnWrite", Func: "Clone", Args: []Operand{mc.Object}})
				aliasOf[opKey(materialized)] = origin
				out = append(out, &MethodCall{Dest: mc.Dest, Object: materialized, Method: mc.Method, Args: mc.Args, IsTailCall: mc.IsTailCall})
				delete(aliasOf, opKey(mc.Object))
				continue
			}
		}
		out = append(out, instr)
	}
	return out
}

func originKey(aliasOf map[string]string, key string) string {
	if o, ok := aliasOf[key]; ok {
		return o
	}
	return key
}

func operandType(op Operand) string {
	switch o := op.(type) {
	case *Temporary:
		return o.Type
	case *Variable:
		return o.Type
	case *Constant:
		return o.UdonType
	default:
		return ""
	}
}

func isCowType(t string) bool { return copyOnWriteTypes[t] }

var mutatingDataMethods = map[string]bool{
	"Add": true, "Remove": true, "Clear": true, "SetValue": true, "RemoveAt": true,
}

func isMutatingMethod(name string) bool { return mutatingDataMethods[name] }
