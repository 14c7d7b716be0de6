// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

// RuntimeBaseClass is the class every entry point's inheritance chain
// must terminate at (spec §4.2).
const RuntimeBaseClass = "UdonSharpBehaviour"

// EntryInterfaces maps an "Entry-style" interface name to the method
// names it requires, used to validate classes that claim to implement
// it (spec §4.2: "validate that every class claimed to implement a
// known Entry-style interface satisfies the interface's method list").
var EntryInterfaces = map[string][]string{
	"IUdonEventReceiver": {"OnEvent"},
}

// ValidateInheritance walks each entry class's base chain and reports
// an error (collected, not raised) when the chain doesn't terminate at
// RuntimeBaseClass, and separately validates interface method
// satisfaction for every registered class (spec §4.2).
func ValidateInheritance(classes *ClassRegistry, errs *ErrorCollector) {
	for _, c := range classes.EntryPoints() {
		validateEntryBaseChain(classes, c, errs)
	}
	for _, name := range classes.Names() {
		c := classes.Get(name)
		validateInterfaces(classes, c, errs)
	}
}

func validateEntryBaseChain(classes *ClassRegistry, c *ClassDecl, errs *ErrorCollector) {
	cur := c
	seen := map[string]bool{c.Name: true}
	for {
		if cur.BaseClass == RuntimeBaseClass {
			return
		}
		if cur.BaseClass == "" {
			errs.Add(NewCompileError(TypeError, c.File, c.Pos.Line, c.Pos.Column,
				"entry class "+c.Name+" does not derive from "+RuntimeBaseClass).
				WithSuggestion("add \"extends " + RuntimeBaseClass + "\" to " + c.Name))
			return
		}
		next := classes.Get(cur.BaseClass)
		if next == nil {
			errs.Add(NewCompileError(TypeError, c.File, c.Pos.Line, c.Pos.Column,
				"entry class "+c.Name+" has unresolved base class "+cur.BaseClass))
			return
		}
		if seen[next.Name] {
			errs.Add(NewCompileError(TypeError, c.File, c.Pos.Line, c.Pos.Column,
				"cyclic inheritance involving "+c.Name))
			return
		}
		seen[next.Name] = true
		cur = next
	}
}

func validateInterfaces(classes *ClassRegistry, c *ClassDecl, errs *ErrorCollector) {
	for _, iface := range c.Interfaces {
		required, ok := EntryInterfaces[iface]
		if !ok {
			continue // not a known Entry-style interface; nothing to check
		}
		merged := classes.Merged(c)
		have := map[string]bool{}
		for _, m := range merged.Methods {
			have[m.Name] = true
		}
		for _, req := range required {
			if !have[req] {
				errs.Add(NewCompileError(TypeError, c.File, c.Pos.Line, c.Pos.Column,
					"class "+c.Name+" implements "+iface+" but does not define "+req).
					WithSuggestion("add a method named " + req + " to " + c.Name))
			}
		}
	}
}
