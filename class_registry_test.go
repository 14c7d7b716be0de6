// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

import "testing"

func TestClassRegistryEntryPoints(t *testing.T) {
	r := NewClassRegistry()
	r.Add(&ClassDecl{Name: "Plain"})
	r.Add(&ClassDecl{Name: "Behaviour", Decorators: []Decorator{{Text: EntryDecorator}}})

	eps := r.EntryPoints()
	if len(eps) != 1 || eps[0].Name != "Behaviour" {
		t.Fatalf("EntryPoints() = %+v, want just [Behaviour]", eps)
	}
}

func TestClassRegistryMergedAppliesOverridesOnce(t *testing.T) {
	r := NewClassRegistry()
	base := &ClassDecl{
		Name: "Base",
		Properties: []PropertyDecl{{Name: "health", TypeName: "int"}},
		Methods:    []MethodDecl{{Name: "Tick", ReturnType: "void"}},
	}
	derived := &ClassDecl{
		Name:      "Derived",
		BaseClass: "Base",
		Properties: []PropertyDecl{
			{Name: "health", TypeName: "float"}, // overrides Base's int health
			{Name: "shield", TypeName: "int"},
		},
	}
	r.Add(base)
	r.Add(derived)

	view := r.Merged(derived)
	if len(view.Properties) != 2 {
		t.Fatalf("len(Properties) = %d, want 2 (health overridden in place, shield appended)", len(view.Properties))
	}
	if view.Properties[0].Name != "health" || view.Properties[0].TypeName != "float" {
		t.Fatalf("Properties[0] = %+v, want health overridden to float", view.Properties[0])
	}
	if len(view.Methods) != 1 || view.Methods[0].Name != "Tick" {
		t.Fatalf("Methods = %+v, want Base's Tick inherited", view.Methods)
	}
}

func TestClassRegistryBaseChainStopsOnCycle(t *testing.T) {
	r := NewClassRegistry()
	r.Add(&ClassDecl{Name: "A", BaseClass: "B"})
	r.Add(&ClassDecl{Name: "B", BaseClass: "A"})

	// Must terminate instead of looping forever.
	chain := r.baseChain(r.Get("A"))
	if len(chain) != 1 || chain[0] != "B" {
		t.Fatalf("baseChain(A) = %v, want [B] (cycle cut after one hop)", chain)
	}
}
