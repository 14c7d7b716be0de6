// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

import "testing"

func TestDirectReferencesFromPropertyAndParamTypes(t *testing.T) {
	classes := NewClassRegistry()
	classes.Add(&ClassDecl{Name: "Weapon"})
	classes.Add(&ClassDecl{
		Name:       "Player",
		Properties: []PropertyDecl{{Name: "weapon", TypeName: "Weapon"}},
		Methods: []MethodDecl{
			{Name: "Equip", Params: []Param{{Name: "w", TypeName: "Weapon"}}},
		},
	})

	a := NewCallAnalyzer(classes)
	refs := a.DirectReferences(classes.Get("Player"))
	if len(refs) != 1 || refs[0] != "Weapon" {
		t.Fatalf("DirectReferences(Player) = %v, want [Weapon] (deduped across property and param)", refs)
	}
}

func TestDirectReferencesIgnoresUnknownAndSelfTypes(t *testing.T) {
	classes := NewClassRegistry()
	classes.Add(&ClassDecl{
		Name: "Player",
		Properties: []PropertyDecl{
			{Name: "other", TypeName: "Player"},        // self-reference, excluded
			{Name: "target", TypeName: "GameObject"},   // builtin, not a registered inline class
		},
	})

	a := NewCallAnalyzer(classes)
	refs := a.DirectReferences(classes.Get("Player"))
	if len(refs) != 0 {
		t.Fatalf("DirectReferences(Player) = %v, want none", refs)
	}
}

func TestReachableInlineClassesExcludesEntryPoints(t *testing.T) {
	classes := NewClassRegistry()
	classes.Add(&ClassDecl{Name: "Ammo"})
	classes.Add(&ClassDecl{Name: "Weapon", Properties: []PropertyDecl{{Name: "ammo", TypeName: "Ammo"}}})
	classes.Add(&ClassDecl{
		Name:       "Enemy",
		Decorators: []Decorator{{Text: EntryDecorator}},
	})
	classes.Add(&ClassDecl{
		Name: "Player",
		Properties: []PropertyDecl{
			{Name: "weapon", TypeName: "Weapon"},
			{Name: "nearestEnemy", TypeName: "Enemy"}, // another entry point, must not be pulled in
		},
		Decorators: []Decorator{{Text: EntryDecorator}},
	})

	a := NewCallAnalyzer(classes)
	reachable := a.ReachableInlineClasses(classes.Get("Player"))
	names := map[string]bool{}
	for _, c := range reachable {
		names[c.Name] = true
	}
	if !names["Weapon"] || !names["Ammo"] {
		t.Fatalf("ReachableInlineClasses(Player) = %v, want Weapon and Ammo reachable transitively", reachable)
	}
	if names["Enemy"] {
		t.Fatalf("ReachableInlineClasses(Player) = %v, want Enemy (an entry point) excluded", reachable)
	}
}
