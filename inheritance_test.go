// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

import "testing"

func TestValidateInheritanceAcceptsRuntimeBaseChain(t *testing.T) {
	classes := NewClassRegistry()
	classes.Add(&ClassDecl{Name: "Player", BaseClass: RuntimeBaseClass, Decorators: []Decorator{{Text: EntryDecorator}}})

	errs := NewErrorCollector()
	ValidateInheritance(classes, errs)
	if errs.HasErrors() {
		t.Fatalf("unexpected errors: %v", errs.Errors())
	}
}

func TestValidateInheritanceRejectsMissingRuntimeBase(t *testing.T) {
	classes := NewClassRegistry()
	classes.Add(&ClassDecl{Name: "Player", Decorators: []Decorator{{Text: EntryDecorator}}})

	errs := NewErrorCollector()
	ValidateInheritance(classes, errs)
	if !errs.HasErrors() {
		t.Fatal("expected an error when an entry class's chain never reaches UdonSharpBehaviour")
	}
}

func TestValidateInheritanceDetectsCycle(t *testing.T) {
	classes := NewClassRegistry()
	classes.Add(&ClassDecl{Name: "A", BaseClass: "B", Decorators: []Decorator{{Text: EntryDecorator}}})
	classes.Add(&ClassDecl{Name: "B", BaseClass: "A"})

	errs := NewErrorCollector()
	ValidateInheritance(classes, errs)
	if !errs.HasErrors() {
		t.Fatal("expected a cyclic-inheritance error")
	}
}

func TestValidateInterfacesRequiresImplementedMethod(t *testing.T) {
	classes := NewClassRegistry()
	classes.Add(&ClassDecl{
		Name:       "Listener",
		BaseClass:  RuntimeBaseClass,
		Interfaces: []string{"IUdonEventReceiver"},
	})

	errs := NewErrorCollector()
	ValidateInheritance(classes, errs)
	if !errs.HasErrors() {
		t.Fatal("expected an error: Listener implements IUdonEventReceiver but never defines OnEvent")
	}
}

func TestValidateInterfacesSatisfiedByInheritedMethod(t *testing.T) {
	classes := NewClassRegistry()
	classes.Add(&ClassDecl{
		Name:    "Base",
		Methods: []MethodDecl{{Name: "OnEvent"}},
	})
	classes.Add(&ClassDecl{
		Name:       "Listener",
		BaseClass:  "Base",
		Interfaces: []string{"IUdonEventReceiver"},
	})

	errs := NewErrorCollector()
	ValidateInheritance(classes, errs)
	if errs.HasErrors() {
		t.Fatalf("unexpected errors when OnEvent is satisfied via inheritance: %v", errs.Errors())
	}
}
