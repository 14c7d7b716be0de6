// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

import "testing"

func TestRegisterIsIdempotentPerSourceName(t *testing.T) {
	tmr := NewTypeMetadataRegistry()
	a := tmr.Register("Player", "MyGame.Player")
	b := tmr.Register("Player", "MyGame.Player")
	if a != b {
		t.Fatal("Register(\"Player\", ...) returned distinct records on the second call")
	}
}

func TestResolveOverloadPrefersExactMatch(t *testing.T) {
	tmr := NewTypeMetadataRegistry()
	tm := tmr.Register("Util", "MyGame.Util")
	tm.addOverload(&MemberMetadata{Name: "Combine", ParamHostTypes: []string{"System.Object", "System.Object"}, ReturnHostType: "System.Object"})
	tm.addOverload(&MemberMetadata{Name: "Combine", ParamHostTypes: []string{"System.Int32", "System.Int32"}, ReturnHostType: "System.Int32"})

	got := tm.ResolveOverload("Combine", []string{"System.Int32", "System.Int32"})
	if got == nil || got.ReturnHostType != "System.Int32" {
		t.Fatalf("ResolveOverload picked %+v, want the exact Int32/Int32 overload", got)
	}
}

func TestResolveOverloadRejectsArityMismatch(t *testing.T) {
	tmr := NewTypeMetadataRegistry()
	tm := tmr.Register("Util", "MyGame.Util")
	tm.addOverload(&MemberMetadata{Name: "Combine", ParamHostTypes: []string{"System.Int32"}, ReturnHostType: "System.Int32"})

	if got := tm.ResolveOverload("Combine", []string{"System.Int32", "System.Int32"}); got != nil {
		t.Fatalf("ResolveOverload(arity 2) = %+v, want nil (only a 1-arg overload registered)", got)
	}
}

func TestResolveOverloadIntegerWidening(t *testing.T) {
	tmr := NewTypeMetadataRegistry()
	tm := tmr.Register("Util", "MyGame.Util")
	tm.addOverload(&MemberMetadata{Name: "Add", ParamHostTypes: []string{"System.Int64"}, ReturnHostType: "System.Int64"})

	got := tm.ResolveOverload("Add", []string{"System.Int32"})
	if got == nil {
		t.Fatal("ResolveOverload(Int32 against an Int64 param) = nil, want the integer-widening match")
	}
}
