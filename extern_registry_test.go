// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

import "testing"

func TestResolveStaticMethodTableHit(t *testing.T) {
	esr := NewExternSignatureRegistry(NewTypeMetadataRegistry())
	sig, ok := esr.Resolve("Mathf", "Abs", AccessMethod, []string{"System.Single"}, "System.Single")
	if !ok {
		t.Fatal("Resolve(Mathf.Abs) = not ok, want a static-table hit")
	}
	if sig != "UnityEngineMathf.__Abs__SystemSingle__SystemSingle" {
		t.Fatalf("Resolve(Mathf.Abs) = %s, want the static-table signature verbatim", sig)
	}
}

func TestResolveStaticCtorTableHit(t *testing.T) {
	esr := NewExternSignatureRegistry(NewTypeMetadataRegistry())
	sig, ok := esr.Resolve("Vector3", "ctor", AccessMethod, nil, "UnityEngine.Vector3")
	if !ok || sig != "__ctor____UnityEngineVector3" {
		t.Fatalf("Resolve(Vector3 ctor) = (%s, %v), want the static ctor-table signature", sig, ok)
	}
}

func TestResolveTMRMemberWithSignatureOverride(t *testing.T) {
	tmr := NewTypeMetadataRegistry()
	tmr.RegisterMember("Enemy", &MemberMetadata{
		OwnerHostType: "MyGame.Enemy", Name: "Attack",
		ParamHostTypes: []string{"System.Int32"}, ReturnHostType: "System.Void",
		SignatureOverride: "MyGameEnemy.__Attack__Override",
	})
	esr := NewExternSignatureRegistry(tmr)
	sig, ok := esr.Resolve("Enemy", "Attack", AccessMethod, []string{"System.Int32"}, "System.Void")
	if !ok || sig != "MyGameEnemy.__Attack__Override" {
		t.Fatalf("Resolve(Enemy.Attack) = (%s, %v), want the registered override verbatim", sig, ok)
	}
}

func TestResolveSynthesizesWhenNothingMatches(t *testing.T) {
	esr := NewExternSignatureRegistry(NewTypeMetadataRegistry())
	sig, ok := esr.Resolve("MyGame.Player", "TakeDamage", AccessMethod, []string{"System.Int32"}, "System.Void")
	if !ok {
		t.Fatal("Resolve with param/return types supplied should always synthesize a fallback signature")
	}
	want := "MyGamePlayer.__TakeDamage__SystemInt32__SystemVoid"
	if sig != Signature(want) {
		t.Fatalf("synthesized signature = %s, want %s", sig, want)
	}
}

func TestResolveFailsWithoutEnoughInformationToSynthesize(t *testing.T) {
	esr := NewExternSignatureRegistry(NewTypeMetadataRegistry())
	_, ok := esr.Resolve("Unknown", "Mystery", AccessMethod, nil, "")
	if ok {
		t.Fatal("Resolve() should fail when neither a table hit nor enough type info to synthesize is available")
	}
}

func TestSynthesizeCtorSignatureShape(t *testing.T) {
	if got := SynthesizeCtor("MyGame.Player"); got != "__ctor____MyGamePlayer" {
		t.Fatalf("SynthesizeCtor(MyGame.Player) = %s, want __ctor____MyGamePlayer", got)
	}
}

func TestSanitizeHostTypeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"System.Int32", "SystemInt32"},
		{"System.Object[]", "SystemObjectArray"},
		{"MyGame.Player&", "MyGamePlayerRef"},
		{"System.Void", "SystemVoid"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := sanitizeHostTypeName(tt.in); got != tt.want {
				t.Errorf("sanitizeHostTypeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
