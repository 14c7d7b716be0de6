// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package udonc

import "testing"

func newTestConverter() *Converter {
	classes := NewClassRegistry()
	classes.Add(&ClassDecl{
		Name:       "Player",
		Properties: []PropertyDecl{{Name: "score", TypeName: "int"}},
	})
	return NewConverter(classes, NewExternSignatureRegistry(NewTypeMetadataRegistry()))
}

func TestResolveIdentPrefersLocalOverEverything(t *testing.T) {
	conv := newTestConverter()
	fn := &Func{OwnerClass: "Player"}
	b := &fnBuilder{conv: conv, fn: fn, locals: map[string]*Variable{}, ownerCD: conv.classes.Get("Player")}
	local := &Variable{Name: "score", Type: "int", IsLocal: true}
	b.locals["score"] = local

	got := b.resolveIdent(&Ident{Name: "score"})
	if got != Operand(local) {
		t.Fatalf("resolveIdent(score) = %v, want the local variable itself", got)
	}
}

func TestResolveIdentPrefersPropertyOverTopLevelConst(t *testing.T) {
	conv := newTestConverter()
	conv.SetTopLevelConsts(map[string]*Variable{
		"score": {Name: "score", IsLocal: true, IsExported: true},
	})
	fn := &Func{OwnerClass: "Player"}
	b := &fnBuilder{conv: conv, fn: fn, locals: map[string]*Variable{}, ownerCD: conv.classes.Get("Player")}

	got := b.resolveIdent(&Ident{Name: "score"})
	pg, ok := got.(*Temporary)
	if !ok {
		t.Fatalf("resolveIdent(score) = %T, want a Temporary from a PropertyGet", got)
	}
	_ = pg
	if len(fn.Instrs) != 1 {
		t.Fatalf("len(fn.Instrs) = %d, want 1 (a PropertyGet)", len(fn.Instrs))
	}
	if _, ok := fn.Instrs[0].(*PropertyGet); !ok {
		t.Fatalf("fn.Instrs[0] = %T, want *PropertyGet (score is a property, const must not shadow it)", fn.Instrs[0])
	}
}

func TestResolveIdentFallsBackToTopLevelConst(t *testing.T) {
	conv := newTestConverter()
	limit := &Variable{Name: "maxScore", IsLocal: true, IsExported: true}
	conv.SetTopLevelConsts(map[string]*Variable{"maxScore": limit})
	fn := &Func{OwnerClass: "Player"}
	b := &fnBuilder{conv: conv, fn: fn, locals: map[string]*Variable{}, ownerCD: conv.classes.Get("Player")}

	got := b.resolveIdent(&Ident{Name: "maxScore"})
	if got != Operand(limit) {
		t.Fatalf("resolveIdent(maxScore) = %v, want the top-level const Variable (not a property on Player)", got)
	}
	if len(fn.Instrs) != 0 {
		t.Fatalf("resolveIdent via top-level const should not emit any instruction, got %d", len(fn.Instrs))
	}
}

func TestConvertMethodLowersBinaryExprAndAppendsImplicitReturn(t *testing.T) {
	conv := newTestConverter()
	owner := conv.classes.Get("Player")
	method := &MethodDecl{
		Name: "Add",
		Body: []Stmt{
			&ExprStmt{X: &BinaryExpr{Op: "+", Left: &Literal{Value: int64(1), TypeName: "int"}, Right: &Literal{Value: int64(2), TypeName: "int"}}},
		},
	}
	fn := conv.ConvertMethod(owner, method)
	if len(fn.Instrs) != 2 {
		t.Fatalf("len(fn.Instrs) = %d, want 2 (BinaryOp + implicit Return)", len(fn.Instrs))
	}
	if _, ok := fn.Instrs[0].(*BinaryOp); !ok {
		t.Fatalf("fn.Instrs[0] = %T, want *BinaryOp", fn.Instrs[0])
	}
	if _, ok := fn.Instrs[1].(*Return); !ok {
		t.Fatalf("fn.Instrs[1] = %T, want an implicit *Return", fn.Instrs[1])
	}
}

func TestConvertConstructorIsSynthesizedWhenAbsent(t *testing.T) {
	cls := &ClassDecl{Name: "Empty"}
	PrepareClass(cls)
	if cls.Ctor == nil {
		t.Fatal("PrepareClass left Ctor nil, want a synthesized parameterless constructor")
	}

	classes := NewClassRegistry()
	classes.Add(cls)
	conv := NewConverter(classes, NewExternSignatureRegistry(NewTypeMetadataRegistry()))
	fn := conv.ConvertConstructor(cls)
	if fn.Name != "ctor" {
		t.Fatalf("fn.Name = %s, want ctor", fn.Name)
	}
	if len(fn.Instrs) != 1 {
		t.Fatalf("len(fn.Instrs) = %d, want 1 (a bare Return)", len(fn.Instrs))
	}
}

func TestCollectTopLevelConstsReportsCrossFileDuplicate(t *testing.T) {
	a := &TopLevelConst{Pos: Pos{File: "a.src", Line: 1}, Name: "MaxHealth", Value: &Literal{Value: int64(100)}}
	b := &TopLevelConst{Pos: Pos{File: "b.src", Line: 2}, Name: "MaxHealth", Value: &Literal{Value: int64(200)}}
	modules := []*Module{
		{File: "a.src", Consts: []*TopLevelConst{a}},
		{File: "b.src", Consts: []*TopLevelConst{b}},
	}
	errs := NewErrorCollector()
	out := CollectTopLevelConsts(modules, errs)
	if !errs.HasErrors() {
		t.Fatal("expected a duplicate-definition error for MaxHealth across a.src and b.src")
	}
	if len(out) != 1 || out[0] != a {
		t.Fatalf("CollectTopLevelConsts = %v, want a single-element slice keeping the first definition (a)", out)
	}
}

func TestCollectTopLevelConstsPreservesModuleAndDeclarationOrder(t *testing.T) {
	a1 := &TopLevelConst{Pos: Pos{File: "a.src", Line: 1}, Name: "First", Value: &Literal{Value: int64(1)}}
	a2 := &TopLevelConst{Pos: Pos{File: "a.src", Line: 2}, Name: "Second", Value: &Literal{Value: int64(2)}}
	b1 := &TopLevelConst{Pos: Pos{File: "b.src", Line: 1}, Name: "Third", Value: &Literal{Value: int64(3)}}
	modules := []*Module{
		{File: "a.src", Consts: []*TopLevelConst{a1, a2}},
		{File: "b.src", Consts: []*TopLevelConst{b1}},
	}
	errs := NewErrorCollector()
	out := CollectTopLevelConsts(modules, errs)
	if errs.HasErrors() {
		t.Fatalf("unexpected errors: %v", errs.Errors())
	}
	want := []*TopLevelConst{a1, a2, b1}
	if len(out) != len(want) {
		t.Fatalf("len(out) = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Fatalf("out[%d] = %v, want %v (module order then declaration order, not map iteration order)", i, out[i], want[i])
		}
	}
}
